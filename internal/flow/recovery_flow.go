package flow

import (
	"context"
	"log/slog"

	"github.com/xminit/supportcore/internal/models"
	"github.com/xminit/supportcore/internal/suggest"
)

// RecoveryFlow implements the guided recovery dialogue for "no feed results"
// complaints. It enforces the ordering contract: a clarifying question is the
// entire content of its turn, and diagnosis, keyword alternatives and source
// links are only ever emitted together, after intent is confirmed.
type RecoveryFlow struct {
	stateManager StateManager
	generator    *suggest.Generator
}

// NewRecoveryFlow creates the flow controller with its dependencies.
func NewRecoveryFlow(stateManager StateManager, generator *suggest.Generator) *RecoveryFlow {
	slog.Debug("RecoveryFlow.NewRecoveryFlow: creating flow controller")
	return &RecoveryFlow{stateManager: stateManager, generator: generator}
}

// ProcessTurn advances the recovery flow for one inbound turn. The returned
// bool reports whether the flow handled the turn; when false the caller
// should answer through its general path.
func (f *RecoveryFlow) ProcessTurn(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	state, err := f.stateManager.GetCurrentState(ctx, turn.ConversationID, models.FlowTypeRecovery)
	if err != nil {
		// Storage trouble is not fatal to the turn; treat as a fresh topic.
		slog.Warn("RecoveryFlow.ProcessTurn: state read failed, treating as fresh topic", "error", err, "conversationID", turn.ConversationID)
		state = models.StateNotActive
	}
	if !models.IsValidStateType(state) {
		slog.Warn("RecoveryFlow.ProcessTurn: unrecognized stored state, resetting", "state", state, "conversationID", turn.ConversationID)
		if resetErr := f.stateManager.ResetState(ctx, turn.ConversationID, models.FlowTypeRecovery); resetErr != nil {
			slog.Error("RecoveryFlow.ProcessTurn: reset after corruption failed", "error", resetErr, "conversationID", turn.ConversationID)
		}
		state = models.StateNotActive
	}
	if state == "" {
		state = models.StateNotActive
	}

	switch state {
	case models.StateNotActive:
		return f.handleNotActive(ctx, turn)
	case models.StateAwaitingIntent:
		return f.handleAwaitingIntent(ctx, turn)
	case models.StateReadyToRespond:
		// Normally transient within a turn; a stored READY_TO_RESPOND means
		// the previous turn was interrupted before responding.
		return f.respond(ctx, turn)
	}
	return models.ResponsePlan{}, false, models.ErrUnknownFlowState
}

// handleNotActive starts the flow when the trigger is recognized.
func (f *RecoveryFlow) handleNotActive(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	if !IsNoResultsComplaint(turn.Text) {
		return models.ResponsePlan{}, false, nil
	}

	kind := models.InputKindKeyword
	topic := ""
	if turn.Signals.IsURLLike {
		kind = models.InputKindURL
		topic = urlTopic(turn.Text)
	} else {
		topic = ExtractTopic(turn.Text)
	}

	bucket := InferBucket(turn.Text)
	slog.Info("RecoveryFlow.handleNotActive: trigger recognized", "conversationID", turn.ConversationID, "kind", kind, "topic", topic, "bucket", bucket)

	f.saveReportedInput(ctx, turn.ConversationID, kind, topic)

	// URL inputs have an unambiguous goal (the feed address needs
	// discovery); keyword inputs with a stated goal skip the gate too.
	if kind == models.InputKindURL || bucket != models.BucketUnknown {
		f.setState(ctx, turn.ConversationID, models.StateReadyToRespond)
		f.saveBucket(ctx, turn.ConversationID, bucket)
		return f.respond(ctx, turn)
	}

	f.setState(ctx, turn.ConversationID, models.StateAwaitingIntent)
	question := clarifyingQuestion(turn.Locale)
	if err := f.stateManager.SetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyPendingQuestion, question); err != nil {
		slog.Error("RecoveryFlow.handleNotActive: failed to persist pending question", "error", err, "conversationID", turn.ConversationID)
	}

	return models.ResponsePlan{
		AckText:            ackEmptyResults(turn.Locale),
		ClarifyingQuestion: question,
	}, true, nil
}

// handleAwaitingIntent resolves the pending clarifying question.
func (f *RecoveryFlow) handleAwaitingIntent(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	// A fresh complaint restarts the flow with the new input.
	if IsNoResultsComplaint(turn.Text) && (turn.Signals.IsURLLike || ExtractTopic(turn.Text) != "") {
		slog.Debug("RecoveryFlow.handleAwaitingIntent: new complaint supersedes pending question", "conversationID", turn.ConversationID)
		if err := f.stateManager.ResetState(ctx, turn.ConversationID, models.FlowTypeRecovery); err != nil {
			slog.Error("RecoveryFlow.handleAwaitingIntent: reset failed", "error", err, "conversationID", turn.ConversationID)
		}
		return f.handleNotActive(ctx, turn)
	}

	// A short rejection or a strong unrelated signal is a topic change:
	// clear the flow and let the general path answer.
	sig := turn.Signals
	if sig.IsShortRejection || sig.MalfunctionReported || sig.SensitiveTopicDetected || sig.ExplicitHumanRequest {
		slog.Debug("RecoveryFlow.handleAwaitingIntent: topic change, clearing flow", "conversationID", turn.ConversationID)
		if err := f.stateManager.ResetState(ctx, turn.ConversationID, models.FlowTypeRecovery); err != nil {
			slog.Error("RecoveryFlow.handleAwaitingIntent: reset failed", "error", err, "conversationID", turn.ConversationID)
		}
		return models.ResponsePlan{}, false, nil
	}

	// The pending question decides how the answer is read: after asking for
	// the tracked keyword, the turn text is the keyword itself.
	pending, _ := f.stateManager.GetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyPendingQuestion)
	if isKeywordQuestion(pending) {
		return f.handleKeywordAnswer(ctx, turn)
	}

	bucket := InferBucket(turn.Text)
	if bucket == models.BucketUnknown && sig.IsShortAffirmation {
		// "yes" answers the pending question without picking a bucket;
		// proceed with the open-ended goal rather than re-asking.
		bucket = models.BucketOther
	}

	if bucket == models.BucketUnknown {
		// Still ambiguous: re-ask briefly, never restating the original
		// topic explanation.
		slog.Debug("RecoveryFlow.handleAwaitingIntent: goal still ambiguous, re-asking", "conversationID", turn.ConversationID)
		question := reaskQuestion(turn.Locale)
		if err := f.stateManager.SetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyPendingQuestion, question); err != nil {
			slog.Error("RecoveryFlow.handleAwaitingIntent: failed to refresh pending question", "error", err, "conversationID", turn.ConversationID)
		}
		return models.ResponsePlan{
			AckText:            ackStillNeedGoal(turn.Locale),
			ClarifyingQuestion: question,
		}, true, nil
	}

	if sig.IsShortAffirmation {
		// An affirmation confirms the goal but names no keyword; without a
		// stored one there is nothing to build suggestions around.
		topic, _ := f.stateManager.GetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyReportedInput)
		if topic == "" {
			f.saveBucket(ctx, turn.ConversationID, bucket)
			return f.askForKeyword(ctx, turn)
		}
	}

	if err := f.stateManager.TransitionState(ctx, turn.ConversationID, models.FlowTypeRecovery, models.StateAwaitingIntent, models.StateReadyToRespond); err != nil {
		slog.Error("RecoveryFlow.handleAwaitingIntent: transition failed", "error", err, "conversationID", turn.ConversationID)
	}
	f.saveBucket(ctx, turn.ConversationID, bucket)
	return f.respond(ctx, turn)
}

// handleKeywordAnswer reads the turn as the tracked keyword the flow asked
// for. Unusable answers get the same question again.
func (f *RecoveryFlow) handleKeywordAnswer(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	topic := ""
	if !turn.Signals.IsShortAffirmation {
		topic = ExtractTopic(turn.Text)
	}
	if topic == "" {
		return f.askForKeyword(ctx, turn)
	}

	f.saveReportedInput(ctx, turn.ConversationID, models.InputKindKeyword, topic)

	bucket := InferBucket(turn.Text)
	if bucket == models.BucketUnknown {
		if stored, _ := f.stateManager.GetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyIntentBucket); stored != "" {
			bucket = models.IntentBucket(stored)
		} else {
			bucket = models.BucketOther
		}
	}

	if err := f.stateManager.TransitionState(ctx, turn.ConversationID, models.FlowTypeRecovery, models.StateAwaitingIntent, models.StateReadyToRespond); err != nil {
		slog.Error("RecoveryFlow.handleKeywordAnswer: transition failed", "error", err, "conversationID", turn.ConversationID)
	}
	f.saveBucket(ctx, turn.ConversationID, bucket)
	return f.respond(ctx, turn)
}

// askForKeyword asks for the tracked keyword and stays in AWAITING_INTENT.
func (f *RecoveryFlow) askForKeyword(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	question := keywordQuestion(turn.Locale)
	if err := f.stateManager.SetStateData(ctx, turn.ConversationID, models.FlowTypeRecovery, models.DataKeyPendingQuestion, question); err != nil {
		slog.Error("RecoveryFlow.askForKeyword: failed to persist pending question", "error", err, "conversationID", turn.ConversationID)
	}
	return models.ResponsePlan{
		AckText:            ackStillNeedGoal(turn.Locale),
		ClarifyingQuestion: question,
	}, true, nil
}

// respond emits the single combined diagnosis + suggestions + sources
// response and unconditionally resets the flow.
func (f *RecoveryFlow) respond(ctx context.Context, turn models.Turn) (models.ResponsePlan, bool, error) {
	convID := turn.ConversationID

	kindStr, _ := f.stateManager.GetStateData(ctx, convID, models.FlowTypeRecovery, models.DataKeyInputKind)
	topic, _ := f.stateManager.GetStateData(ctx, convID, models.FlowTypeRecovery, models.DataKeyReportedInput)
	bucketStr, _ := f.stateManager.GetStateData(ctx, convID, models.FlowTypeRecovery, models.DataKeyIntentBucket)

	kind := models.InputKind(kindStr)
	if kind != models.InputKindURL {
		kind = models.InputKindKeyword
	}
	bucket := models.IntentBucket(bucketStr)
	// A bare affirmation carries no keyword, so never mine it for a topic;
	// the bucket-name fallback below covers that case.
	if topic == "" && !turn.Signals.IsShortAffirmation {
		topic = ExtractTopic(turn.Text)
	}
	if topic == "" {
		topic = string(bucket)
	}

	diagnosis := suggest.Diagnose(kind, topic, turn.Locale)

	var keywords []models.KeywordSuggestion
	var excludeLinks []string
	if kind == models.InputKindURL {
		keywords = f.generator.EndpointPatterns(topic, turn.Locale)
		for _, k := range keywords {
			excludeLinks = append(excludeLinks, k.Text)
		}
		excludeLinks = append(excludeLinks, topic)
	} else {
		keywords = f.generator.Keywords(topic, bucket, turn.Locale)
	}

	sources := f.generator.Sources(ctx, topic, bucket, turn.Locale, excludeLinks)
	followUp := f.generator.FollowUp(keywords, kind, turn.Locale)

	plan := models.ResponsePlan{
		AckText:            ackRespond(turn.Locale),
		Diagnosis:          &diagnosis,
		KeywordSuggestions: keywords,
		SourceSuggestions:  sources,
		FollowUpQuestion:   followUp,
	}

	// Flow completes unconditionally after the combined response.
	if err := f.stateManager.ResetState(ctx, convID, models.FlowTypeRecovery); err != nil {
		slog.Error("RecoveryFlow.respond: reset after response failed", "error", err, "conversationID", convID)
	}

	if err := plan.Validate(); err != nil {
		slog.Error("RecoveryFlow.respond: invalid plan", "error", err, "conversationID", convID)
		return models.ResponsePlan{}, false, err
	}
	slog.Info("RecoveryFlow.respond: combined response emitted", "conversationID", convID, "kind", kind, "keywords", len(keywords), "sources", len(sources))
	return plan, true, nil
}

func (f *RecoveryFlow) setState(ctx context.Context, conversationID string, state models.StateType) {
	if err := f.stateManager.SetCurrentState(ctx, conversationID, models.FlowTypeRecovery, state); err != nil {
		slog.Error("RecoveryFlow.setState: failed", "error", err, "conversationID", conversationID, "state", state)
	}
}

func (f *RecoveryFlow) saveReportedInput(ctx context.Context, conversationID string, kind models.InputKind, topic string) {
	if err := f.stateManager.SetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyInputKind, string(kind)); err != nil {
		slog.Error("RecoveryFlow.saveReportedInput: kind save failed", "error", err, "conversationID", conversationID)
	}
	if err := f.stateManager.SetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyReportedInput, topic); err != nil {
		slog.Error("RecoveryFlow.saveReportedInput: topic save failed", "error", err, "conversationID", conversationID)
	}
}

func (f *RecoveryFlow) saveBucket(ctx context.Context, conversationID string, bucket models.IntentBucket) {
	if err := f.stateManager.SetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyIntentBucket, string(bucket)); err != nil {
		slog.Error("RecoveryFlow.saveBucket: save failed", "error", err, "conversationID", conversationID)
	}
}
