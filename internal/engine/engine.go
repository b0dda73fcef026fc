// Package engine runs the per-turn pipeline: signal extraction, alert policy
// evaluation, the recovery flow, and response composition.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xminit/supportcore/internal/compose"
	"github.com/xminit/supportcore/internal/flow"
	"github.com/xminit/supportcore/internal/models"
	"github.com/xminit/supportcore/internal/policy"
	"github.com/xminit/supportcore/internal/signals"
	"github.com/xminit/supportcore/internal/store"
)

// FailureRepeatWindow is how long an identical user-visible failure message
// is suppressed in favor of an alternate phrasing.
const FailureRepeatWindow = 2 * time.Minute

// Responder produces the reply for turns the recovery flow does not handle.
type Responder interface {
	Respond(ctx context.Context, text, locale string, signals models.SignalSet) (string, error)
}

// Engine processes inbound turns one conversation at a time.
type Engine struct {
	extractor    signals.Extractor
	localeDet    signals.LocaleDetector
	recoveryFlow *flow.RecoveryFlow
	stateManager flow.StateManager
	composer     *compose.Composer
	responder    Responder
	store        store.Store

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock serializes turns within one conversation. refs counts the
// turns holding or awaiting the lock so the map entry can be dropped once the
// last one releases it.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// NewEngine wires the pipeline. responder may be nil; canned replies are used
// for general turns then.
func NewEngine(extractor signals.Extractor, localeDet signals.LocaleDetector, recoveryFlow *flow.RecoveryFlow, stateManager flow.StateManager, responder Responder, st store.Store) *Engine {
	slog.Debug("Engine.NewEngine: creating engine", "hasResponder", responder != nil)
	return &Engine{
		extractor:    extractor,
		localeDet:    localeDet,
		recoveryFlow: recoveryFlow,
		stateManager: stateManager,
		composer:     compose.NewComposer(),
		responder:    responder,
		store:        st,
		locks:        make(map[string]*conversationLock),
	}
}

// lockConversation acquires the per-conversation lock and returns the release
// function. The map entry is removed when no turn holds or awaits it, so the
// map does not grow with the number of conversations seen.
func (e *Engine) lockConversation(conversationID string) func() {
	e.mu.Lock()
	l, ok := e.locks[conversationID]
	if !ok {
		l = &conversationLock{}
		e.locks[conversationID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, conversationID)
		}
		e.mu.Unlock()
	}
}

// ProcessTurn handles one inbound message and returns the reply envelope.
// Turns within a conversation are serialized; a failure anywhere degrades to
// an apology envelope rather than an error to the caller.
func (e *Engine) ProcessTurn(ctx context.Context, conversationID, text, localeHint string) (env models.Envelope, err error) {
	if conversationID == "" {
		return models.Envelope{}, models.ErrEmptyConversationID
	}

	unlock := e.lockConversation(conversationID)
	defer unlock()

	locale := e.localeDet.Detect(text, localeHint)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine.ProcessTurn: panic recovered", "panic", r, "conversationID", conversationID)
			env = e.failureEnvelope(ctx, conversationID, text, locale)
			err = nil
		}
	}()

	turnID := uuid.New().String()
	slog.Debug("Engine.ProcessTurn: processing turn", "conversationID", conversationID, "turnID", turnID, "locale", locale)

	sig, extractErr := e.extractor.Extract(ctx, text, locale)
	if extractErr != nil {
		slog.Warn("Engine.ProcessTurn: extraction failed, degrading", "error", extractErr, "conversationID", conversationID)
		sig = models.DegradedSignalSet()
	}

	decision := policy.Evaluate(sig)

	turn := models.Turn{ConversationID: conversationID, Text: text, Locale: locale, Signals: sig}
	plan, handled, flowErr := e.recoveryFlow.ProcessTurn(ctx, turn)

	switch {
	case flowErr != nil:
		slog.Error("Engine.ProcessTurn: recovery flow failed", "error", flowErr, "conversationID", conversationID)
		env = e.failureEnvelope(ctx, conversationID, text, locale)
	case handled:
		composed, composeErr := e.composer.Compose(plan, decision, locale)
		if composeErr != nil {
			slog.Error("Engine.ProcessTurn: composition failed", "error", composeErr, "conversationID", conversationID)
			env = e.failureEnvelope(ctx, conversationID, text, locale)
		} else {
			env = composed
		}
	default:
		env = e.composer.ComposeText(e.generalReply(ctx, text, locale, sig, decision), decision)
	}

	e.recordAlert(conversationID, turnID, text, env)

	slog.Info("Engine.ProcessTurn: turn complete", "conversationID", conversationID, "turnID", turnID, "alertFlag", env.AlertFlag, "confidence", env.Confidence)
	return env, nil
}

// generalReply answers turns outside the recovery flow. The responder is the
// capability boundary; without one, or on failure, the reply falls back to a
// calm canned acknowledgment that never mentions escalation.
func (e *Engine) generalReply(ctx context.Context, text, locale string, sig models.SignalSet, decision models.EscalationDecision) string {
	if e.responder != nil {
		reply, err := e.responder.Respond(ctx, text, locale, sig)
		if err == nil && reply != "" {
			return reply
		}
		if err != nil {
			slog.Warn("Engine.generalReply: responder failed, using canned reply", "error", err)
		}
	}
	return cannedReply(locale, decision.Reason)
}

// recordAlert persists an alert record when the turn is flagged. Persistence
// trouble is logged, never surfaced to the user.
func (e *Engine) recordAlert(conversationID, turnID, text string, env models.Envelope) {
	if !env.AlertFlag || e.store == nil {
		return
	}
	reason := ""
	if env.AlertReason != nil {
		reason = *env.AlertReason
	}
	alert := models.AlertRecord{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		TurnID:         turnID,
		Reason:         reason,
		Confidence:     env.Confidence,
		Message:        excerpt(text, 280),
		ReplyText:      excerpt(env.ReplyText, 280),
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.store.AddAlert(alert); err != nil {
		slog.Error("Engine.recordAlert: failed to persist alert", "error", err, "conversationID", conversationID)
		return
	}
	slog.Info("Engine.recordAlert: alert recorded", "conversationID", conversationID, "reason", reason)
}

// failureEnvelope builds the user-visible failure reply: a short apology, one
// restated understanding and one follow-up question. The same phrasing is not
// repeated within FailureRepeatWindow for a conversation.
func (e *Engine) failureEnvelope(ctx context.Context, conversationID, text, locale string) models.Envelope {
	variants := failureMessages(locale, excerpt(text, 80))

	pick := 0
	lastText, _ := e.stateManager.GetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyLastFailureText)
	lastAtRaw, _ := e.stateManager.GetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyLastFailureAt)
	if lastText == variants[0] && lastAtRaw != "" {
		if lastAt, parseErr := strconv.ParseInt(lastAtRaw, 10, 64); parseErr == nil {
			if time.Since(time.Unix(lastAt, 0)) < FailureRepeatWindow {
				pick = 1
			}
		}
	}
	reply := variants[pick]

	if err := e.stateManager.SetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyLastFailureText, reply); err != nil {
		slog.Debug("Engine.failureEnvelope: failed to remember failure text", "error", err)
	}
	if err := e.stateManager.SetStateData(ctx, conversationID, models.FlowTypeRecovery, models.DataKeyLastFailureAt, fmt.Sprintf("%d", time.Now().Unix())); err != nil {
		slog.Debug("Engine.failureEnvelope: failed to remember failure time", "error", err)
	}

	return models.Envelope{
		ReplyText:   reply,
		AlertFlag:   true,
		AlertReason: models.EscalationDecision{Reason: models.AlertReasonLowConfidence}.ReasonOrNil(),
		Confidence:  models.DegradedConfidence,
	}
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
