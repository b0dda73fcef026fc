package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/xminit/supportcore/internal/models"
	"github.com/xminit/supportcore/internal/suggest"
)

// MockStateManager is an in-memory StateManager for flow tests.
type MockStateManager struct {
	states map[string]models.StateType
	data   map[string]map[models.DataKey]string
}

func NewMockStateManager() *MockStateManager {
	return &MockStateManager{
		states: make(map[string]models.StateType),
		data:   make(map[string]map[models.DataKey]string),
	}
}

func stateKey(conversationID string, flowType models.FlowType) string {
	return conversationID + "|" + string(flowType)
}

func (m *MockStateManager) GetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType) (models.StateType, error) {
	return m.states[stateKey(conversationID, flowType)], nil
}

func (m *MockStateManager) SetCurrentState(ctx context.Context, conversationID string, flowType models.FlowType, state models.StateType) error {
	m.states[stateKey(conversationID, flowType)] = state
	return nil
}

func (m *MockStateManager) GetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey) (string, error) {
	return m.data[stateKey(conversationID, flowType)][key], nil
}

func (m *MockStateManager) SetStateData(ctx context.Context, conversationID string, flowType models.FlowType, key models.DataKey, value string) error {
	k := stateKey(conversationID, flowType)
	if m.data[k] == nil {
		m.data[k] = make(map[models.DataKey]string)
	}
	m.data[k][key] = value
	return nil
}

func (m *MockStateManager) TransitionState(ctx context.Context, conversationID string, flowType models.FlowType, fromState, toState models.StateType) error {
	return m.SetCurrentState(ctx, conversationID, flowType, toState)
}

func (m *MockStateManager) ResetState(ctx context.Context, conversationID string, flowType models.FlowType) error {
	delete(m.states, stateKey(conversationID, flowType))
	delete(m.data, stateKey(conversationID, flowType))
	return nil
}

func newTestFlow() (*RecoveryFlow, *MockStateManager) {
	sm := NewMockStateManager()
	gen := suggest.NewGenerator(nil, 0)
	return NewRecoveryFlow(sm, gen), sm
}

func turn(convID, text string, sig models.SignalSet) models.Turn {
	return models.Turn{ConversationID: convID, Text: text, Locale: "en", Signals: sig}
}

func TestRecoveryIgnoresUnrelatedMessages(t *testing.T) {
	f, sm := newTestFlow()
	plan, handled, err := f.ProcessTurn(context.Background(), turn("c1", "how do I rename a tracker?", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatalf("unrelated message should not be handled, got plan %+v", plan)
	}
	if st, _ := sm.GetCurrentState(context.Background(), "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("flow state should stay empty, got %q", st)
	}
}

func TestRecoveryAsksClarifyingQuestionWhenGoalUnknown(t *testing.T) {
	f, sm := newTestFlow()
	plan, handled, err := f.ProcessTurn(context.Background(),
		turn("c1", `I added "quantum sensors" but got no results`, models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("complaint should be handled")
	}
	if !plan.IsClarifying() {
		t.Fatalf("expected a clarifying-only turn, got %+v", plan)
	}
	if plan.KeywordSuggestions != nil || plan.SourceSuggestions != nil || plan.Diagnosis != nil {
		t.Errorf("clarifying turn must carry no suggestions or diagnosis: %+v", plan)
	}

	st, _ := sm.GetCurrentState(context.Background(), "c1", models.FlowTypeRecovery)
	if st != models.StateAwaitingIntent {
		t.Errorf("state = %q, want %q", st, models.StateAwaitingIntent)
	}
	topic, _ := sm.GetStateData(context.Background(), "c1", models.FlowTypeRecovery, models.DataKeyReportedInput)
	if topic != "quantum sensors" {
		t.Errorf("stored topic = %q, want %q", topic, "quantum sensors")
	}
}

func TestRecoveryAnswerToClarifyingQuestionYieldsCombinedResponse(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	if _, _, err := f.ProcessTurn(ctx, turn("c1", `I added "quantum sensors" but got no results`, models.NeutralSignalSet())); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	plan, handled, err := f.ProcessTurn(ctx, turn("c1", "mostly research papers", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !handled {
		t.Fatal("intent answer should be handled")
	}
	if plan.IsClarifying() {
		t.Fatalf("expected a combined response, got clarifying turn %+v", plan)
	}
	if plan.Diagnosis == nil {
		t.Fatal("combined response must include a diagnosis")
	}
	if n := len(plan.KeywordSuggestions); n < models.MinKeywordSuggestions || n > models.MaxKeywordSuggestions {
		t.Errorf("keyword suggestions count %d out of range", n)
	}
	if plan.FollowUpQuestion == "" {
		t.Error("combined response must end with a follow-up question")
	}

	// Flow resets unconditionally after responding.
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("state after response = %q, want cleared", st)
	}
}

func TestRecoveryURLComplaintRespondsInOneTurn(t *testing.T) {
	f, sm := newTestFlow()
	sig := models.NeutralSignalSet()
	sig.IsURLLike = true

	plan, handled, err := f.ProcessTurn(context.Background(),
		turn("c1", "https://example.com gives no updates", sig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("URL complaint should be handled")
	}
	if plan.IsClarifying() {
		t.Fatalf("URL complaint must skip the intent gate, got %+v", plan)
	}
	if plan.Diagnosis == nil || plan.Diagnosis.ReasonCode != models.ReasonLinkNeedsDiscovery {
		t.Errorf("expected link-needs-discovery diagnosis, got %+v", plan.Diagnosis)
	}
	for _, k := range plan.KeywordSuggestions {
		if !strings.HasPrefix(k.Text, "https://example.com/") {
			t.Errorf("endpoint pattern %q not rooted at the reported site", k.Text)
		}
	}
	if st, _ := sm.GetCurrentState(context.Background(), "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("state after response = %q, want cleared", st)
	}
}

func TestRecoveryStatedGoalSkipsIntentGate(t *testing.T) {
	f, _ := newTestFlow()
	plan, handled, err := f.ProcessTurn(context.Background(),
		turn("c1", `no results for "solar panels", I want business coverage`, models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled || plan.IsClarifying() {
		t.Fatalf("stated goal should yield a combined response in one turn, got handled=%v plan=%+v", handled, plan)
	}
}

func TestRecoveryShortAffirmationProceedsWithOpenGoal(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	if _, _, err := f.ProcessTurn(ctx, turn("c1", `added "city cycling" but nothing came`, models.NeutralSignalSet())); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	sig := models.NeutralSignalSet()
	sig.IsShortAffirmation = true
	plan, handled, err := f.ProcessTurn(ctx, turn("c1", "yes", sig))
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !handled || plan.IsClarifying() {
		t.Fatalf("affirmation should unblock the combined response, got handled=%v plan=%+v", handled, plan)
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("state after response = %q, want cleared", st)
	}
}

func TestRecoveryAffirmationWithoutKeywordAsksForIt(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	// The opening complaint names no keyword at all.
	first, handled, err := f.ProcessTurn(ctx, turn("c1", "nothing new shows up", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if !handled || !first.IsClarifying() {
		t.Fatalf("topicless complaint should ask the goal question, got handled=%v plan=%+v", handled, first)
	}

	sig := models.NeutralSignalSet()
	sig.IsShortAffirmation = true
	second, handled, err := f.ProcessTurn(ctx, turn("c1", "yes", sig))
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !handled || !second.IsClarifying() {
		t.Fatalf("affirmation with no stored keyword should ask for one, got handled=%v plan=%+v", handled, second)
	}
	if second.ClarifyingQuestion == first.ClarifyingQuestion {
		t.Error("follow-up question should ask for the keyword, not repeat the goal question")
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != models.StateAwaitingIntent {
		t.Errorf("state = %q, want still awaiting intent", st)
	}

	third, handled, err := f.ProcessTurn(ctx, turn("c1", "quantum sensors", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("third turn: %v", err)
	}
	if !handled || third.IsClarifying() {
		t.Fatalf("keyword answer should yield the combined response, got handled=%v plan=%+v", handled, third)
	}
	for _, k := range third.KeywordSuggestions {
		if strings.Contains(strings.ToLower(k.Text), "yes") {
			t.Errorf("affirmation word leaked into suggestion %q", k.Text)
		}
		if !strings.Contains(k.Text, "quantum") {
			t.Errorf("suggestion %q not built from the named keyword", k.Text)
		}
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("state after response = %q, want cleared", st)
	}
}

func TestRecoveryAmbiguousAnswerReasksWithoutRestating(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	first, _, err := f.ProcessTurn(ctx, turn("c1", `added "city cycling" but nothing came`, models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}

	plan, handled, err := f.ProcessTurn(ctx, turn("c1", "hmm whatever works", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !handled || !plan.IsClarifying() {
		t.Fatalf("ambiguous answer should re-ask, got handled=%v plan=%+v", handled, plan)
	}
	if plan.ClarifyingQuestion == first.ClarifyingQuestion {
		t.Error("re-ask should use shorter phrasing, not repeat the original question")
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != models.StateAwaitingIntent {
		t.Errorf("state = %q, want still awaiting intent", st)
	}
}

func TestRecoveryRejectionClearsFlow(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	if _, _, err := f.ProcessTurn(ctx, turn("c1", `added "city cycling" but nothing came`, models.NeutralSignalSet())); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	sig := models.NeutralSignalSet()
	sig.IsShortRejection = true
	_, handled, err := f.ProcessTurn(ctx, turn("c1", "no, forget it", sig))
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if handled {
		t.Error("rejection should hand the turn back to the general path")
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("state = %q, want cleared", st)
	}
}

func TestRecoveryCorruptedStateResets(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()
	if err := sm.SetCurrentState(ctx, "c1", models.FlowTypeRecovery, models.StateType("GARBAGE")); err != nil {
		t.Fatal(err)
	}

	_, handled, err := f.ProcessTurn(ctx, turn("c1", "how do I rename a tracker?", models.NeutralSignalSet()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Error("after corruption reset an unrelated message is not handled")
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != "" {
		t.Errorf("corrupted state should be cleared, got %q", st)
	}
}

func TestRecoveryResetIdempotent(t *testing.T) {
	sm := NewMockStateManager()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := sm.ResetState(ctx, "c1", models.FlowTypeRecovery); err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
	}
}

func TestRecoveryConversationsAreIndependent(t *testing.T) {
	f, sm := newTestFlow()
	ctx := context.Background()

	if _, _, err := f.ProcessTurn(ctx, turn("c1", `added "city cycling" but nothing came`, models.NeutralSignalSet())); err != nil {
		t.Fatal(err)
	}
	_, handled, err := f.ProcessTurn(ctx, turn("c2", "mostly research papers", models.NeutralSignalSet()))
	if err != nil {
		t.Fatal(err)
	}
	if handled {
		t.Error("a different conversation must not see c1's pending question")
	}
	if st, _ := sm.GetCurrentState(ctx, "c1", models.FlowTypeRecovery); st != models.StateAwaitingIntent {
		t.Errorf("c1 state = %q, want awaiting intent", st)
	}
}
