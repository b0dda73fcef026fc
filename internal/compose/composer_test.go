package compose

import (
	"strings"
	"testing"

	"github.com/xminit/supportcore/internal/models"
)

func respondingPlan() models.ResponsePlan {
	return models.ResponsePlan{
		AckText: "I looked into it and lined up some alternatives.",
		Diagnosis: &models.Diagnosis{
			ReasonCode:  models.ReasonTooNarrow,
			Explanation: "The phrase is very specific, so few items carry it verbatim.",
		},
		KeywordSuggestions: []models.KeywordSuggestion{
			{Text: "quantum", Rationale: "broadened: dropped the qualifier"},
			{Text: "quantum sensing", Rationale: "synonym substitution"},
			{Text: "quantum sensors news", Rationale: "goal compound"},
		},
		SourceSuggestions: []models.SourceSuggestion{
			{Link: "https://a.example", Justification: "covers the field weekly"},
		},
		FollowUpQuestion: `Shall I switch your tracker to "quantum" to start with?`,
	}
}

func noDecision() models.EscalationDecision {
	return models.EscalationDecision{Flag: false, Reason: models.AlertReasonNone, Confidence: 0.8}
}

func TestComposeClarifyingTurnIsQuestionOnly(t *testing.T) {
	c := NewComposer()
	plan := models.ResponsePlan{
		AckText:            "Got it, that one hasn't returned anything yet.",
		ClarifyingQuestion: "What kind of content are you after?",
	}
	env, err := c.Compose(plan, noDecision(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(env.ReplyText, plan.ClarifyingQuestion) {
		t.Errorf("reply missing the question: %q", env.ReplyText)
	}
	if strings.Contains(env.ReplyText, "Worth trying") {
		t.Errorf("clarifying reply must not contain suggestion sections: %q", env.ReplyText)
	}
}

func TestComposeRespondingTurnOrdering(t *testing.T) {
	c := NewComposer()
	env, err := c.Compose(respondingPlan(), noDecision(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := env.ReplyText

	diagIdx := strings.Index(text, "Why it's empty")
	kwIdx := strings.Index(text, "Worth trying")
	srcIdx := strings.Index(text, "Places that cover this")
	fuIdx := strings.Index(text, "Shall I switch")
	if diagIdx < 0 || kwIdx < 0 || srcIdx < 0 || fuIdx < 0 {
		t.Fatalf("missing sections in reply:\n%s", text)
	}
	if !(diagIdx < kwIdx && kwIdx < srcIdx && srcIdx < fuIdx) {
		t.Errorf("sections out of order:\n%s", text)
	}
}

func TestComposeAttachesDecision(t *testing.T) {
	c := NewComposer()
	decision := models.EscalationDecision{Flag: true, Reason: models.AlertReasonUserFrustration, Confidence: 0.9}
	env, err := c.Compose(respondingPlan(), decision, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !env.AlertFlag {
		t.Error("alert flag lost in composition")
	}
	if env.AlertReason == nil || *env.AlertReason != string(models.AlertReasonUserFrustration) {
		t.Errorf("alert reason = %v, want %q", env.AlertReason, models.AlertReasonUserFrustration)
	}
	if env.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", env.Confidence)
	}
}

func TestComposeNoSourcesStatesDegradation(t *testing.T) {
	c := NewComposer()
	plan := respondingPlan()
	plan.SourceSuggestions = nil
	env, err := c.Compose(plan, noDecision(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(env.ReplyText, "couldn't verify any sources") {
		t.Errorf("degraded reply should say sources were unavailable:\n%s", env.ReplyText)
	}
}

func TestComposePersianLabels(t *testing.T) {
	c := NewComposer()
	plan := respondingPlan()
	env, err := c.Compose(plan, noDecision(), "fa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(env.ReplyText, "چرا خالی است") {
		t.Errorf("Persian reply missing localized heading:\n%s", env.ReplyText)
	}
}

func TestComposeRejectsInvalidPlan(t *testing.T) {
	c := NewComposer()
	plan := respondingPlan()
	plan.ClarifyingQuestion = "and also, what do you want?"
	if _, err := c.Compose(plan, noDecision(), "en"); err == nil {
		t.Error("mixed clarifying and suggestions should be rejected")
	}
}

func TestValidateReplyLinkOnce(t *testing.T) {
	plan := models.ResponsePlan{
		SourceSuggestions: []models.SourceSuggestion{{Link: "https://a.example", Justification: "j"}},
	}
	if err := ValidateReply("see https://a.example and again https://a.example", plan); err != ErrLinkRepeated {
		t.Errorf("expected ErrLinkRepeated, got %v", err)
	}
	if err := ValidateReply("see https://a.example once", plan); err != nil {
		t.Errorf("single mention should pass, got %v", err)
	}
}

func TestValidateReplyPrefixLinksDoNotCollide(t *testing.T) {
	plan := models.ResponsePlan{
		KeywordSuggestions: []models.KeywordSuggestion{
			{Text: "https://example.com/feed", Rationale: "r"},
			{Text: "https://example.com/feed.xml", Rationale: "r"},
		},
	}
	text := "- https://example.com/feed\n- https://example.com/feed.xml"
	if err := ValidateReply(text, plan); err != nil {
		t.Errorf("prefix link must not count as a repeat, got %v", err)
	}
}

func TestValidateReplyRejectsSeparators(t *testing.T) {
	if err := ValidateReply("above\n-----\nbelow", models.ResponsePlan{}); err != ErrDecorativeSeparator {
		t.Errorf("expected ErrDecorativeSeparator, got %v", err)
	}
	if err := ValidateReply("a normal - dash in text", models.ResponsePlan{}); err != nil {
		t.Errorf("inline dash should pass, got %v", err)
	}
}

func TestValidateReplyRejectsInternalNames(t *testing.T) {
	if err := ValidateReply("our KnowledgeSource returned nothing", models.ResponsePlan{}); err != ErrInternalNameLeaked {
		t.Errorf("expected ErrInternalNameLeaked, got %v", err)
	}
}

func TestComposeTextWrapsFreeform(t *testing.T) {
	c := NewComposer()
	decision := models.EscalationDecision{Flag: true, Reason: models.AlertReasonServiceMalfunction, Confidence: 0.95}
	env := c.ComposeText("  Sorry about that, the team is on it.  ", decision)
	if env.ReplyText != "Sorry about that, the team is on it." {
		t.Errorf("text not trimmed: %q", env.ReplyText)
	}
	if !env.AlertFlag || env.AlertReason == nil {
		t.Error("decision not attached")
	}
}
