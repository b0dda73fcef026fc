package signals

import (
	"context"
	"errors"
	"testing"

	"github.com/xminit/supportcore/internal/models"
)

func extract(t *testing.T, text string) models.SignalSet {
	t.Helper()
	set, err := NewPatternExtractor().Extract(context.Background(), text, "en")
	if err != nil {
		t.Fatalf("extractor must not fail, got %v", err)
	}
	return set
}

func TestExtractEmptyInputIsNeutral(t *testing.T) {
	set := extract(t, "")
	if set != models.NeutralSignalSet() {
		t.Errorf("empty input must yield the neutral set, got %+v", set)
	}
}

func TestExtractSymbolsOnlyDegrades(t *testing.T) {
	set := extract(t, "???!!! ***")
	if !set.LowConfidence {
		t.Error("unclassifiable input must carry the low-confidence flag")
	}
	if set.ConfidenceScore >= models.LowConfidenceThreshold {
		t.Errorf("unclassifiable input confidence %v must fall below %v", set.ConfidenceScore, models.LowConfidenceThreshold)
	}
}

func TestExtractMalfunction(t *testing.T) {
	for _, msg := range []string{
		"the bot crashed again",
		"feeds stopped working since yesterday",
		"I keep getting an error",
		"ربات خراب شده",
	} {
		if !extract(t, msg).MalfunctionReported {
			t.Errorf("expected malfunction signal for %q", msg)
		}
	}
}

func TestExtractFrustrationAndHumanRequest(t *testing.T) {
	set := extract(t, "this is useless, talk to a human")
	if !set.FrustrationDetected {
		t.Error("expected frustration signal")
	}
	if !set.ExplicitHumanRequest {
		t.Error("expected explicit human request signal")
	}
}

func TestExtractSensitiveTopic(t *testing.T) {
	for _, msg := range []string{
		"I was charged twice, I want a refund",
		"is my personal data safe?",
		"مشکل پرداخت دارم",
	} {
		if !extract(t, msg).SensitiveTopicDetected {
			t.Errorf("expected sensitive-topic signal for %q", msg)
		}
	}
}

func TestExtractURLLike(t *testing.T) {
	for _, msg := range []string{
		"https://example.com gives no updates",
		"I added blog.example.org but nothing comes in",
	} {
		if !extract(t, msg).IsURLLike {
			t.Errorf("expected url-like signal for %q", msg)
		}
	}
	if extract(t, "quantum sensors").IsURLLike {
		t.Error("plain keyword must not read as url-like")
	}
}

func TestFirstURLToken(t *testing.T) {
	if got := FirstURLToken("check https://example.com/feed please"); got != "https://example.com/feed" {
		t.Errorf("unexpected token %q", got)
	}
	if got := FirstURLToken("added news.example.org yesterday"); got != "news.example.org" {
		t.Errorf("unexpected token %q", got)
	}
	if got := FirstURLToken("no links here"); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}

func TestExtractShortAffirmation(t *testing.T) {
	for _, msg := range []string{"yes", "Yes!", "ok", "بله", "آره"} {
		if !extract(t, msg).IsShortAffirmation {
			t.Errorf("expected affirmation for %q", msg)
		}
	}
	if extract(t, "yes but only about the payment issue please").IsShortAffirmation {
		t.Error("long sentences are not short affirmations")
	}
}

func TestExtractShortRejection(t *testing.T) {
	for _, msg := range []string{"no", "نه"} {
		if !extract(t, msg).IsShortRejection {
			t.Errorf("expected rejection for %q", msg)
		}
	}
}

func TestScriptDetector(t *testing.T) {
	d := NewScriptDetector("en")
	if got := d.Detect("سلام، فیدها کار نمی‌کنند", ""); got != "fa" {
		t.Errorf("expected fa, got %q", got)
	}
	if got := d.Detect("my keyword has no results", ""); got != "en" {
		t.Errorf("expected en, got %q", got)
	}
	if got := d.Detect("whatever text", "fa-IR"); got != "fa" {
		t.Errorf("hint must win and normalize, got %q", got)
	}
	if got := d.Detect("", ""); got != "en" {
		t.Errorf("empty input must fall back to default, got %q", got)
	}
}

// mockGenAIClient implements genai.ClientInterface for extractor tests.
type mockGenAIClient struct {
	response string
	err      error
}

func (m *mockGenAIClient) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.response, m.err
}

func TestGenAIExtractorParsesModelOutput(t *testing.T) {
	client := &mockGenAIClient{response: `{"malfunction_reported":true,"confidence_score":0.85}`}
	e := NewGenAIExtractor(client, NewPatternExtractor())

	set, err := e.Extract(context.Background(), "something is off", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.MalfunctionReported {
		t.Error("expected malfunction from model output")
	}
	if set.ConfidenceScore != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", set.ConfidenceScore)
	}
}

func TestGenAIExtractorFallsBackOnError(t *testing.T) {
	client := &mockGenAIClient{err: errors.New("model down")}
	e := NewGenAIExtractor(client, NewPatternExtractor())

	set, err := e.Extract(context.Background(), "this is useless, talk to a human", "en")
	if err != nil {
		t.Fatalf("extraction failure must be recovered, got %v", err)
	}
	if !set.ExplicitHumanRequest {
		t.Error("fallback extractor should still classify the message")
	}
}

func TestGenAIExtractorDegradesWithoutFallback(t *testing.T) {
	client := &mockGenAIClient{response: "not json at all"}
	e := NewGenAIExtractor(client, nil)

	set, err := e.Extract(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("extraction failure must be recovered, got %v", err)
	}
	if !set.LowConfidence {
		t.Error("unrecoverable extraction must degrade to the low-confidence set")
	}
}
