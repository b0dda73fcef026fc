package signals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xminit/supportcore/internal/genai"
	"github.com/xminit/supportcore/internal/models"
)

// genaiSystemPrompt instructs the model to emit exactly the SignalSet shape.
const genaiSystemPrompt = `You classify one support-chat message into boolean signals.
Reply with a single JSON object and nothing else:
{"malfunction_reported":bool,"frustration_detected":bool,"sensitive_topic_detected":bool,
"explicit_human_request":bool,"is_short_affirmation":bool,"is_short_rejection":bool,
"is_url_like":bool,"confidence_score":number}
confidence_score is your certainty in this classification, 0.0-1.0.
The message may be in any language, including Persian.`

// GenAIExtractor delegates signal extraction to a hosted model, falling back
// to the pattern extractor when the model call or its output parsing fails.
// With no fallback configured, failure degrades to the low-confidence set.
type GenAIExtractor struct {
	client   genai.ClientInterface
	fallback Extractor
}

// NewGenAIExtractor creates a model-backed extractor with a local fallback.
func NewGenAIExtractor(client genai.ClientInterface, fallback Extractor) *GenAIExtractor {
	return &GenAIExtractor{client: client, fallback: fallback}
}

// Extract implements Extractor.
func (e *GenAIExtractor) Extract(ctx context.Context, text, locale string) (models.SignalSet, error) {
	if text == "" {
		return models.NeutralSignalSet(), nil
	}
	if e.client == nil {
		return e.recover(ctx, text, locale, fmt.Errorf("genai client not configured"))
	}

	userPrompt := fmt.Sprintf("Message locale: %s\nMessage:\n%s", locale, text)
	raw, err := e.client.GeneratePrompt(ctx, genaiSystemPrompt, userPrompt)
	if err != nil {
		return e.recover(ctx, text, locale, err)
	}

	var set models.SignalSet
	if err := genai.UnmarshalLenientJSON(raw, &set); err != nil {
		return e.recover(ctx, text, locale, err)
	}
	if set.ConfidenceScore <= 0 || set.ConfidenceScore > 1 {
		set.ConfidenceScore = models.NeutralConfidence
	}
	set.LowConfidence = set.ConfidenceScore < models.LowConfidenceThreshold
	slog.Debug("GenAIExtractor.Extract: model classification accepted", "confidence", set.ConfidenceScore)
	return set, nil
}

// recover handles extraction failure locally; it never surfaces an error.
func (e *GenAIExtractor) recover(ctx context.Context, text, locale string, cause error) (models.SignalSet, error) {
	slog.Warn("GenAIExtractor.Extract: extraction failed, recovering locally", "error", cause)
	if e.fallback != nil {
		return e.fallback.Extract(ctx, text, locale)
	}
	return models.DegradedSignalSet(), nil
}
