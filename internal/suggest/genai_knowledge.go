package suggest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xminit/supportcore/internal/genai"
	"github.com/xminit/supportcore/internal/models"
)

// knowledgeSystemPrompt constrains the model to confirmed, real sources with
// per-candidate confidence, so the generator can enforce the high-confidence
// bar mechanically.
const knowledgeSystemPrompt = `You recommend real, well-known websites that publish content on a topic.
Rules:
- Only include sites you are confident actually exist and cover the topic. Never invent a site.
- Prefer a mix of categories: "mainstream" (large news outlets), "niche" (specialist industry sites), "institutional" (universities, standards bodies, official organizations).
- If the requested locale is not English, prefer sources appropriate for that region unless the topic is inherently international.
- justification: one short line on why the site fits the topic and goal.
- confidence: 0.0-1.0, your certainty the site exists and covers the topic.
Reply with a single JSON object and nothing else:
{"sources":[{"link":"https://...","justification":"...","category":"mainstream|niche|institutional","confidence":0.9}]}`

// GenAIKnowledgeSource implements KnowledgeSource on top of the chat client.
type GenAIKnowledgeSource struct {
	client genai.ClientInterface
}

// NewGenAIKnowledgeSource wraps a chat client as the knowledge function.
func NewGenAIKnowledgeSource(client genai.ClientInterface) *GenAIKnowledgeSource {
	return &GenAIKnowledgeSource{client: client}
}

// SuggestSources implements KnowledgeSource.
func (k *GenAIKnowledgeSource) SuggestSources(ctx context.Context, topic string, bucket models.IntentBucket, locale string, max int) ([]SourceCandidate, error) {
	if k.client == nil {
		return nil, fmt.Errorf("knowledge client not configured")
	}

	userPrompt := fmt.Sprintf("Topic: %s\nGoal: %s\nLocale: %s\nReturn at most %d sources.", topic, bucket, locale, max)
	raw, err := k.client.GeneratePrompt(ctx, knowledgeSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("knowledge lookup failed: %w", err)
	}

	var parsed struct {
		Sources []SourceCandidate `json:"sources"`
	}
	if err := genai.UnmarshalLenientJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("knowledge output unparseable: %w", err)
	}

	out := parsed.Sources
	for i := range out {
		switch out[i].Category {
		case models.CategoryMainstream, models.CategoryNiche, models.CategoryInstitutional:
		default:
			out[i].Category = models.CategoryNiche
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	slog.Debug("GenAIKnowledgeSource.SuggestSources: candidates returned", "topic", topic, "count", len(out))
	return out, nil
}
