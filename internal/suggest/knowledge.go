// Package suggest produces ranked keyword alternatives, feed-discovery
// endpoint patterns and vetted source candidates for the guided recovery
// flow. Factual source knowledge is delegated to an external capability; the
// generator only filters and bounds what comes back.
package suggest

import (
	"context"

	"github.com/xminit/supportcore/internal/models"
)

// HighConfidenceBar is the minimum knowledge-function confidence for a source
// candidate to be surfaced. Fabricated or unconfirmed sources are forbidden,
// so the bar errs high.
const HighConfidenceBar = 0.75

// SourceCandidate is one candidate link returned by the knowledge function,
// before filtering.
type SourceCandidate struct {
	Link          string                `json:"link"`
	Justification string                `json:"justification"`
	Category      models.SourceCategory `json:"category"`
	Confidence    float64               `json:"confidence"` // 0.0–1.0 topical confidence
}

// KnowledgeSource is the external knowledge function. Implementations own
// their latency; callers bound it with a context deadline and degrade to zero
// sources on failure.
type KnowledgeSource interface {
	// SuggestSources returns up to max candidate sources for the topic,
	// regionally appropriate for the locale unless the topic is inherently
	// international.
	SuggestSources(ctx context.Context, topic string, bucket models.IntentBucket, locale string, max int) ([]SourceCandidate, error)
}

// NoopKnowledgeSource returns no candidates. Used when no knowledge backend
// is configured; the generator then degrades to keyword suggestions only.
type NoopKnowledgeSource struct{}

// SuggestSources implements KnowledgeSource.
func (NoopKnowledgeSource) SuggestSources(ctx context.Context, topic string, bucket models.IntentBucket, locale string, max int) ([]SourceCandidate, error) {
	return nil, nil
}
