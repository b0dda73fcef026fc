// Package models defines response plan structures for the guided recovery flow.
package models

// InputKind classifies what the user reported as producing no results.
type InputKind string

const (
	// InputKindKeyword is a plain keyword or phrase.
	InputKindKeyword InputKind = "keyword"
	// InputKindURL is a URL-shaped input (has a scheme or domain-like token).
	InputKindURL InputKind = "url"
)

// ReasonCode explains why a keyword or URL plausibly produced zero matches.
type ReasonCode string

const (
	// ReasonTooNarrow means the keyword is over-qualified for the corpus.
	ReasonTooNarrow ReasonCode = "too_narrow"
	// ReasonTooAmbiguous means the keyword matches too many unrelated senses.
	ReasonTooAmbiguous ReasonCode = "too_ambiguous"
	// ReasonNoRecentActivity means the topic simply had nothing new.
	ReasonNoRecentActivity ReasonCode = "no_recent_activity"
	// ReasonLinkNeedsDiscovery means the site needs feed endpoint discovery.
	ReasonLinkNeedsDiscovery ReasonCode = "link_needs_discovery"
)

// IntentBucket is the content-type goal the clarifying question asks about.
type IntentBucket string

const (
	BucketNews      IntentBucket = "news"
	BucketTutorials IntentBucket = "tutorials"
	BucketResearch  IntentBucket = "research"
	BucketBusiness  IntentBucket = "business"
	BucketProduct   IntentBucket = "product"
	BucketLocal     IntentBucket = "local"
	BucketOther     IntentBucket = "other"
	// BucketUnknown means the goal is still ambiguous or unstated.
	BucketUnknown IntentBucket = ""
)

// SourceCategory buckets recommended sources for the diversity constraint.
type SourceCategory string

const (
	CategoryMainstream    SourceCategory = "mainstream"
	CategoryNiche         SourceCategory = "niche"
	CategoryInstitutional SourceCategory = "institutional"
)

// Diagnosis explains why the reported input produced zero matches.
type Diagnosis struct {
	InputKind   InputKind  `json:"input_kind"`
	ReasonCode  ReasonCode `json:"reason_code"`
	Explanation string     `json:"explanation"` // at most two sentences
}

// KeywordSuggestion is one alternative keyword with the strategy behind it.
type KeywordSuggestion struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale"` // one line
}

// SourceSuggestion is one candidate source link with its justification.
type SourceSuggestion struct {
	Link          string `json:"link"`
	Justification string `json:"justification"` // one line
}

// ResponsePlan is the structured, turn-ordered reply before rendering.
//
// A clarifying turn is exclusive: when ClarifyingQuestion is set, every other
// optional field must be empty.
type ResponsePlan struct {
	AckText            string              `json:"ack_text"`
	ClarifyingQuestion string              `json:"clarifying_question,omitempty"`
	Diagnosis          *Diagnosis          `json:"diagnosis,omitempty"`
	KeywordSuggestions []KeywordSuggestion `json:"keyword_suggestions,omitempty"`
	SourceSuggestions  []SourceSuggestion  `json:"source_suggestions,omitempty"`
	FollowUpQuestion   string              `json:"follow_up_question,omitempty"`
}

// IsClarifying reports whether this plan is a clarifying turn.
func (p *ResponsePlan) IsClarifying() bool {
	return p.ClarifyingQuestion != ""
}

// Validate performs structural validation on a ResponsePlan.
func (p *ResponsePlan) Validate() error {
	if p.AckText == "" {
		return ErrEmptyAckText
	}

	if p.ClarifyingQuestion != "" {
		if p.Diagnosis != nil || len(p.KeywordSuggestions) > 0 ||
			len(p.SourceSuggestions) > 0 || p.FollowUpQuestion != "" {
			return ErrClarifyingNotExclusive
		}
		return nil
	}

	if len(p.KeywordSuggestions) > 0 {
		if len(p.KeywordSuggestions) < MinKeywordSuggestions || len(p.KeywordSuggestions) > MaxKeywordSuggestions {
			return ErrKeywordSuggestionCount
		}
		for _, s := range p.KeywordSuggestions {
			if s.Text == "" {
				return ErrEmptySuggestionText
			}
			if s.Rationale == "" {
				return ErrMissingRationale
			}
		}
	}

	if len(p.SourceSuggestions) > MaxSourceSuggestions {
		return ErrSourceSuggestionCount
	}
	for _, s := range p.SourceSuggestions {
		if s.Link == "" {
			return ErrEmptySuggestionText
		}
		if s.Justification == "" {
			return ErrMissingRationale
		}
	}

	return nil
}
