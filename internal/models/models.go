// Package models defines the core data structures for the support policy engine.
//
// It includes signal sets, escalation decisions, response plans and the output
// envelope, which are shared across modules.
package models

import (
	"errors"
)

// AlertReason is one of the fixed operator-facing escalation categories.
type AlertReason string

const (
	// AlertReasonNone indicates no escalation for the turn.
	AlertReasonNone AlertReason = ""
	// AlertReasonServiceMalfunction flags a reported malfunction or technical error.
	AlertReasonServiceMalfunction AlertReason = "Service malfunction or technical error."
	// AlertReasonUserFrustration flags detected frustration or dissatisfaction.
	AlertReasonUserFrustration AlertReason = "User frustration or dissatisfaction detected."
	// AlertReasonSensitiveTopic flags payment, privacy or security topics.
	AlertReasonSensitiveTopic AlertReason = "Sensitive or security-related topic."
	// AlertReasonLowConfidence flags an uncertain answer.
	AlertReasonLowConfidence AlertReason = "Low confidence or uncertain answer."
	// AlertReasonHumanRequest flags an explicit request for human support.
	AlertReasonHumanRequest AlertReason = "User explicitly requested human support."
)

// IsValidAlertReason checks if the given reason is one of the fixed categories.
func IsValidAlertReason(r AlertReason) bool {
	switch r {
	case AlertReasonNone, AlertReasonServiceMalfunction, AlertReasonUserFrustration,
		AlertReasonSensitiveTopic, AlertReasonLowConfidence, AlertReasonHumanRequest:
		return true
	default:
		return false
	}
}

// Confidence constants used across the extractor and evaluator.
const (
	// NeutralConfidence is assigned when nothing useful could be classified
	// but the input itself was unremarkable (e.g. empty).
	NeutralConfidence = 0.5
	// DegradedConfidence is assigned when classification itself failed, so
	// the low-confidence escalation path fires.
	DegradedConfidence = 0.2
	// LowConfidenceThreshold is the evaluator's alert boundary.
	LowConfidenceThreshold = 0.3
)

// SignalSet holds the derived facts about a single turn. It is always fully
// populated; absence of a signal is an explicit false, never a missing field.
type SignalSet struct {
	MalfunctionReported    bool    `json:"malfunction_reported"`
	FrustrationDetected    bool    `json:"frustration_detected"`
	SensitiveTopicDetected bool    `json:"sensitive_topic_detected"`
	ExplicitHumanRequest   bool    `json:"explicit_human_request"`
	LowConfidence          bool    `json:"low_confidence"`
	ConfidenceScore        float64 `json:"confidence_score"` // 0.0–1.0
	IsShortAffirmation     bool    `json:"is_short_affirmation"`
	IsShortRejection       bool    `json:"is_short_rejection"`
	IsURLLike              bool    `json:"is_url_like"`
}

// NeutralSignalSet returns the all-false set with a neutral confidence score.
func NeutralSignalSet() SignalSet {
	return SignalSet{ConfidenceScore: NeutralConfidence}
}

// DegradedSignalSet returns the all-false set with confidence lowered enough
// to trigger the low-confidence escalation path.
func DegradedSignalSet() SignalSet {
	return SignalSet{LowConfidence: true, ConfidenceScore: DegradedConfidence}
}

// EscalationDecision is the alert triple for a turn. It is immutable once
// produced; callers must not edit it retroactively.
type EscalationDecision struct {
	Flag       bool        `json:"flag"`
	Reason     AlertReason `json:"reason"`
	Confidence float64     `json:"confidence"`
}

// ReasonOrNil returns the reason as a pointer for the wire envelope, where
// "no escalation" is rendered as JSON null rather than an empty string.
func (d EscalationDecision) ReasonOrNil() *string {
	if d.Reason == AlertReasonNone {
		return nil
	}
	s := string(d.Reason)
	return &s
}

// Envelope is the sole outbound payload per turn.
type Envelope struct {
	ReplyText   string  `json:"reply_text"`
	AlertFlag   bool    `json:"alert_flag"`
	AlertReason *string `json:"alert_reason"`
	Confidence  float64 `json:"confidence"`
}

// Turn represents one inbound message after locale detection.
type Turn struct {
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	Locale         string    `json:"locale"` // BCP-47 tag, e.g. "en", "fa"
	Signals        SignalSet `json:"signals"`
}

// Validation constants for response plans.
const (
	// MinKeywordSuggestions is the lower bound when keyword suggestions are present.
	MinKeywordSuggestions = 3
	// MaxKeywordSuggestions is the upper bound for keyword suggestions.
	MaxKeywordSuggestions = 5
	// MinSourceSuggestions is the lower bound when source suggestions are present.
	MinSourceSuggestions = 1
	// MaxSourceSuggestions is the upper bound for source suggestions.
	MaxSourceSuggestions = 3
)

// Error variables for better error handling and testability.
var (
	ErrEmptyConversationID    = errors.New("conversation id cannot be empty")
	ErrClarifyingNotExclusive = errors.New("clarifying question must be the entire content of the turn")
	ErrKeywordSuggestionCount = errors.New("keyword suggestion count out of range")
	ErrSourceSuggestionCount  = errors.New("source suggestion count out of range")
	ErrEmptySuggestionText    = errors.New("suggestion text cannot be empty")
	ErrMissingRationale       = errors.New("suggestion rationale is required")
	ErrUnknownFlowState       = errors.New("unrecognized recovery flow state")
	ErrEmptyAckText           = errors.New("response plan requires acknowledgment text")
)
