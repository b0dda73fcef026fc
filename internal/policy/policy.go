// Package policy implements the alert policy evaluator: a pure, rule-based
// classifier that turns a turn's SignalSet into an escalation decision.
//
// The evaluator holds no state and performs no I/O, so identical signal sets
// always produce identical decisions. Detection of the signals themselves is
// the extractor's job; the rules here only order and surface them.
package policy

import (
	"log/slog"

	"github.com/xminit/supportcore/internal/models"
)

// Evaluate applies the escalation rules in priority order. Only the
// highest-priority matching rule surfaces a reason; the decision's confidence
// always mirrors the extractor's assessed confidence for the turn, not the
// triggering rule.
func Evaluate(signals models.SignalSet) models.EscalationDecision {
	decision := models.EscalationDecision{
		Flag:       false,
		Reason:     models.AlertReasonNone,
		Confidence: clamp(signals.ConfidenceScore),
	}

	switch {
	case signals.MalfunctionReported:
		decision.Flag = true
		decision.Reason = models.AlertReasonServiceMalfunction
	case signals.ExplicitHumanRequest:
		decision.Flag = true
		decision.Reason = models.AlertReasonHumanRequest
	case signals.FrustrationDetected:
		decision.Flag = true
		decision.Reason = models.AlertReasonUserFrustration
	case signals.SensitiveTopicDetected:
		decision.Flag = true
		decision.Reason = models.AlertReasonSensitiveTopic
	case signals.LowConfidence || signals.ConfidenceScore < models.LowConfidenceThreshold:
		decision.Flag = true
		decision.Reason = models.AlertReasonLowConfidence
	}

	if decision.Flag {
		slog.Debug("policy.Evaluate: escalation flagged", "reason", decision.Reason, "confidence", decision.Confidence)
	}
	return decision
}

// clamp bounds a confidence score to [0,1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
