// Package compose renders a response plan and an escalation decision into the
// outbound reply envelope.
package compose

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xminit/supportcore/internal/models"
)

// sectionLabels are the localized headings used in a combined recovery reply.
type sectionLabels struct {
	whyEmpty  string
	tryThese  string
	sources   string
	noSources string
}

var labelsByLocale = map[string]sectionLabels{
	"en": {
		whyEmpty:  "Why it's empty:",
		tryThese:  "Worth trying:",
		sources:   "Places that cover this:",
		noSources: "I couldn't verify any sources for this right now, but the alternatives above should help.",
	},
	"fa": {
		whyEmpty:  "چرا خالی است:",
		tryThese:  "ارزش امتحان دارد:",
		sources:   "جاهایی که این موضوع را پوشش می‌دهند:",
		noSources: "فعلاً منبع قابل اتکایی برای این موضوع پیدا نکردم، ولی گزینه‌های بالا باید کمک کنند.",
	},
}

func labels(locale string) sectionLabels {
	if l, ok := labelsByLocale[locale]; ok {
		return l
	}
	return labelsByLocale["en"]
}

// Composer renders plans into envelopes.
type Composer struct{}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose renders the plan as reply text and attaches the escalation
// decision. The plan must already be valid; a clarifying plan renders as the
// question alone, a responding plan renders diagnosis, suggestions, sources
// and the follow-up in that order.
func (c *Composer) Compose(plan models.ResponsePlan, decision models.EscalationDecision, locale string) (models.Envelope, error) {
	text, err := c.render(plan, locale)
	if err != nil {
		return models.Envelope{}, err
	}
	if err := ValidateReply(text, plan); err != nil {
		slog.Error("Composer.Compose: rendered reply failed validation", "error", err)
		return models.Envelope{}, err
	}

	env := models.Envelope{
		ReplyText:   text,
		AlertFlag:   decision.Flag,
		AlertReason: decision.ReasonOrNil(),
		Confidence:  decision.Confidence,
	}
	slog.Debug("Composer.Compose: envelope built", "alertFlag", env.AlertFlag, "confidence", env.Confidence, "length", len(text))
	return env, nil
}

// ComposeText wraps free-form reply text (the general, non-recovery path)
// into an envelope with the decision attached.
func (c *Composer) ComposeText(text string, decision models.EscalationDecision) models.Envelope {
	return models.Envelope{
		ReplyText:   strings.TrimSpace(text),
		AlertFlag:   decision.Flag,
		AlertReason: decision.ReasonOrNil(),
		Confidence:  decision.Confidence,
	}
}

func (c *Composer) render(plan models.ResponsePlan, locale string) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(plan.AckText)

	if plan.IsClarifying() {
		b.WriteString(" ")
		b.WriteString(plan.ClarifyingQuestion)
		return strings.TrimSpace(b.String()), nil
	}

	l := labels(locale)

	if plan.Diagnosis != nil {
		b.WriteString("\n\n")
		b.WriteString(l.whyEmpty)
		b.WriteString(" ")
		b.WriteString(plan.Diagnosis.Explanation)
	}

	if len(plan.KeywordSuggestions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(l.tryThese)
		for _, s := range plan.KeywordSuggestions {
			b.WriteString(fmt.Sprintf("\n- %s (%s)", s.Text, s.Rationale))
		}
	}

	if len(plan.SourceSuggestions) > 0 {
		b.WriteString("\n\n")
		b.WriteString(l.sources)
		for _, s := range plan.SourceSuggestions {
			b.WriteString(fmt.Sprintf("\n- %s (%s)", s.Link, s.Justification))
		}
	} else if plan.Diagnosis != nil {
		b.WriteString("\n\n")
		b.WriteString(l.noSources)
	}

	if plan.FollowUpQuestion != "" {
		b.WriteString("\n\n")
		b.WriteString(plan.FollowUpQuestion)
	}

	return strings.TrimSpace(b.String()), nil
}
