package suggest

import (
	"fmt"
	"strings"

	"github.com/xminit/supportcore/internal/models"
)

// genericHeads are single-word topics that match too many unrelated senses to
// diagnose as anything but ambiguity.
var genericHeads = map[string]bool{
	"news": true, "updates": true, "technology": true, "tech": true,
	"business": true, "sports": true, "science": true, "health": true,
	"politics": true, "economy": true, "crypto": true, "ai": true,
	"اخبار": true, "تکنولوژی": true, "فناوری": true, "ورزش": true,
	"اقتصاد": true, "سلامت": true, "علم": true,
}

// ChooseReason picks the single most plausible explanation for zero matches.
//
// Deterministic rubric (an explicit extension point; swap this function to
// change the heuristic without touching the flow controller):
//   - URL-shaped input always gets LinkNeedsDiscovery.
//   - A quoted phrase or a multi-word keyword reads as over-qualified for a
//     keyword-match corpus: TooNarrow.
//   - A single generic head noun matches everything and nothing: TooAmbiguous.
//   - A single specific term most plausibly had no recent coverage:
//     NoRecentActivity.
func ChooseReason(kind models.InputKind, topic string) models.ReasonCode {
	if kind == models.InputKindURL {
		return models.ReasonLinkNeedsDiscovery
	}
	trimmed := strings.TrimSpace(topic)
	if strings.ContainsAny(trimmed, `"'«»`) {
		return models.ReasonTooNarrow
	}
	tokens := strings.Fields(trimmed)
	if len(tokens) >= 2 {
		return models.ReasonTooNarrow
	}
	if genericHeads[strings.ToLower(trimmed)] {
		return models.ReasonTooAmbiguous
	}
	return models.ReasonNoRecentActivity
}

// Diagnose builds the full diagnosis, including the localized explanation
// (never more than two sentences).
func Diagnose(kind models.InputKind, topic, locale string) models.Diagnosis {
	reason := ChooseReason(kind, topic)
	return models.Diagnosis{
		InputKind:   kind,
		ReasonCode:  reason,
		Explanation: explainReason(reason, topic, locale),
	}
}

func explainReason(reason models.ReasonCode, topic, locale string) string {
	fa := locale == "fa"
	switch reason {
	case models.ReasonLinkNeedsDiscovery:
		if fa {
			return "این سایت آدرس فید مشخصی اعلام نکرده است. باید مسیرهای رایج فید آن را امتحان کنیم."
		}
		return "This site doesn't advertise a feed address directly. We need to try its common feed endpoints."
	case models.ReasonTooNarrow:
		if fa {
			return fmt.Sprintf("عبارت «%s» احتمالاً بیش از حد خاص است و مطالب کمی دقیقاً با آن مطابقت دارند.", topic)
		}
		return fmt.Sprintf("%q is likely too specific, so very few items match it word for word.", topic)
	case models.ReasonTooAmbiguous:
		if fa {
			return fmt.Sprintf("واژه «%s» بیش از حد کلی است و با موضوعات نامرتبط زیادی برخورد می‌کند.", topic)
		}
		return fmt.Sprintf("%q is broad enough to collide with many unrelated topics, which dilutes matching.", topic)
	default:
		if fa {
			return fmt.Sprintf("به نظر می‌رسد اخیراً مطلب تازه‌ای درباره «%s» منتشر نشده است.", topic)
		}
		return fmt.Sprintf("There simply may not have been fresh coverage of %q recently.", topic)
	}
}
