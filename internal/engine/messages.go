package engine

import (
	"fmt"

	"github.com/xminit/supportcore/internal/models"
)

// failureMessages returns the two alternate failure phrasings for a locale,
// each an apology plus a restated understanding plus one follow-up question.
func failureMessages(locale, understanding string) [2]string {
	if locale == "fa" {
		return [2]string{
			fmt.Sprintf("ببخشید، الان نتوانستم این را کامل بررسی کنم. برداشت من این بود که درباره «%s» نوشتید. می‌شود کمی بیشتر توضیح دهید؟", understanding),
			fmt.Sprintf("عذر می‌خواهم، هنوز نتوانستم جواب درستی آماده کنم. فکر می‌کنم منظورتان «%s» بود. درست متوجه شدم؟", understanding),
		}
	}
	return [2]string{
		fmt.Sprintf("Sorry, I couldn't fully work through that just now. I read your message as being about %q. Could you tell me a little more?", understanding),
		fmt.Sprintf("Apologies, I still haven't managed a proper answer. My understanding is you meant %q. Did I get that right?", understanding),
	}
}

// cannedReply is the deterministic general-path reply used when no responder
// is configured or the responder fails. It stays calm and never mentions
// escalation or internal handling.
func cannedReply(locale string, reason models.AlertReason) string {
	fa := locale == "fa"
	switch reason {
	case models.AlertReasonServiceMalfunction:
		if fa {
			return "متأسفم که به مشکل خوردید. دارم بررسی می‌کنم؛ می‌شود بگویید دقیقاً چه زمانی این اتفاق افتاد؟"
		}
		return "Sorry you hit a problem there. I'm looking into it; could you tell me when this started happening?"
	case models.AlertReasonHumanRequest:
		if fa {
			return "حتماً. پیام شما را ثبت کردم؛ در این فاصله اگر جزئیات بیشتری بدهید سریع‌تر پیگیری می‌شود."
		}
		return "Of course. I've noted your message; in the meantime, any extra detail you can share will speed things up."
	case models.AlertReasonUserFrustration:
		if fa {
			return "متوجه‌ام، این تجربه خوبی نبوده. بگویید دقیقاً کجا گیر کردید تا همان را درست کنیم."
		}
		return "I hear you, that hasn't been a good experience. Tell me exactly where things went wrong and we'll fix that first."
	case models.AlertReasonSensitiveTopic:
		if fa {
			return "ممنون که اطلاع دادید. این مورد را با دقت بررسی می‌کنیم؛ لطفاً جزئیات حساس را همین‌جا ارسال نکنید."
		}
		return "Thanks for flagging this. We'll look at it carefully; please don't post any sensitive details here."
	}
	if fa {
		return "متوجه شدم. می‌شود کمی بیشتر توضیح دهید تا بهتر کمک کنم؟"
	}
	return "Got it. Could you tell me a bit more so I can help properly?"
}
