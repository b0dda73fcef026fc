package flow

import (
	"github.com/xminit/supportcore/internal/signals"
)

// urlTopic pulls the URL token out of a complaint about a link-based feed.
func urlTopic(text string) string {
	return signals.FirstURLToken(text)
}

func clarifyingQuestion(locale string) string {
	if locale == "fa" {
		return "برای اینکه پیشنهاد بهتری بدهم، دنبال چه نوع مطلبی هستید؟ اخبار، آموزش و راهنما، مطالب پژوهشی، اخبار کسب‌وکار، به‌روزرسانی محصول، رویدادهای محلی، یا چیز دیگری؟"
	}
	return "So I can point you somewhere useful, what kind of content are you after? News, tutorials or guides, research, business or industry coverage, product updates, local events, or something else?"
}

func keywordQuestion(locale string) string {
	if locale == "fa" {
		return "کدام کلیدواژه یا عبارت را دنبال می‌کردید؟ پیشنهادها را بر اساس همان می‌سازم."
	}
	return "Which keyword or phrase were you tracking? I'll build the alternatives around it."
}

// isKeywordQuestion reports whether the stored pending question asked for the
// tracked keyword rather than the content goal.
func isKeywordQuestion(q string) bool {
	return q != "" && (q == keywordQuestion("en") || q == keywordQuestion("fa"))
}

func reaskQuestion(locale string) string {
	if locale == "fa" {
		return "کدام‌یک به هدف شما نزدیک‌تر است: اخبار، آموزش، پژوهش، کسب‌وکار، محصول، رویدادهای محلی، یا چیز دیگری؟"
	}
	return "Which is closest to what you want: news, tutorials, research, business, product updates, local events, or something else?"
}

func ackEmptyResults(locale string) string {
	if locale == "fa" {
		return "متوجه شدم، این مورد هنوز هیچ مطلبی برنگردانده است."
	}
	return "Got it, that one hasn't returned anything yet."
}

func ackStillNeedGoal(locale string) string {
	if locale == "fa" {
		return "ممنون."
	}
	return "Thanks."
}

func ackRespond(locale string) string {
	if locale == "fa" {
		return "بررسی کردم و چند جایگزین آماده کردم."
	}
	return "I looked into it and lined up some alternatives."
}
