package flow

import (
	"regexp"
	"strings"

	"github.com/xminit/supportcore/internal/models"
)

// complaintRe recognizes the "no results for my keyword/URL" complaint in
// English and Persian phrasing.
var complaintRe = regexp.MustCompile(`(?i)(no (results?|matches|updates?|items|articles|new (items|posts))|nothing (comes|came|shows?|showed|arrives|arrived|new)|zero (results?|matches)|came back empty|stays? empty|didn'?t (find|get|return|match)|doesn'?t (show|return|find|give)|gives? (me )?no|not getting any|هیچ (نتیجه|خبری|مطلبی)|نتیجه‌?ای (نداد|ندارد|نیست)|چیزی (نمیاد|نمی‌آید|پیدا نشد|نیامد)|خالی (است|مونده|مانده))`)

// quotedRe captures a quoted topic in straight, curly or guillemet quotes.
var quotedRe = regexp.MustCompile(`["'«“]([^"'»”]+)["'»”]`)

// addedRe captures the topic following "added"/"tracking" style verbs.
var addedRe = regexp.MustCompile(`(?i)\b(?:added|tracking|track|watch(?:ing)?|subscribed to|following)\s+(.+)$`)

// complaintStopwords are trimmed out of free text before the leftover words
// are taken as the topic.
var complaintStopwords = map[string]bool{
	"no": true, "results": true, "result": true, "matches": true, "match": true,
	"updates": true, "update": true, "nothing": true, "zero": true, "empty": true,
	"but": true, "and": true, "the": true, "a": true, "an": true, "my": true,
	"for": true, "about": true, "on": true, "of": true, "i": true, "it": true,
	"keyword": true, "feed": true, "feeds": true, "gives": true, "give": true,
	"shows": true, "show": true, "comes": true, "came": true, "me": true,
	"added": true, "get": true, "getting": true, "any": true, "new": true,
	"items": true, "back": true, "didnt": true, "didn't": true, "doesnt": true, "doesn't": true,
	"up": true, "got": true, "anything": true, "still": true, "yet": true,
	"هیچ": true, "نتیجه": true, "خبری": true, "چیزی": true, "خالی": true,
	"نمیاد": true, "نداد": true, "ندارد": true, "اما": true, "ولی": true,
	"برای": true, "کلیدواژه": true, "فید": true, "اضافه": true, "کردم": true,
	"من": true, "نیامد": true, "نتیجه‌ای": true,
}

// bucketVocab maps content-goal phrasing to intent buckets, checked in order
// so more specific buckets win over generic ones.
var bucketVocab = []struct {
	bucket models.IntentBucket
	words  []string
}{
	{models.BucketTutorials, []string{"tutorial", "tutorials", "guide", "guides", "how-to", "how to", "آموزش", "راهنما"}},
	{models.BucketResearch, []string{"research", "paper", "papers", "studies", "study", "academic", "پژوهش", "تحقیق", "مقاله", "مقالات"}},
	{models.BucketBusiness, []string{"business", "industry", "market", "کسب‌وکار", "کسب و کار", "صنعت", "بازار", "تجارت"}},
	{models.BucketProduct, []string{"product", "release", "releases", "changelog", "release notes", "محصول", "به‌روزرسانی"}},
	{models.BucketLocal, []string{"local", "events", "event", "nearby", "محلی", "رویداد", "رویدادها"}},
	{models.BucketNews, []string{"news", "headlines", "اخبار", "خبر", "خبرها"}},
	{models.BucketOther, []string{"other", "something else", "everything", "چیز دیگه", "چیز دیگری", "همه"}},
}

// IsNoResultsComplaint reports whether the message is the recovery trigger.
func IsNoResultsComplaint(text string) bool {
	return complaintRe.MatchString(text)
}

// InferBucket extracts a stated content-type goal from the message, with the
// complaint phrasing removed first so "gives no updates" never reads as a
// product goal. Returns BucketUnknown when no goal is stated.
func InferBucket(text string) models.IntentBucket {
	cleaned := strings.ToLower(complaintRe.ReplaceAllString(text, " "))
	for _, entry := range bucketVocab {
		for _, w := range entry.words {
			if containsWord(cleaned, w) {
				return entry.bucket
			}
		}
	}
	return models.BucketUnknown
}

// ExtractTopic pulls the reported keyword out of a complaint message:
// a quoted phrase wins, then an "added X" clause, then whatever words
// survive stopword removal.
func ExtractTopic(text string) string {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := addedRe.FindStringSubmatch(text); m != nil {
		candidate := complaintRe.ReplaceAllString(m[1], " ")
		candidate = strings.Trim(candidate, " ,.!?؟")
		if fields := topicFields(candidate); len(fields) > 0 {
			return strings.Join(fields, " ")
		}
	}
	cleaned := complaintRe.ReplaceAllString(text, " ")
	if fields := topicFields(cleaned); len(fields) > 0 {
		return strings.Join(fields, " ")
	}
	return ""
}

// topicFields keeps at most four non-stopword tokens.
func topicFields(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		token := strings.Trim(f, ",.!?؟:;\"'«»“”")
		if token == "" || complaintStopwords[strings.ToLower(token)] {
			continue
		}
		out = append(out, token)
		if len(out) == 4 {
			break
		}
	}
	return out
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || isBoundary(rune(text[idx-1]))
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || isBoundary(rune(text[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n', ',', '.', '!', '?', ':', ';', '-', '/', '(', ')':
		return true
	default:
		return false
	}
}
