package signals

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/xminit/supportcore/internal/models"
)

// Extractor derives a fully populated SignalSet from one message. It must
// never fail on empty or malformed input: empty input yields an all-false set
// at neutral confidence, and classification failure yields the degraded set
// so the low-confidence escalation path fires.
type Extractor interface {
	Extract(ctx context.Context, text, locale string) (models.SignalSet, error)
}

// Phrase patterns for the pattern-based extractor. English and Persian cues
// live side by side; the extractor does not branch on locale because mixed
// messages are common in the product.
var (
	malfunctionRe = regexp.MustCompile(`(?i)(\berror\b|\bbug\b|\bbroken\b|\bcrash(ed|es)?\b|not working|doesn'?t work|don'?t work|stopped working|\bfailure\b|\bfailing\b|خطا|باگ|خراب|کار نمی‌?کن|از کار افتاد)`)

	frustrationRe = regexp.MustCompile(`(?i)(\buseless\b|\bterrible\b|\bawful\b|\bridiculous\b|waste of (my )?time|fed up|\bangry\b|\bannoyed\b|\bworst\b|\bfrustrat(ed|ing)\b|مزخرف|افتضاح|به درد نمی‌?خور|خسته شدم|اعصاب)`)

	humanRequestRe = regexp.MustCompile(`(?i)(talk to (a )?(human|person)|real (person|human)|human (support|agent)|speak (to|with) (someone|a person|support)|\boperator\b|support team|اپراتور|پشتیبان انسانی|با انسان|نیروی پشتیبانی)`)

	sensitiveRe = regexp.MustCompile(`(?i)(\bpayment\b|\brefund\b|\binvoice\b|\bbilling\b|credit card|\bcharge[ds]?\b|\bpassword\b|\bprivacy\b|personal data|\bsecurity\b|\bhacked?\b|\bfraud\b|پرداخت|بازپرداخت|فاکتور|رمز عبور|حریم خصوصی|امنیت|کلاهبرداری)`)

	urlSchemeRe = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	domainRe    = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)+\b`)
)

// Short confirmation/rejection phrasing, lowercase. Persian entries cover the
// informal spellings the bot actually receives.
var (
	affirmations = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "yup": true, "y": true,
		"ok": true, "okay": true, "sure": true, "exactly": true, "right": true, "correct": true,
		"بله": true, "آره": true, "اره": true, "باشه": true, "حتما": true, "حتماً": true, "درسته": true, "دقیقا": true, "دقیقاً": true,
	}
	rejections = map[string]bool{
		"no": true, "nope": true, "nah": true, "n": true, "not really": true,
		"نه": true, "خیر": true, "نخیر": true,
	}
)

// shortUtteranceWords is the upper bound for treating a message as a bare
// affirmation or rejection rather than a fresh statement.
const shortUtteranceWords = 3

// PatternExtractor is the default, deterministic signal extractor.
type PatternExtractor struct{}

// NewPatternExtractor creates the regex/heuristic extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor.
func (e *PatternExtractor) Extract(ctx context.Context, text, locale string) (models.SignalSet, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		slog.Debug("PatternExtractor.Extract: empty input, returning neutral set")
		return models.NeutralSignalSet(), nil
	}
	if !hasClassifiableContent(trimmed) {
		// Symbols-only or otherwise unclassifiable input: recover with the
		// degraded set so the low-confidence alert path fires.
		slog.Debug("PatternExtractor.Extract: unclassifiable input, returning degraded set", "length", len(trimmed))
		return models.DegradedSignalSet(), nil
	}

	set := models.SignalSet{
		MalfunctionReported:    malfunctionRe.MatchString(trimmed),
		FrustrationDetected:    frustrationRe.MatchString(trimmed),
		SensitiveTopicDetected: sensitiveRe.MatchString(trimmed),
		ExplicitHumanRequest:   humanRequestRe.MatchString(trimmed),
		IsURLLike:              IsURLLike(trimmed),
	}
	set.IsShortAffirmation = isShortMatch(trimmed, affirmations)
	set.IsShortRejection = isShortMatch(trimmed, rejections)
	set.ConfidenceScore = assessConfidence(set, trimmed)
	set.LowConfidence = set.ConfidenceScore < models.LowConfidenceThreshold

	slog.Debug("PatternExtractor.Extract: signals derived",
		"malfunction", set.MalfunctionReported,
		"frustration", set.FrustrationDetected,
		"sensitive", set.SensitiveTopicDetected,
		"humanRequest", set.ExplicitHumanRequest,
		"urlLike", set.IsURLLike,
		"affirmation", set.IsShortAffirmation,
		"confidence", set.ConfidenceScore)
	return set, nil
}

// IsURLLike reports whether the message contains a URL-shaped token: an
// explicit scheme or a domain-like pattern.
func IsURLLike(text string) bool {
	return urlSchemeRe.MatchString(text) || domainRe.MatchString(text)
}

// FirstURLToken returns the first URL-shaped token in the message, or "".
func FirstURLToken(text string) string {
	if m := urlSchemeRe.FindString(text); m != "" {
		return strings.TrimRight(m, ".,;!?)")
	}
	if m := domainRe.FindString(text); m != "" {
		return m
	}
	return ""
}

func isShortMatch(text string, vocab map[string]bool) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".!?؟ ")
	if vocab[normalized] {
		return true
	}
	if len(strings.Fields(normalized)) > shortUtteranceWords {
		return false
	}
	for word := range vocab {
		if normalized == word {
			return true
		}
	}
	return false
}

// assessConfidence scores how certain the extractor is about the turn.
// Explicit cue matches read as high confidence; uncued free text slightly
// lower; very short non-affirmation fragments lower still.
func assessConfidence(set models.SignalSet, text string) float64 {
	anyCue := set.MalfunctionReported || set.FrustrationDetected ||
		set.SensitiveTopicDetected || set.ExplicitHumanRequest ||
		set.IsURLLike || set.IsShortAffirmation || set.IsShortRejection
	if anyCue {
		return 0.9
	}
	if len([]rune(text)) < 4 {
		return 0.4
	}
	return 0.75
}

// hasClassifiableContent reports whether the input carries at least one
// letter or digit in any script.
func hasClassifiableContent(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
