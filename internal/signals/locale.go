// Package signals turns one inbound message into the typed SignalSet the
// policy evaluator and recovery flow consume. Detection is a capability:
// implementations range from regex heuristics to hosted-model calls, all
// behind the Extractor and LocaleDetector interfaces.
package signals

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// LocaleDetector resolves the locale tag for a turn. It is a black-box
// classifier from the core's point of view.
type LocaleDetector interface {
	// Detect returns a normalized BCP-47 base tag (e.g. "en", "fa") for the
	// message text. hint, when non-empty, is a caller-provided locale tag
	// that takes precedence over detection.
	Detect(text, hint string) string
}

// ScriptDetector is the default locale detector. It normalizes caller hints
// through x/text and otherwise falls back to script inspection: the product
// is Persian-first, so Arabic-script text maps to "fa".
type ScriptDetector struct {
	defaultLocale string
}

// NewScriptDetector creates a detector with the given fallback locale.
func NewScriptDetector(defaultLocale string) *ScriptDetector {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &ScriptDetector{defaultLocale: defaultLocale}
}

// Detect implements LocaleDetector.
func (d *ScriptDetector) Detect(text, hint string) string {
	if hint != "" {
		if tag, err := language.Parse(hint); err == nil {
			base, _ := tag.Base()
			return base.String()
		}
		slog.Debug("ScriptDetector.Detect: unparseable locale hint, ignoring", "hint", hint)
	}

	hasArabic := false
	hasLatin := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Arabic, r):
			hasArabic = true
		case unicode.In(r, unicode.Latin):
			hasLatin = true
		}
	}

	switch {
	case hasArabic:
		return "fa"
	case hasLatin:
		return "en"
	case strings.TrimSpace(text) == "":
		return d.defaultLocale
	default:
		return d.defaultLocale
	}
}
