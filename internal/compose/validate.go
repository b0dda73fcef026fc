package compose

import (
	"errors"
	"regexp"
	"strings"

	"github.com/xminit/supportcore/internal/models"
)

var (
	// ErrLinkRepeated means the same link shows up more than once in the
	// rendered reply.
	ErrLinkRepeated = errors.New("link appears more than once in reply")

	// ErrDecorativeSeparator means the reply contains a separator line.
	ErrDecorativeSeparator = errors.New("reply contains a decorative separator line")

	// ErrInternalNameLeaked means the reply mentions an internal component.
	ErrInternalNameLeaked = errors.New("reply mentions an internal component name")
)

// separatorLineRe matches lines made of repeated separator characters.
var separatorLineRe = regexp.MustCompile(`(?m)^\s*(?:-{3,}|={3,}|\*{3,}|_{3,}|~{3,}|─{3,}|═{3,}|┄{3,}|•{3,}|#{3,})\s*$`)

// internalNames are component identifiers that must never leak into
// user-facing text. Bare vendor words are deliberately not listed: they can
// legitimately appear inside a user's own topic.
var internalNames = []string{
	"knowledgesource",
	"knowledge source",
	"knowledge function",
	"state manager",
	"recovery flow",
	"supportcore",
	"according to the model",
	"as an ai",
}

// ValidateReply enforces the surface invariants on the rendered reply: every
// link from the plan appears at most once, no decorative separator lines, and
// no internal component names.
func ValidateReply(text string, plan models.ResponsePlan) error {
	if separatorLineRe.MatchString(text) {
		return ErrDecorativeSeparator
	}

	lower := strings.ToLower(text)
	for _, name := range internalNames {
		if strings.Contains(lower, name) {
			return ErrInternalNameLeaked
		}
	}

	for _, s := range plan.SourceSuggestions {
		if countOccurrences(lower, strings.ToLower(s.Link)) > 1 {
			return ErrLinkRepeated
		}
	}
	for _, k := range plan.KeywordSuggestions {
		candidate := strings.ToLower(k.Text)
		if !strings.Contains(candidate, "://") && !strings.Contains(candidate, ".") {
			continue
		}
		if looksLikeLink(candidate) && countOccurrences(lower, candidate) > 1 {
			return ErrLinkRepeated
		}
	}
	return nil
}

func looksLikeLink(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "www.")
}

// countOccurrences counts matches of a link that are not merely a prefix of
// a longer link, so "…/feed" inside "…/feed.xml" does not count.
func countOccurrences(text, sub string) int {
	if sub == "" {
		return 0
	}
	count := 0
	for idx := strings.Index(text, sub); idx >= 0; {
		end := idx + len(sub)
		if end >= len(text) || !isURLChar(text[end]) {
			count++
		}
		next := strings.Index(text[idx+1:], sub)
		if next < 0 {
			break
		}
		idx += 1 + next
	}
	return count
}

func isURLChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '/', '.', '-', '_', '?', '=', '&', '%', '#', '~', '+':
		return true
	}
	return false
}
