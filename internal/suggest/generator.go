package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xminit/supportcore/internal/models"
)

// DefaultLookupTimeout bounds the external knowledge call per turn.
const DefaultLookupTimeout = 6 * time.Second

// feedGuessPaths are the well-known feed endpoint suffixes tried against a
// site root, most common first.
var feedGuessPaths = []string{
	"/feed",
	"/rss",
	"/rss.xml",
	"/atom.xml",
	"/feed.xml",
	"/index.xml",
	"/blog/feed",
	"/news/feed",
	"/posts/index.xml",
}

// synonyms maps common topic words to a usable substitute.
var synonyms = map[string]string{
	"news":     "headlines",
	"updates":  "announcements",
	"guide":    "tutorial",
	"guides":   "tutorials",
	"research": "studies",
	"review":   "analysis",
	"reviews":  "analysis",
	"price":    "market",
	"prices":   "market",
	"jobs":     "careers",
	"sensors":  "sensing",
	"security": "cybersecurity",
	"اخبار":    "تازه‌ها",
	"آموزش":    "راهنما",
}

// bucketQualifiers render an intent bucket as a keyword-compound suffix.
var bucketQualifiers = map[models.IntentBucket]struct{ en, fa string }{
	models.BucketNews:      {"news", "اخبار"},
	models.BucketTutorials: {"tutorial", "آموزش"},
	models.BucketResearch:  {"research", "پژوهش"},
	models.BucketBusiness:  {"industry", "صنعت"},
	models.BucketProduct:   {"release notes", "به‌روزرسانی"},
	models.BucketLocal:     {"local", "محلی"},
	models.BucketOther:     {"overview", "مرور"},
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+\-.]*:`)

// Generator produces keyword alternatives, endpoint patterns and filtered
// source suggestions for a confirmed-intent recovery turn.
type Generator struct {
	knowledge     KnowledgeSource
	lookupTimeout time.Duration
}

// NewGenerator creates a suggestion generator. A nil knowledge source means
// source suggestions always degrade to none.
func NewGenerator(knowledge KnowledgeSource, lookupTimeout time.Duration) *Generator {
	if knowledge == nil {
		knowledge = NoopKnowledgeSource{}
	}
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &Generator{knowledge: knowledge, lookupTimeout: lookupTimeout}
}

// Keywords produces 3–5 alternatives for a keyword topic, combining the
// broadening, synonym, language-variant and goal-compound strategies. Each
// suggestion names the strategy that justifies it.
func (g *Generator) Keywords(topic string, bucket models.IntentBucket, locale string) []models.KeywordSuggestion {
	topic = strings.TrimSpace(strings.Trim(strings.TrimSpace(topic), `"'«»`))
	fa := locale == "fa"
	var out []models.KeywordSuggestion
	seen := map[string]bool{strings.ToLower(topic): true}

	add := func(text, rationale string) {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" || seen[key] || len(out) >= models.MaxKeywordSuggestions {
			return
		}
		seen[key] = true
		out = append(out, models.KeywordSuggestion{Text: strings.TrimSpace(text), Rationale: rationale})
	}

	tokens := strings.Fields(topic)

	// Broadening: drop the rarest qualifier (approximated by the longest
	// trailing token) so the head term can match alone.
	if len(tokens) >= 2 {
		dropped := tokens[len(tokens)-1]
		broadened := strings.Join(tokens[:len(tokens)-1], " ")
		if fa {
			add(broadened, fmt.Sprintf("گسترده‌تر: حذف «%s»", dropped))
		} else {
			add(broadened, fmt.Sprintf("broadened: dropped the qualifier %q", dropped))
		}
		head := tokens[0]
		if fa {
			add(head, "گسترده‌تر: فقط واژه اصلی")
		} else {
			add(head, "broadened: head term on its own")
		}
	}

	// Synonym substitution on any token with a known substitute.
	for i, tok := range tokens {
		if sub, ok := synonyms[strings.ToLower(tok)]; ok {
			replaced := make([]string, len(tokens))
			copy(replaced, tokens)
			replaced[i] = sub
			if fa {
				add(strings.Join(replaced, " "), fmt.Sprintf("مترادف: «%s» به‌جای «%s»", sub, tok))
			} else {
				add(strings.Join(replaced, " "), fmt.Sprintf("synonym: %q for %q", sub, tok))
			}
			break
		}
	}

	// Language variant: when the goal is not local-only, native and English
	// coverage should both be tracked.
	if bucket != models.BucketLocal && fa {
		add(topic+" english", "نسخه انگلیسی: پوشش بین‌المللی در کنار منابع فارسی")
	}

	// Goal-qualified compound: topic plus the confirmed intent bucket.
	if q, ok := bucketQualifiers[bucket]; ok {
		if fa {
			add(q.fa+" "+topic, "ترکیب با هدف اعلام‌شده")
		} else {
			add(topic+" "+q.en, "goal compound: topic plus your stated goal")
		}
	}

	// Pad with secondary compounds until the minimum is met.
	padders := []struct{ en, fa string }{
		{"latest", "جدیدترین"},
		{"analysis", "تحلیل"},
		{"weekly", "هفتگی"},
	}
	for _, p := range padders {
		if len(out) >= models.MinKeywordSuggestions {
			break
		}
		if fa {
			add(p.fa+" "+topic, "ترکیب با هدف اعلام‌شده")
		} else {
			add(topic+" "+p.en, "goal compound: adds a recency/intent qualifier")
		}
	}

	slog.Debug("Generator.Keywords: suggestions built", "topic", topic, "bucket", bucket, "count", len(out))
	return out
}

// EndpointPatterns produces feed-discovery candidates for a URL input: the
// site root combined with well-known feed suffixes. They occupy the keyword
// suggestion slot of the plan, bounded the same way.
func (g *Generator) EndpointPatterns(site, locale string) []models.KeywordSuggestion {
	root := rootURL(site)
	fa := locale == "fa"
	out := make([]models.KeywordSuggestion, 0, models.MaxKeywordSuggestions)
	for _, path := range feedGuessPaths {
		if len(out) >= models.MaxKeywordSuggestions {
			break
		}
		rationale := fmt.Sprintf("well-known feed path %s", path)
		if fa {
			rationale = fmt.Sprintf("مسیر رایج فید %s", path)
		}
		out = append(out, models.KeywordSuggestion{Text: root + path, Rationale: rationale})
	}
	slog.Debug("Generator.EndpointPatterns: candidates built", "site", site, "root", root, "count", len(out))
	return out
}

// Sources asks the knowledge function for candidates and applies the
// high-confidence bar and the category-diversity pick, bounded to 1–3. Any
// lookup failure or timeout degrades to zero suggestions; the turn never
// fails on the knowledge path.
func (g *Generator) Sources(ctx context.Context, topic string, bucket models.IntentBucket, locale string, exclude []string) []models.SourceSuggestion {
	lookupCtx, cancel := context.WithTimeout(ctx, g.lookupTimeout)
	defer cancel()

	candidates, err := g.knowledge.SuggestSources(lookupCtx, topic, bucket, locale, models.MaxSourceSuggestions*3)
	if err != nil {
		slog.Warn("Generator.Sources: knowledge lookup failed, degrading to zero sources", "error", err, "topic", topic)
		return nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, link := range exclude {
		excluded[strings.ToLower(link)] = true
	}

	var pool []SourceCandidate
	for _, c := range candidates {
		if c.Link == "" || c.Justification == "" {
			continue
		}
		if c.Confidence < HighConfidenceBar {
			continue
		}
		if excluded[strings.ToLower(c.Link)] {
			continue
		}
		pool = append(pool, c)
	}

	picked := pickDiverse(pool, models.MaxSourceSuggestions)
	out := make([]models.SourceSuggestion, 0, len(picked))
	seenLinks := map[string]bool{}
	for _, c := range picked {
		key := strings.ToLower(c.Link)
		if seenLinks[key] {
			continue
		}
		seenLinks[key] = true
		out = append(out, models.SourceSuggestion{Link: c.Link, Justification: c.Justification})
	}
	slog.Debug("Generator.Sources: sources selected", "topic", topic, "candidates", len(candidates), "selected", len(out))
	return out
}

// FollowUp produces the single concluding follow-up question, always
// proposing a concrete next step.
func (g *Generator) FollowUp(keywords []models.KeywordSuggestion, kind models.InputKind, locale string) string {
	fa := locale == "fa"
	if kind == models.InputKindURL {
		if fa {
			return "کدام‌یک از این آدرس‌ها را اول امتحان کنم؟"
		}
		return "Which of these feed addresses should I try first?"
	}
	if len(keywords) > 0 {
		if fa {
			return fmt.Sprintf("می‌خواهید «%s» را جایگزین کلیدواژه فعلی کنم؟", keywords[0].Text)
		}
		return fmt.Sprintf("Shall I switch your tracker to %q to start with?", keywords[0].Text)
	}
	if fa {
		return "کدام پیشنهاد را اول امتحان کنیم؟"
	}
	return "Which suggestion would you like to try first?"
}

// pickDiverse prefers covering new categories across mainstream, niche and
// institutional sources before raw score; within a category the highest
// confidence wins.
func pickDiverse(pool []SourceCandidate, max int) []SourceCandidate {
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Confidence > pool[j].Confidence })

	var out []SourceCandidate
	covered := map[models.SourceCategory]bool{}

	for _, c := range pool {
		if len(out) >= max {
			return out
		}
		if !covered[c.Category] {
			covered[c.Category] = true
			out = append(out, c)
		}
	}
	for _, c := range pool {
		if len(out) >= max {
			break
		}
		if !contains(out, c.Link) {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []SourceCandidate, link string) bool {
	for _, c := range list {
		if c.Link == link {
			return true
		}
	}
	return false
}

// rootURL reduces a site reference to scheme+host, defaulting the scheme to
// https when missing.
func rootURL(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if strings.HasPrefix(site, "//") {
		site = "https:" + site
	} else if !schemeRe.MatchString(site) {
		site = "https://" + site
	}
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return strings.TrimRight(site, "/")
	}
	return u.Scheme + "://" + u.Host
}
