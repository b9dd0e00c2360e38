package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// DiscoveredKeyword is a term answer engines associate with the brand that
// the site itself does not target yet.
type DiscoveredKeyword struct {
	Keyword       string           `json:"keyword"`
	Frequency     int              `json:"frequency"`
	Platforms     []scans.Platform `json:"platforms"`
	SampleContext string           `json:"sampleContext"`
}

const (
	discoverySampleLen  = 500
	discoveryContextLen = 150
	discoveryMinCount   = 2
	discoveryLimit      = 15
	discoveryMinUnigram = 4
)

var discoveryWordRe = regexp.MustCompile(`\b[a-z]{3,25}\b`)

var discoveryStopWords = toSet(
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her",
	"she", "or", "an", "will", "my", "one", "all", "would", "there",
	"their", "what", "so", "up", "out", "if", "about", "who", "get",
	"which", "go", "me", "when", "make", "can", "like", "time", "no",
	"just", "him", "know", "take", "into", "year", "your", "some",
	"could", "them", "see", "other", "than", "then", "now", "also",
	"back", "after", "use", "how", "our", "work", "first", "well",
	"way", "even", "new", "want", "any", "these", "been", "has",
	"more", "was", "were", "are", "is", "its", "most", "such",
	"here", "where", "may", "should", "does", "did", "very",
	"including", "however", "while", "both", "through", "between",
	"many", "those", "several", "various", "based", "using",
	"provide", "provides", "offering", "offers", "known", "often",
	"being", "over", "each",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

type termStat struct {
	term      string
	count     int
	platforms []scans.Platform
	context   string
}

// DiscoverKeywords mines mentioned, non-error responses for frequent
// unigrams and bigrams that are not among the scraped keywords.
func DiscoverKeywords(responses []*scans.PlatformResponse, domain string, scraped []string) []DiscoveredKeyword {
	domain = strings.ToLower(domain)
	base := BrandName(domain)
	skip := map[string]bool{}
	for _, k := range scraped {
		skip[strings.ToLower(k)] = true
	}

	stats := map[string]*termStat{}
	var order []*termStat
	bump := func(term string, p scans.Platform, ctx string) {
		s, ok := stats[term]
		if !ok {
			s = &termStat{term: term, context: ctx}
			stats[term] = s
			order = append(order, s)
		}
		s.count++
		for _, have := range s.platforms {
			if have == p {
				return
			}
		}
		s.platforms = append(s.platforms, p)
	}

	for _, r := range responses {
		if !r.Mentioned || r.IsError() {
			continue
		}
		text := truncate(r.Text, discoverySampleLen)
		if r.MentionExcerpt != nil && *r.MentionExcerpt != "" {
			text = *r.MentionExcerpt
		}
		ctx := truncate(text, discoveryContextLen)
		words := discoveryWordRe.FindAllString(strings.ToLower(text), -1)

		for _, w := range words {
			if len(w) < discoveryMinUnigram || discoveryStopWords[w] || w == base || strings.Contains(domain, w) {
				continue
			}
			bump(w, r.Platform, ctx)
		}
		for i := 0; i+1 < len(words); i++ {
			a, b := words[i], words[i+1]
			if discoveryStopWords[a] || discoveryStopWords[b] || strings.Contains(domain, a) || strings.Contains(domain, b) {
				continue
			}
			bump(a+" "+b, r.Platform, ctx)
		}
	}

	var out []DiscoveredKeyword
	for _, s := range order {
		if skip[s.term] || s.count < discoveryMinCount {
			continue
		}
		out = append(out, DiscoveredKeyword{
			Keyword:       s.term,
			Frequency:     s.count,
			Platforms:     s.platforms,
			SampleContext: s.context,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	if len(out) > discoveryLimit {
		out = out[:discoveryLimit]
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeStart(s, n)]
}
