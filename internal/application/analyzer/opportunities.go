package analyzer

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

type OpportunityType string

const (
	OpportunityKeywordGap        OpportunityType = "keyword_gap"
	OpportunityCompetitorPresent OpportunityType = "competitor_present"
	OpportunityLowRegion         OpportunityType = "low_visibility_region"
	OpportunityPartialPlatform   OpportunityType = "partial_platform"
	OpportunityContent           OpportunityType = "content_suggestion"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Opportunity is an advisory finding. Never persisted.
type Opportunity struct {
	Type            OpportunityType `json:"type"`
	Priority        Priority        `json:"priority"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Keyword         string          `json:"keyword,omitempty"`
	Region          string          `json:"region,omitempty"`
	Competitors     []string        `json:"competitors,omitempty"`
	SuggestedAction string          `json:"suggestedAction"`
}

// CategorySuggestions maps a prompt category to its canned remediation.
var CategorySuggestions = map[scans.Category]string{
	scans.CategoryBrandComparison: "Create detailed comparison pages showing how you stack up against alternatives.",
	scans.CategoryBrandEvaluation: "Build a reviews/testimonials page and encourage third-party reviews on authoritative sites.",
	scans.CategoryRecommendation:  "Publish case studies and success stories that demonstrate your expertise.",
	scans.CategoryProblemSolving:  "Create how-to guides and solution-focused content addressing common problems.",
	scans.CategoryToolDiscovery:   "List your product on directories and build integration pages with popular tools.",
}

var (
	competitorURLRe    = regexp.MustCompile(`(?i)https?://([a-z0-9][-a-z0-9]*\.)+[a-z]{2,}`)
	competitorDomainRe = regexp.MustCompile(`(?i)\b([a-z0-9][-a-z0-9]*\.(com|io|org|net|co|ai|app|dev|xyz))\b`)
)

const (
	regionThreshold   = 0.5
	platformThreshold = 0.3
	minAverageRate    = 0.1
	minCompetitorHits = 2
	maxCompetitors    = 5
	maxTopicKeywords  = 5
)

// OpportunityAnalyzer mines gaps from classified responses. Error
// responses are ignored everywhere.
type OpportunityAnalyzer struct{}

// tally keeps first-seen order so results are stable.
type tally struct {
	keys  []string
	total map[string]int
	hits  map[string]int
	label map[string]string
}

func newTally() *tally {
	return &tally{total: map[string]int{}, hits: map[string]int{}, label: map[string]string{}}
}

func (t *tally) touch(key string) {
	if _, ok := t.total[key]; !ok {
		t.keys = append(t.keys, key)
		t.total[key] = 0
	}
}

func (t *tally) add(key string, mentioned bool) {
	t.touch(key)
	t.total[key]++
	if mentioned {
		t.hits[key]++
	}
}

func (t *tally) rate(key string) float64 {
	return float64(t.hits[key]) / float64(t.total[key])
}

// Analyze returns findings sorted high, medium, low.
func (OpportunityAnalyzer) Analyze(queries []*scans.Query, responses []*scans.PlatformResponse, domain string) []Opportunity {
	byQuery := map[string][]*scans.PlatformResponse{}
	for _, r := range responses {
		byQuery[r.QueryID] = append(byQuery[r.QueryID], r)
	}
	domainLower := strings.TrimPrefix(strings.ToLower(domain), "www.")

	var out []Opportunity
	out = append(out, keywordGaps(queries, byQuery, domain)...)
	if c, ok := competitors(queries, byQuery, domainLower); ok {
		out = append(out, c)
	}
	out = append(out, lowRegions(queries, byQuery)...)
	out = append(out, partialPlatforms(queries, byQuery)...)
	out = append(out, contentSuggestions(queries, byQuery)...)

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}

func keywordGaps(queries []*scans.Query, byQuery map[string][]*scans.PlatformResponse, domain string) []Opportunity {
	t := newTally()
	for _, q := range queries {
		t.touch(q.Keyword)
		for _, r := range byQuery[q.ID] {
			if !r.IsError() {
				t.add(q.Keyword, r.Mentioned)
			}
		}
	}
	var out []Opportunity
	for _, kw := range t.keys {
		if strings.EqualFold(kw, domain) || t.total[kw] == 0 || t.hits[kw] > 0 {
			continue
		}
		out = append(out, Opportunity{
			Type:            OpportunityKeywordGap,
			Priority:        PriorityHigh,
			Title:           fmt.Sprintf("Not visible for %q", kw),
			Description:     fmt.Sprintf("AI platforms were asked %d queries about %q and never mentioned your site.", t.total[kw], kw),
			Keyword:         kw,
			SuggestedAction: fmt.Sprintf("Create in-depth content targeting %q: a comprehensive guide, comparison, or resource page.", kw),
		})
	}
	return out
}

type competitorHit struct {
	domain   string
	count    int
	keywords []string
	seen     map[string]bool
}

func competitors(queries []*scans.Query, byQuery map[string][]*scans.PlatformResponse, domain string) (Opportunity, bool) {
	hits := map[string]*competitorHit{}
	var order []*competitorHit
	record := func(d, keyword string) {
		if d == "" || HostMatches(d, domain) {
			return
		}
		h, ok := hits[d]
		if !ok {
			h = &competitorHit{domain: d, seen: map[string]bool{}}
			hits[d] = h
			order = append(order, h)
		}
		h.count++
		if !h.seen[keyword] {
			h.seen[keyword] = true
			h.keywords = append(h.keywords, keyword)
		}
	}

	for _, q := range queries {
		for _, r := range byQuery[q.ID] {
			if r.Mentioned || r.IsError() {
				continue
			}
			for _, raw := range competitorURLRe.FindAllString(r.Text, -1) {
				u, err := url.Parse(raw)
				if err != nil {
					continue
				}
				record(strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), q.Keyword)
			}
			for _, m := range competitorDomainRe.FindAllString(r.Text, -1) {
				record(strings.ToLower(m), q.Keyword)
			}
		}
	}

	var top []*competitorHit
	for _, h := range order {
		if h.count >= minCompetitorHits {
			top = append(top, h)
		}
	}
	if len(top) == 0 {
		return Opportunity{}, false
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].count > top[j].count })
	if len(top) > maxCompetitors {
		top = top[:maxCompetitors]
	}

	names := make([]string, 0, len(top))
	var topics []string
	topicSeen := map[string]bool{}
	for _, h := range top {
		names = append(names, h.domain)
		for _, kw := range h.keywords {
			if !topicSeen[kw] {
				topicSeen[kw] = true
				topics = append(topics, kw)
			}
		}
	}
	if len(topics) > maxTopicKeywords {
		topics = topics[:maxTopicKeywords]
	}

	return Opportunity{
		Type:     OpportunityCompetitorPresent,
		Priority: PriorityHigh,
		Title:    "Competitors are visible where you're not",
		Description: fmt.Sprintf("These competitors appear in AI responses for your keywords: %s. They're being mentioned for topics like \"%s\".",
			strings.Join(names, ", "), strings.Join(topics, `", "`)),
		Competitors:     names,
		SuggestedAction: "Analyze what content these competitors have that earns AI mentions, and create better, more comprehensive content on the same topics.",
	}, true
}

// belowAverage returns keys whose rate is under factor * mean rate, only
// when the mean itself exceeds minAverageRate.
func belowAverage(t *tally, factor float64) (keys []string, rates map[string]float64, avg float64) {
	rates = map[string]float64{}
	var active []string
	for _, k := range t.keys {
		if t.total[k] > 0 {
			active = append(active, k)
			rates[k] = t.rate(k)
			avg += rates[k]
		}
	}
	if len(active) == 0 {
		return nil, rates, 0
	}
	avg /= float64(len(active))
	if avg <= minAverageRate {
		return nil, rates, avg
	}
	for _, k := range active {
		if rates[k] < avg*factor {
			keys = append(keys, k)
		}
	}
	return keys, rates, avg
}

func pct(v float64) int { return int(math.Round(v * 100)) }

func lowRegions(queries []*scans.Query, byQuery map[string][]*scans.PlatformResponse) []Opportunity {
	t := newTally()
	for _, q := range queries {
		t.touch(q.Region)
		if _, ok := t.label[q.Region]; !ok {
			t.label[q.Region] = q.RegionLabel
		}
		for _, r := range byQuery[q.ID] {
			if !r.IsError() {
				t.add(q.Region, r.Mentioned)
			}
		}
	}
	keys, rates, avg := belowAverage(t, regionThreshold)
	out := make([]Opportunity, 0, len(keys))
	for _, region := range keys {
		label := t.label[region]
		out = append(out, Opportunity{
			Type:            OpportunityLowRegion,
			Priority:        PriorityMedium,
			Title:           "Low visibility in " + label,
			Description:     fmt.Sprintf("Your mention rate in %s is %d%%, compared to the average of %d%%.", label, pct(rates[region]), pct(avg)),
			Region:          region,
			SuggestedAction: fmt.Sprintf("Create region-specific content for %s: local case studies, pricing pages, or service pages targeting this market.", label),
		})
	}
	return out
}

func partialPlatforms(queries []*scans.Query, byQuery map[string][]*scans.PlatformResponse) []Opportunity {
	t := newTally()
	for _, q := range queries {
		for _, r := range byQuery[q.ID] {
			if !r.IsError() {
				t.add(string(r.Platform), r.Mentioned)
			}
		}
	}
	keys, rates, avg := belowAverage(t, platformThreshold)
	out := make([]Opportunity, 0, len(keys))
	for _, p := range keys {
		name := scans.Platform(p).DisplayName()
		out = append(out, Opportunity{
			Type:            OpportunityPartialPlatform,
			Priority:        PriorityMedium,
			Title:           "Low visibility on " + name,
			Description:     fmt.Sprintf("%s mentions your site %d%% of the time, compared to the average of %d%% across platforms.", name, pct(rates[p]), pct(avg)),
			SuggestedAction: fmt.Sprintf("Ensure your content is well-structured with clear headings, facts, and citations that %s can easily reference.", name),
		})
	}
	return out
}

func contentSuggestions(queries []*scans.Query, byQuery map[string][]*scans.PlatformResponse) []Opportunity {
	t := newTally()
	for _, q := range queries {
		cat := string(q.Category)
		if cat == "" {
			cat = "general"
		}
		t.touch(cat)
		for _, r := range byQuery[q.ID] {
			if !r.IsError() {
				t.add(cat, r.Mentioned)
			}
		}
	}
	var out []Opportunity
	for _, cat := range t.keys {
		action, ok := CategorySuggestions[scans.Category(cat)]
		if !ok || t.total[cat] == 0 || t.hits[cat] > 0 {
			continue
		}
		human := strings.ReplaceAll(cat, "_", " ")
		out = append(out, Opportunity{
			Type:            OpportunityContent,
			Priority:        PriorityLow,
			Title:           fmt.Sprintf("No visibility in %q queries", human),
			Description:     fmt.Sprintf("%d queries in the %q category returned no mentions of your site.", t.total[cat], human),
			SuggestedAction: action,
		})
	}
	return out
}
