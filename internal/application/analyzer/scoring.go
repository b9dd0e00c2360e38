package analyzer

import (
	"math"
	"sort"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Policy is the injected scoring configuration.
type Policy struct {
	MentionWeights        map[scans.MentionType]float64
	ProviderWeights       map[scans.Platform]float64
	DefaultProviderWeight float64
}

func DefaultPolicy() Policy {
	return Policy{
		MentionWeights: map[scans.MentionType]float64{
			scans.MentionDirectCitation:   1.0,
			scans.MentionRecommendation:   0.8,
			scans.MentionBrand:            0.6,
			scans.MentionPassingReference: 0.3,
			scans.MentionNone:             0.0,
		},
		ProviderWeights: map[scans.Platform]float64{
			scans.PlatformPerplexity: 0.30,
			scans.PlatformOpenAI:     0.25,
			scans.PlatformGemini:     0.25,
			scans.PlatformAnthropic:  0.20,
		},
		DefaultProviderWeight: 0.25,
	}
}

type ScoringEngine struct {
	Policy Policy
}

func NewScoringEngine(p Policy) *ScoringEngine {
	return &ScoringEngine{Policy: p}
}

// PlatformScore aggregates one provider's non-error responses.
func (e *ScoringEngine) PlatformScore(id scans.ScanID, p scans.Platform, responses []*scans.PlatformResponse) *scans.PlatformResult {
	res := &scans.PlatformResult{ScanID: id, Platform: p}
	var sum float64
	for _, r := range responses {
		if r.Platform != p || r.IsError() {
			continue
		}
		res.TotalQueries++
		if r.Mentioned {
			res.MentionCount++
		}
		if r.MentionType == scans.MentionDirectCitation {
			res.CitationCount++
		}
		sum += e.Policy.MentionWeights[r.MentionType] * r.Confidence
	}
	if res.TotalQueries == 0 {
		return res
	}
	res.Score = clampScore(math.Round(100 * sum / float64(res.TotalQueries)))
	return res
}

// ScoreAll produces one result per platform present in responses, sorted by platform key.
func (e *ScoringEngine) ScoreAll(id scans.ScanID, responses []*scans.PlatformResponse) []*scans.PlatformResult {
	seen := map[scans.Platform]bool{}
	var platforms []scans.Platform
	for _, r := range responses {
		if !seen[r.Platform] {
			seen[r.Platform] = true
			platforms = append(platforms, r.Platform)
		}
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	out := make([]*scans.PlatformResult, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, e.PlatformScore(id, p, responses))
	}
	return out
}

// Overall is the provider-weighted mean; absent providers are excluded and
// the remaining weights renormalize.
func (e *ScoringEngine) Overall(results []*scans.PlatformResult) int {
	var weighted, total float64
	for _, r := range results {
		w, ok := e.Policy.ProviderWeights[r.Platform]
		if !ok {
			w = e.Policy.DefaultProviderWeight
		}
		weighted += float64(r.Score) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return clampScore(math.Round(weighted / total))
}

func clampScore(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v)
}
