package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bryanwahyu/geoscan/internal/application/analyzer"
	appscans "github.com/bryanwahyu/geoscan/internal/application/scans"
	"github.com/bryanwahyu/geoscan/internal/config"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

func TestScoringPolicyOverlay(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.MentionWeights = map[string]float64{"brand_mention": 0.5}
	cfg.Scoring.ProviderWeights = map[string]float64{"perplexity": 0.4}

	pol := scoringPolicy(cfg)
	if pol.MentionWeights[domain.MentionBrand] != 0.5 {
		t.Errorf("brand weight = %v", pol.MentionWeights[domain.MentionBrand])
	}
	if pol.ProviderWeights[domain.PlatformPerplexity] != 0.4 || pol.ProviderWeights[domain.PlatformOpenAI] != 0.25 {
		t.Errorf("provider weights = %v", pol.ProviderWeights)
	}
	if pol.DefaultProviderWeight != 0.25 {
		t.Errorf("default weight = %v", pol.DefaultProviderWeight)
	}
	if analyzer.DefaultPolicy().MentionWeights[domain.MentionBrand] != 0.6 {
		t.Error("overlay must not mutate the shared defaults")
	}
}

func TestPrintReport(t *testing.T) {
	score := 72
	rep := &appscans.Report{
		Scan: &domain.Scan{Domain: "example.com", Industry: "SaaS", OverallScore: &score},
		Results: []*domain.PlatformResult{
			{Platform: domain.PlatformPerplexity, Score: 90, TotalQueries: 10, MentionCount: 9, CitationCount: 4},
		},
	}
	ops := []analyzer.Opportunity{{Priority: "high", Title: "Missing in Germany", SuggestedAction: "Publish localized content"}}

	var buf bytes.Buffer
	if err := printReport(&buf, rep, ops); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"example.com  score 72/100", "Perplexity", "PLATFORM", "[high] Missing in Germany", "Publish localized content"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
