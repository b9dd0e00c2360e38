// Package querygen turns scraped site data into the prompt battery of a scan.
package querygen

import (
	"strings"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Template is one prompt shape. Placeholders: {domain}, {keyword}, {region}.
type Template struct {
	Text            string
	Category        scans.Category
	RequiresKeyword bool
	RequiresDomain  bool
}

// DefaultTemplates returns the built-in templates in firing order.
func DefaultTemplates() []Template {
	return []Template{
		{"What do you know about {domain}?", scans.CategoryBrandAwareness, false, true},
		{"Tell me about {domain} and what services they offer {region}", scans.CategoryBrandAwareness, false, true},
		{"Is {domain} a good choice for {keyword} {region}?", scans.CategoryBrandEvaluation, true, true},
		{"{domain} review - is it a reliable {keyword} provider {region}?", scans.CategoryBrandEvaluation, true, true},
		{"Compare {domain} with other {keyword} providers {region}", scans.CategoryBrandComparison, true, true},
		{"What are the best {keyword} companies {region}?", scans.CategoryRecommendation, true, false},
		{"Can you recommend a good {keyword} provider {region}?", scans.CategoryRecommendation, true, false},
		{"What are the top {keyword} services {region}?", scans.CategoryRecommendation, true, false},
		{"I need help with {keyword} {region}, who should I use?", scans.CategoryProblemSolving, true, false},
		{"Best tools and services for {keyword} {region}", scans.CategoryToolDiscovery, true, false},
	}
}

const (
	DefaultMaxPerRegion = 10
	DefaultKeywordLimit = 5
	brandKeywordLimit   = 2
)

// Generator is deterministic: same input, same ordered output.
type Generator struct {
	Templates    []Template
	MaxPerRegion int
	KeywordLimit int
}

func New(maxPerRegion, keywordLimit int) *Generator {
	if maxPerRegion <= 0 {
		maxPerRegion = DefaultMaxPerRegion
	}
	if keywordLimit <= 0 {
		keywordLimit = DefaultKeywordLimit
	}
	return &Generator{Templates: DefaultTemplates(), MaxPerRegion: maxPerRegion, KeywordLimit: keywordLimit}
}

// Generate builds queries for each region. No keywords means no queries.
func (g *Generator) Generate(site scans.SiteData, regions []scans.Region) []*scans.Query {
	keywords := site.Keywords
	if len(keywords) == 0 {
		return nil
	}
	if len(keywords) > g.KeywordLimit {
		keywords = keywords[:g.KeywordLimit]
	}
	brandKeywords := keywords
	if len(brandKeywords) > brandKeywordLimit {
		brandKeywords = brandKeywords[:brandKeywordLimit]
	}

	var out []*scans.Query
	for _, region := range regions {
		count := 0
		add := func(t Template, keyword, text string) {
			out = append(out, &scans.Query{
				Position:    len(out),
				Text:        text,
				Keyword:     keyword,
				Region:      region.Code,
				RegionLabel: region.Label,
				Category:    t.Category,
			})
			count++
		}

		for _, t := range g.Templates {
			if count >= g.MaxPerRegion {
				break
			}
			switch {
			case t.RequiresDomain && !t.RequiresKeyword:
				add(t, site.Domain, fill(t.Text, site.Domain, "", region.Suffix))
			case t.RequiresDomain:
				for _, kw := range brandKeywords {
					if count >= g.MaxPerRegion {
						break
					}
					add(t, kw, fill(t.Text, site.Domain, kw, region.Suffix))
				}
			default:
				for _, kw := range keywords {
					if count >= g.MaxPerRegion {
						break
					}
					add(t, kw, fill(t.Text, site.Domain, kw, region.Suffix))
				}
			}
		}
	}
	return out
}

func fill(tpl, domain, keyword, suffix string) string {
	r := strings.NewReplacer("{domain}", domain, "{keyword}", keyword, "{region}", suffix)
	return tightPunct.Replace(strings.Join(strings.Fields(r.Replace(tpl)), " "))
}

// an empty region suffix leaves "audits ?" behind
var tightPunct = strings.NewReplacer(" ?", "?", " ,", ",")
