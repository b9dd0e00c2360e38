package scans

import (
	"strings"
	"time"
)

// ID tipe untuk Scan
type ScanID string

// Platform identifies one generative-AI answer engine.
type Platform string

const (
	PlatformOpenAI     Platform = "OPENAI"
	PlatformAnthropic  Platform = "ANTHROPIC"
	PlatformGemini     Platform = "GEMINI"
	PlatformPerplexity Platform = "PERPLEXITY"
)

var platformNames = map[Platform]string{
	PlatformOpenAI:     "ChatGPT",
	PlatformAnthropic:  "Claude",
	PlatformGemini:     "Gemini",
	PlatformPerplexity: "Perplexity",
}

// DisplayName returns the consumer-facing product name, or the raw key for
// platforms we don't know.
func (p Platform) DisplayName() string {
	if n, ok := platformNames[p]; ok {
		return n
	}
	return string(p)
}

// MentionType enum
type MentionType string

const (
	MentionDirectCitation   MentionType = "DIRECT_CITATION"
	MentionRecommendation   MentionType = "RECOMMENDATION"
	MentionBrand            MentionType = "BRAND_MENTION"
	MentionPassingReference MentionType = "PASSING_REFERENCE"
	MentionNone             MentionType = "NOT_MENTIONED"
)

// Category enum for generated prompts
type Category string

const (
	CategoryBrandAwareness  Category = "brand_awareness"
	CategoryBrandEvaluation Category = "brand_evaluation"
	CategoryBrandComparison Category = "brand_comparison"
	CategoryRecommendation  Category = "recommendation"
	CategoryProblemSolving  Category = "problem_solving"
	CategoryToolDiscovery   Category = "tool_discovery"
)

// ErrorPrefix marks the text of a response whose provider call failed.
const ErrorPrefix = "Error:"

// Aggregate Root: Scan
type Scan struct {
	ID           ScanID     `json:"id"`
	URL          string     `json:"url"`
	Domain       string     `json:"domain"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStep  string     `json:"currentStep"`
	Regions      []string   `json:"selectedRegions"`
	WebsiteTitle string     `json:"websiteTitle,omitempty"`
	WebsiteDesc  string     `json:"websiteDescription,omitempty"`
	Industry     string     `json:"industry,omitempty"`
	Keywords     []string   `json:"keywords"`
	OverallScore *int       `json:"overallScore"`
	ErrorMessage *string    `json:"errorMessage"`
	ReportURL    string     `json:"reportUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Query is one generated prompt. Immutable once saved.
type Query struct {
	ID          string    `json:"id"`
	ScanID      ScanID    `json:"scanId"`
	Position    int       `json:"position"`
	Text        string    `json:"text"`
	Keyword     string    `json:"keyword"`
	Region      string    `json:"region"`
	RegionLabel string    `json:"regionLabel"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlatformResponse is one provider's answer to one Query.
type PlatformResponse struct {
	ID             string      `json:"id"`
	QueryID        string      `json:"queryId"`
	ScanID         ScanID      `json:"scanId"`
	Platform       Platform    `json:"platform"`
	Text           string      `json:"responseText"`
	Citations      []string    `json:"citations"`
	TokensUsed     int         `json:"tokensUsed"`
	LatencyMS      int64       `json:"latencyMs"`
	Mentioned      bool        `json:"mentioned"`
	MentionType    MentionType `json:"mentionType"`
	MentionExcerpt *string     `json:"mentionExcerpt"`
	CitationURL    *string     `json:"citationUrl"`
	Confidence     float64     `json:"confidence"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// IsError reports whether the response records a failed provider call.
func (r *PlatformResponse) IsError() bool {
	return strings.HasPrefix(r.Text, ErrorPrefix)
}

// PlatformResult is the per-provider aggregate for a finished scan.
type PlatformResult struct {
	ScanID        ScanID   `json:"scanId"`
	Platform      Platform `json:"platform"`
	Score         int      `json:"score"`
	TotalQueries  int      `json:"totalQueries"`
	MentionCount  int      `json:"mentionCount"`
	CitationCount int      `json:"citationCount"`
}

// Snapshot is the pollable progress view of a Scan.
type Snapshot struct {
	ScanID       ScanID  `json:"scanId"`
	Status       Status  `json:"status"`
	Progress     int     `json:"progress"`
	CurrentStep  string  `json:"currentStep"`
	OverallScore *int    `json:"overallScore"`
	ErrorMessage *string `json:"errorMessage"`
}

func (s *Scan) Snapshot() Snapshot {
	return Snapshot{
		ScanID:       s.ID,
		Status:       s.Status,
		Progress:     s.Progress,
		CurrentStep:  s.CurrentStep,
		OverallScore: s.OverallScore,
		ErrorMessage: s.ErrorMessage,
	}
}

// SiteData is what the scraper learns about the target site.
type SiteData struct {
	URL         string   `json:"url"`
	Domain      string   `json:"domain"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Industry    string   `json:"industry"`
	Headings    []string `json:"headings,omitempty"`
	Keywords    []string `json:"keywords"`
	Services    []string `json:"services,omitempty"`
}
