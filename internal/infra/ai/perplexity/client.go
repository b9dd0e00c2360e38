package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/citations"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/transport"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar"
	maxTokens      = 1024
)

// Client talks to Perplexity through its OpenAI-compatible endpoint.
type Client struct {
	api    *openai.Client
	apiKey string
	Model  string
}

func NewClient(apiKey, model, baseURL string, hc *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = DefaultBaseURL
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: openai.NewClientWithConfig(cfg), apiKey: apiKey, Model: model}
}

func (c *Client) Platform() scans.Platform { return scans.PlatformPerplexity }

func (c *Client) Usable() bool { return c.apiKey != "" }

func (c *Client) Query(ctx context.Context, prompt string) (ai.QueryResult, error) {
	ctx, rec := transport.Record(ctx)
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), rec.Classify(err))
	}

	var text strings.Builder
	for _, ch := range resp.Choices {
		text.WriteString(ch.Message.Content)
	}
	return ai.QueryResult{
		Text:       text.String(),
		Citations:  citations.Collect(responseCitations(rec.Body), text.String()),
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMS:  latency,
	}, nil
}

// Perplexity returns sources at the top level of the completion.
func responseCitations(body []byte) []string {
	var payload struct {
		Citations     []string `json:"citations"`
		SearchResults []struct {
			URL string `json:"url"`
		} `json:"search_results"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return nil
	}
	out := payload.Citations
	for _, r := range payload.SearchResults {
		out = append(out, r.URL)
	}
	return out
}
