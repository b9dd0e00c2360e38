package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	DefaultModel = "gpt-4o-mini-search-preview"
	maxTokens    = 1024
)

type Client struct {
	api    *openai.Client
	apiKey string
	Model  string
}

// NewClient builds the ChatGPT adapter. baseURL may be empty.
func NewClient(apiKey, model, baseURL string, hc *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
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

func (c *Client) Platform() scans.Platform { return scans.PlatformOpenAI }

func (c *Client) Usable() bool { return c.apiKey != "" }

func (c *Client) Query(ctx context.Context, prompt string) (ai.QueryResult, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) only accept MaxCompletionTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	ctx, rec := transport.Record(ctx)
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), classify(rec, err))
	}

	var text strings.Builder
	for _, ch := range resp.Choices {
		text.WriteString(ch.Message.Content)
	}
	return ai.QueryResult{
		Text:       text.String(),
		Citations:  citations.Collect(urlCitations(rec.Body), text.String()),
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMS:  latency,
	}, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func classify(rec *transport.Recorder, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return rec.Classify(err)
}

// annotations are not part of the client's response type
type annotatedCompletion struct {
	Choices []struct {
		Message struct {
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					URL string `json:"url"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"message"`
	} `json:"choices"`
}

func urlCitations(body []byte) []string {
	var ac annotatedCompletion
	if len(body) == 0 || json.Unmarshal(body, &ac) != nil {
		return nil
	}
	var out []string
	for _, ch := range ac.Choices {
		for _, a := range ch.Message.Annotations {
			if a.Type == "url_citation" && a.URLCitation.URL != "" {
				out = append(out, a.URLCitation.URL)
			}
		}
	}
	return out
}
