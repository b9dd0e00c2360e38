package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/citations"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/transport"
)

const (
	DefaultModel = "claude-sonnet-4-5-20250929"
	maxTokens    = 1024
)

// Client is the Claude adapter. Claude answers carry no structured
// sources, so citations come from the text only.
type Client struct {
	llm   *anthropic.LLM
	Model string
}

// NewClient returns an unusable client when apiKey is empty.
func NewClient(apiKey, model, baseURL string, hc *http.Client) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{Model: model}
	if apiKey == "" {
		return c, nil
	}
	opts := []anthropic.Option{anthropic.WithToken(apiKey), anthropic.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if hc != nil {
		opts = append(opts, anthropic.WithHTTPClient(hc))
	}
	llm, err := anthropic.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic client: %w", err)
	}
	c.llm = llm
	return c, nil
}

func (c *Client) Platform() scans.Platform { return scans.PlatformAnthropic }

func (c *Client) Usable() bool { return c.llm != nil }

func (c *Client) Query(ctx context.Context, prompt string) (ai.QueryResult, error) {
	if c.llm == nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), fmt.Errorf("api key not configured"))
	}
	ctx, rec := transport.Record(ctx)
	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithMaxTokens(maxTokens),
	)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), rec.Classify(err))
	}

	var text strings.Builder
	tokens := 0
	for i, ch := range resp.Choices {
		text.WriteString(ch.Content)
		// usage is repeated on every content block
		if i == 0 {
			tokens = intInfo(ch.GenerationInfo, "InputTokens") + intInfo(ch.GenerationInfo, "OutputTokens")
		}
	}
	return ai.QueryResult{
		Text:       text.String(),
		Citations:  citations.Collect(nil, text.String()),
		TokensUsed: tokens,
		LatencyMS:  latency,
	}, nil
}

func intInfo(info map[string]any, key string) int {
	if v, ok := info[key].(int); ok {
		return v
	}
	return 0
}
