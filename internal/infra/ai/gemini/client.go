package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/citations"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/transport"
)

const DefaultModel = "gemini-2.0-flash"

// Client is the Gemini adapter; every call enables Google Search grounding.
type Client struct {
	api   *genai.Client
	Model string
}

// NewClient returns an unusable client when apiKey is empty.
func NewClient(ctx context.Context, apiKey, model, baseURL string, hc *http.Client) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{Model: model}
	if apiKey == "" {
		return c, nil
	}
	cc := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  hc,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	}
	api, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.api = api
	return c, nil
}

func (c *Client) Platform() scans.Platform { return scans.PlatformGemini }

func (c *Client) Usable() bool { return c.api != nil }

func (c *Client) Query(ctx context.Context, prompt string) (ai.QueryResult, error) {
	if c.api == nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), fmt.Errorf("api key not configured"))
	}
	ctx, rec := transport.Record(ctx)
	start := time.Now()
	resp, err := c.api.Models.GenerateContent(ctx, c.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return ai.QueryResult{}, ai.CallError(c.Platform(), classify(rec, err))
	}

	text := resp.Text()
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return ai.QueryResult{
		Text:       text,
		Citations:  citations.Collect(groundingURIs(resp), text),
		TokensUsed: tokens,
		LatencyMS:  latency,
	}, nil
}

func classify(rec *transport.Recorder, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return rec.Classify(err)
}

func groundingURIs(resp *genai.GenerateContentResponse) []string {
	var out []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
				out = append(out, chunk.Web.URI)
			}
		}
	}
	return out
}
