package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
)

// maxCapture bounds how much of a provider body is kept in memory.
const maxCapture = 4 << 20

// Recorder holds the raw status and body of the last provider response
// seen on a context. SDK types drop fields we need (citations,
// annotations), so adapters decode them from Body.
type Recorder struct {
	Status int
	Body   []byte
}

type recorderKey struct{}

// Record attaches a fresh Recorder to ctx.
func Record(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// Classify wraps err with ai.ErrQuotaExceeded when the provider answered 429.
func (r *Recorder) Classify(err error) error {
	if err == nil {
		return nil
	}
	if r != nil && r.Status == http.StatusTooManyRequests && !errors.Is(err, ai.ErrQuotaExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return err
}

// Capture is an http.RoundTripper that copies the response into the
// request's Recorder, if any, and hands the SDK an unread body.
type Capture struct {
	Base http.RoundTripper
}

func (c Capture) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	rec, ok := req.Context().Value(recorderKey{}).(*Recorder)
	if !ok {
		return resp, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCapture))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	rec.Status = resp.StatusCode
	rec.Body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// NewClient returns the traced, capturing HTTP client shared by provider adapters.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Capture{Base: otelhttp.NewTransport(http.DefaultTransport)},
	}
}
