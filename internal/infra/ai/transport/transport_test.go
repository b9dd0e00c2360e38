package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
)

func TestCaptureRecordsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"slow down"}`)
	}))
	defer srv.Close()

	ctx, rec := Record(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := NewClient(5 * time.Second).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"slow down"}` || string(rec.Body) != string(body) {
		t.Fatalf("body %q, recorded %q", body, rec.Body)
	}
	if rec.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Status)
	}
	if err := rec.Classify(errors.New("boom")); !errors.Is(err, ai.ErrQuotaExceeded) {
		t.Fatalf("429 must classify as quota: %v", err)
	}
}

func TestCaptureWithoutRecorder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	resp, err := NewClient(5 * time.Second).Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestClassifyKeepsOtherErrors(t *testing.T) {
	rec := &Recorder{Status: http.StatusInternalServerError}
	err := errors.New("boom")
	if got := rec.Classify(err); got != err {
		t.Fatalf("got %v", got)
	}
	if rec.Classify(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
