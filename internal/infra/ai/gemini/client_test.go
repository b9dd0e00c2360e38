package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/transport"
)

func TestQueryUsesGroundingChunks(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultModel+":generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "gk" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
		  "candidates": [{
		    "content": {"role": "model", "parts": [{"text": "Example leads the pack. More at https://news.io/x"}]},
		    "groundingMetadata": {"groundingChunks": [
		      {"web": {"uri": "https://vertexaisearch.cloud.google.com/grounding/abc", "title": "example.com"}},
		      {"web": {"uri": "https://news.io/x"}}
		    ]}
		  }],
		  "usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 20, "totalTokenCount": 27}
		}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "gk", "", srv.URL+"/", transport.NewClient(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Query(context.Background(), "best crm")
	if err != nil {
		t.Fatal(err)
	}
	tools, _ := req["tools"].([]any)
	if len(tools) != 1 {
		t.Errorf("tools = %v", req["tools"])
	}
	want := []string{"https://vertexaisearch.cloud.google.com/grounding/abc", "https://news.io/x"}
	if !reflect.DeepEqual(res.Citations, want) {
		t.Errorf("citations = %v", res.Citations)
	}
	if res.TokensUsed != 27 || res.Text != "Example leads the pack. More at https://news.io/x" {
		t.Errorf("got %+v", res)
	}
}

func TestQueryQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "gk", "", srv.URL+"/", transport.NewClient(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Query(context.Background(), "q")
	var pe *ai.ProviderCallError
	if !errors.As(err, &pe) || !errors.Is(err, ai.ErrQuotaExceeded) {
		t.Fatalf("want quota ProviderCallError, got %v", err)
	}
}

func TestNoKey(t *testing.T) {
	c, err := NewClient(context.Background(), "", "", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Usable() {
		t.Fatal("must not be usable without key")
	}
}
