package scans

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appai "github.com/bryanwahyu/geoscan/internal/application/ai"
	"github.com/bryanwahyu/geoscan/internal/application/analyzer"
	"github.com/bryanwahyu/geoscan/internal/application/querygen"
	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/infra/db/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeScraper struct {
	site *domain.SiteData
	err  error
}

func (f fakeScraper) Scrape(context.Context, string) (*domain.SiteData, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.site
	return &c, nil
}

type fakeAdapter struct {
	platform domain.Platform
	usable   bool
	answer   func(prompt string) (ai.QueryResult, error)
	inflight *int32
	maxSeen  *int32
}

func (f *fakeAdapter) Platform() domain.Platform { return f.platform }
func (f *fakeAdapter) Usable() bool              { return f.usable }
func (f *fakeAdapter) Query(_ context.Context, prompt string) (ai.QueryResult, error) {
	if f.inflight != nil {
		n := atomic.AddInt32(f.inflight, 1)
		for {
			m := atomic.LoadInt32(f.maxSeen)
			if n <= m || atomic.CompareAndSwapInt32(f.maxSeen, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		defer atomic.AddInt32(f.inflight, -1)
	}
	return f.answer(prompt)
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (p *recordingPublisher) Publish(_ context.Context, s domain.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, s)
	return nil
}

type fakeStore struct {
	keys []string
	err  error
}

func (f *fakeStore) UploadJSON(_ context.Context, key string, _ any) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	return "http://minio/reports/" + key, nil
}

func site() *domain.SiteData {
	return &domain.SiteData{
		URL:      "https://example.com",
		Domain:   "example.com",
		Title:    "Example",
		Keywords: []string{"crm"},
	}
}

func newService(t *testing.T, sc domain.Scraper, adapters ...ai.PlatformAdapter) (*Service, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return &Service{
		Repo:      store,
		Errors:    store.ErrorLog(),
		Scraper:   sc,
		Generator: querygen.New(0, 0),
		Adapters:  appai.NewRegistry(adapters...),
		Detector:  analyzer.NewMentionDetector(),
		Scoring:   analyzer.NewScoringEngine(analyzer.DefaultPolicy()),
		Publisher: pub,
		Clock:     fixedClock{time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}, store, pub
}

func create(t *testing.T, svc *Service, regions ...string) domain.ScanID {
	t.Helper()
	res, err := svc.CreateScan(context.Background(), CreateScanCommand{URL: "example.com", Regions: regions})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != domain.StatusPending {
		t.Fatalf("status = %s", res.Status)
	}
	return res.ScanID
}

func ok(text string, cites ...string) func(string) (ai.QueryResult, error) {
	return func(string) (ai.QueryResult, error) {
		return ai.QueryResult{Text: text, Citations: cites, TokensUsed: 10, LatencyMS: 5}, nil
	}
}

func TestRunIsolatesProviderFailure(t *testing.T) {
	good := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("We recommend example.com for crm.")}
	bad := &fakeAdapter{platform: domain.PlatformGemini, usable: true, answer: func(string) (ai.QueryResult, error) {
		return ai.QueryResult{}, errors.New("connection reset")
	}}
	svc, store, _ := newService(t, fakeScraper{site: site()}, good, bad)
	id := create(t, svc, "global")
	ctx := context.Background()

	if err := svc.Run(ctx, id); err != nil {
		t.Fatal(err)
	}

	scan, _ := store.GetScan(ctx, id)
	if scan.Status != domain.StatusCompleted || scan.Progress != 100 || scan.OverallScore == nil {
		t.Fatalf("scan = %+v", scan)
	}
	queries, _ := store.ListQueries(ctx, id)
	responses, _ := store.ListResponses(ctx, id)
	if len(responses) != 2*len(queries) {
		t.Fatalf("responses = %d, queries = %d", len(responses), len(queries))
	}
	for _, r := range responses {
		switch r.Platform {
		case domain.PlatformGemini:
			if r.Text != "Error: connection reset" || r.Mentioned || r.MentionType != domain.MentionNone || r.Confidence != 0 {
				t.Fatalf("error response = %+v", r)
			}
		case domain.PlatformOpenAI:
			if r.MentionType != domain.MentionRecommendation || !r.Mentioned {
				t.Fatalf("ok response = %+v", r)
			}
		}
	}

	results, _ := store.ListResults(ctx, id)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.Platform == domain.PlatformGemini && (r.Score != 0 || r.TotalQueries != 0) {
			t.Fatalf("all-error platform = %+v", r)
		}
		if r.Platform == domain.PlatformOpenAI && r.Score != 80 {
			t.Fatalf("openai = %+v", r)
		}
	}
	// (0.25*80 + 0.25*0) / 0.5
	if *scan.OverallScore != 40 {
		t.Fatalf("overall = %d", *scan.OverallScore)
	}

	errs, _ := svc.ScanErrors(ctx, id, 0)
	if len(errs) != len(queries) || errs[0].Platform != string(domain.PlatformGemini) {
		t.Fatalf("scan errors = %+v", errs)
	}
}

func TestRunWithoutUsableAdapters(t *testing.T) {
	off := &fakeAdapter{platform: domain.PlatformOpenAI, usable: false, answer: ok("x")}
	svc, store, _ := newService(t, fakeScraper{site: site()}, off)
	id := create(t, svc)
	ctx := context.Background()

	err := svc.Run(ctx, id)
	var fatal *domain.PipelineFatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("want PipelineFatalError, got %v", err)
	}
	scan, _ := store.GetScan(ctx, id)
	if scan.Status != domain.StatusFailed || scan.ErrorMessage == nil || !strings.Contains(*scan.ErrorMessage, "OPENAI_API_KEY") {
		t.Fatalf("scan = %+v", scan)
	}
	if qs, _ := store.ListQueries(ctx, id); len(qs) != 0 {
		t.Fatalf("no query may be persisted, got %d", len(qs))
	}
	if scan.Progress != progressGenerating {
		t.Fatalf("progress must stay at %d, got %d", progressGenerating, scan.Progress)
	}
}

func TestRunScrapeFailure(t *testing.T) {
	a := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("x")}
	svc, store, _ := newService(t, fakeScraper{err: errors.New("HTTP 503")}, a)
	id := create(t, svc)

	if err := svc.Run(context.Background(), id); err == nil {
		t.Fatal("want error")
	}
	scan, _ := store.GetScan(context.Background(), id)
	if scan.Status != domain.StatusFailed || *scan.ErrorMessage != "Failed to analyze website: HTTP 503" {
		t.Fatalf("scan = %+v", scan)
	}
	if scan.CurrentStep != "Scan failed" || scan.Progress != progressScraping {
		t.Fatalf("scan = %+v", scan)
	}
}

func TestRunNoKeywords(t *testing.T) {
	a := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("x")}
	s := site()
	s.Keywords = nil
	svc, store, _ := newService(t, fakeScraper{site: s}, a)
	id := create(t, svc)

	_ = svc.Run(context.Background(), id)
	scan, _ := store.GetScan(context.Background(), id)
	if scan.Status != domain.StatusFailed || *scan.ErrorMessage != "Could not generate any queries from website content" {
		t.Fatalf("scan = %+v", scan)
	}
}

func TestRunProgressMonotonic(t *testing.T) {
	var inflight, maxSeen int32
	mk := func(p domain.Platform) *fakeAdapter {
		return &fakeAdapter{platform: p, usable: true, answer: ok("nothing relevant"), inflight: &inflight, maxSeen: &maxSeen}
	}
	svc, _, pub := newService(t, fakeScraper{site: site()},
		mk(domain.PlatformOpenAI), mk(domain.PlatformAnthropic), mk(domain.PlatformGemini))
	id := create(t, svc, "us", "uk")

	if err := svc.Run(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	last := -1
	for i, s := range pub.snaps {
		if s.Progress < last {
			t.Fatalf("progress went backwards at %d: %d -> %d", i, last, s.Progress)
		}
		if s.Progress == 100 && s.Status != domain.StatusCompleted {
			t.Fatalf("100 outside COMPLETED: %+v", s)
		}
		last = s.Progress
	}
	final := pub.snaps[len(pub.snaps)-1]
	if final.Status != domain.StatusCompleted || final.Progress != 100 || final.OverallScore == nil || *final.OverallScore != 0 {
		t.Fatalf("final = %+v", final)
	}
	if maxSeen > 3 {
		t.Fatalf("more than one query in flight: %d concurrent calls", maxSeen)
	}
}

// barrier releases a prompt's callers only once all n of them have arrived.
type barrier struct {
	n     int
	mu    sync.Mutex
	count map[string]int
	gates map[string]chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, count: map[string]int{}, gates: map[string]chan struct{}{}}
}

func (b *barrier) wait(prompt string) error {
	b.mu.Lock()
	gate, ok := b.gates[prompt]
	if !ok {
		gate = make(chan struct{})
		b.gates[prompt] = gate
	}
	b.count[prompt]++
	if b.count[prompt] == b.n {
		close(gate)
	}
	b.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("providers were called one at a time")
	}
}

func TestRunQueriesProvidersConcurrently(t *testing.T) {
	var inflight, maxSeen int32
	platforms := []domain.Platform{domain.PlatformOpenAI, domain.PlatformAnthropic, domain.PlatformGemini, domain.PlatformPerplexity}
	b := newBarrier(len(platforms))
	var adapters []ai.PlatformAdapter
	for _, p := range platforms {
		adapters = append(adapters, &fakeAdapter{
			platform: p,
			usable:   true,
			inflight: &inflight,
			maxSeen:  &maxSeen,
			answer: func(prompt string) (ai.QueryResult, error) {
				if err := b.wait(prompt); err != nil {
					return ai.QueryResult{}, err
				}
				return ai.QueryResult{Text: "nothing relevant"}, nil
			},
		})
	}
	svc, store, _ := newService(t, fakeScraper{site: site()}, adapters...)
	id := create(t, svc, "global")
	ctx := context.Background()

	if err := svc.Run(ctx, id); err != nil {
		t.Fatal(err)
	}
	responses, _ := store.ListResponses(ctx, id)
	if len(responses) == 0 {
		t.Fatal("no responses stored")
	}
	for _, r := range responses {
		if strings.HasPrefix(r.Text, "Error:") {
			t.Fatalf("%s: %s", r.Platform, r.Text)
		}
	}
	if got := atomic.LoadInt32(&maxSeen); got != int32(len(platforms)) {
		t.Fatalf("max in flight = %d, want %d", got, len(platforms))
	}
}

func TestRunArchivesReport(t *testing.T) {
	a := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("x")}
	svc, store, _ := newService(t, fakeScraper{site: site()}, a)
	fs := &fakeStore{}
	svc.Artifacts = fs
	id := create(t, svc, "global")

	if err := svc.Run(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	scan, _ := store.GetScan(context.Background(), id)
	if len(fs.keys) != 1 || scan.ReportURL != "http://minio/reports/scans/"+string(id)+"/report.json" {
		t.Fatalf("keys = %v, url = %q", fs.keys, scan.ReportURL)
	}
}

func TestRunArchiveFailureNotFatal(t *testing.T) {
	a := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("x")}
	svc, store, _ := newService(t, fakeScraper{site: site()}, a)
	svc.Artifacts = &fakeStore{err: errors.New("bucket gone")}
	id := create(t, svc, "global")

	if err := svc.Run(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	scan, _ := store.GetScan(context.Background(), id)
	if scan.Status != domain.StatusCompleted || scan.ReportURL != "" {
		t.Fatalf("scan = %+v", scan)
	}
}

func TestRunRejectsNonPending(t *testing.T) {
	a := &fakeAdapter{platform: domain.PlatformOpenAI, usable: true, answer: ok("x")}
	svc, _, _ := newService(t, fakeScraper{site: site()}, a)
	id := create(t, svc, "global")
	if err := svc.Run(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if err := svc.Run(context.Background(), id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second run: %v", err)
	}
}

func TestQueryProgress(t *testing.T) {
	tests := []struct{ done, total, want int }{
		{0, 10, 20}, {1, 10, 26}, {5, 10, 48}, {10, 10, 75}, {0, 0, 20},
	}
	for _, tt := range tests {
		if got := QueryProgress(tt.done, tt.total); got != tt.want {
			t.Errorf("QueryProgress(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}
