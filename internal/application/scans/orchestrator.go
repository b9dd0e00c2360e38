package scans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/geoscan/internal/application/querygen"
	"github.com/bryanwahyu/geoscan/internal/domain/ai"
	"github.com/bryanwahyu/geoscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Step labels shown to pollers.
const (
	stepScraping   = "Analyzing website content..."
	stepGenerating = "Generating search queries..."
	stepQuerying   = "Querying AI platforms..."
	stepQueried    = "Queried %d/%d platform responses..."
	stepAnalyzing  = "Analyzing AI responses..."
	stepScoring    = "Calculating visibility scores..."
)

const (
	progressScraping   = 5
	progressGenerating = 15
	progressQuerying   = 20
	progressQuerySpan  = 55
	progressAnalyzing  = 80
	progressScoring    = 90
)

const noPlatformsMessage = "No AI platforms configured. Set at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_GEMINI_API_KEY, PERPLEXITY_API_KEY."

// QueryProgress is the QUERYING_PLATFORMS progress after done of total pairs settled.
func QueryProgress(done, total int) int {
	if total <= 0 {
		return progressQuerying
	}
	return progressQuerying + int(math.Round(float64(progressQuerySpan)*float64(done)/float64(total)))
}

// scanRun is the single writer of one scan for the duration of Run.
type scanRun struct {
	svc  *Service
	scan *domain.Scan
	log  *slog.Logger
}

// outcome is one settled (query, platform) call.
type outcome struct {
	platform domain.Platform
	result   ai.QueryResult
	err      error
}

// Run drives one PENDING scan to COMPLETED or FAILED. A fatal error is
// recorded on the scan and also returned.
func (s *Service) Run(ctx context.Context, id domain.ScanID) error {
	scan, err := s.Repo.GetScan(ctx, id)
	if err != nil {
		return fmt.Errorf("load scan %s: %w", id, err)
	}
	if scan.Status != domain.StatusPending {
		return fmt.Errorf("%w: scan %s is %s", domain.ErrInvalidTransition, id, scan.Status)
	}
	run := &scanRun{svc: s, scan: scan, log: s.logger().With("scan_id", id)}
	if s.Observer != nil {
		s.Observer.ScanStarted()
		defer func() { s.Observer.ScanFinished(run.scan.Status) }()
	}

	err = run.execute(ctx)
	if err == nil {
		run.log.Info("scan completed", "score", *scan.OverallScore)
		return nil
	}
	var fatal *domain.PipelineFatalError
	if !errors.As(err, &fatal) {
		fatal = domain.Fatal(scan.Status, err, "Scan failed: %v", err)
	}
	run.fail(ctx, fatal)
	return fatal
}

func (r *scanRun) execute(ctx context.Context) error {
	s := r.svc
	now := s.Clock.Now()
	r.scan.StartedAt = &now

	// 1. scrape
	if err := r.advance(ctx, domain.StatusScraping, progressScraping, stepScraping); err != nil {
		return err
	}
	site, err := s.Scraper.Scrape(ctx, r.scan.URL)
	if err != nil {
		return domain.Fatal(domain.StatusScraping, err, "Failed to analyze website: %v", err)
	}
	r.scan.WebsiteTitle = site.Title
	r.scan.WebsiteDesc = site.Description
	r.scan.Industry = site.Industry
	r.scan.Keywords = append([]string{}, site.Keywords...)
	if site.Domain == "" {
		site.Domain = r.scan.Domain
	}

	// 2. generate queries
	if err := r.advance(ctx, domain.StatusGeneratingQueries, progressGenerating, stepGenerating); err != nil {
		return err
	}
	gen := s.Generator
	if gen == nil {
		gen = querygen.New(0, 0)
	}
	queries := gen.Generate(*site, s.regions().Select(r.scan.Regions))
	if len(queries) == 0 {
		return domain.Fatal(domain.StatusGeneratingQueries, nil, "Could not generate any queries from website content")
	}
	var adapters []ai.PlatformAdapter
	if s.Adapters != nil {
		adapters = s.Adapters.Usable()
	}
	if len(adapters) == 0 {
		return domain.Fatal(domain.StatusGeneratingQueries, nil, noPlatformsMessage)
	}
	created := s.Clock.Now()
	for _, q := range queries {
		q.ID = uuid.New().String()
		q.ScanID = r.scan.ID
		q.CreatedAt = created
	}
	if err := s.Repo.SaveQueries(ctx, queries); err != nil {
		return fmt.Errorf("save queries: %w", err)
	}

	// 3. fan out
	if err := r.advance(ctx, domain.StatusQueryingPlatforms, progressQuerying, stepQuerying); err != nil {
		return err
	}
	responses, err := r.queryAll(ctx, queries, adapters)
	if err != nil {
		return err
	}

	// 4. classify and score
	if err := r.advance(ctx, domain.StatusAnalyzing, progressAnalyzing, stepAnalyzing); err != nil {
		return err
	}
	for _, resp := range responses {
		if resp.IsError() {
			continue
		}
		m := s.Detector.Detect(resp.Text, r.scan.URL, r.scan.Domain, resp.Citations)
		resp.Mentioned = m.Mentioned
		resp.MentionType = m.Type
		resp.Confidence = m.Confidence
		resp.MentionExcerpt = m.Excerpt
		resp.CitationURL = m.CitationURL
		if err := s.Repo.UpdateResponseAnalysis(ctx, resp); err != nil {
			return fmt.Errorf("update response %s: %w", resp.ID, err)
		}
	}

	if err := r.advance(ctx, domain.StatusAnalyzing, progressScoring, stepScoring); err != nil {
		return err
	}
	results := s.Scoring.ScoreAll(r.scan.ID, responses)
	if err := s.Repo.SaveResults(ctx, results); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	overall := s.Scoring.Overall(results)

	// 5. finalize
	r.archive(ctx, overall, results, queries, responses)
	if err := r.scan.Complete(overall, s.Clock.Now()); err != nil {
		return err
	}
	return r.persist(ctx)
}

// queryAll runs queries one at a time; each query fans out to every
// adapter and all calls settle before the next query starts.
func (r *scanRun) queryAll(ctx context.Context, queries []*domain.Query, adapters []ai.PlatformAdapter) ([]*domain.PlatformResponse, error) {
	total := len(queries) * len(adapters)
	done := 0
	responses := make([]*domain.PlatformResponse, 0, total)

	for _, q := range queries {
		// buffered so senders never block on an early return
		outcomes := make(chan outcome, len(adapters))
		var g errgroup.Group
		g.SetLimit(len(adapters))
		for _, a := range adapters {
			g.Go(func() error {
				res, err := a.Query(ctx, q.Text)
				outcomes <- outcome{platform: a.Platform(), result: res, err: ai.CallError(a.Platform(), err)}
				return nil
			})
		}
		go func() {
			_ = g.Wait()
			close(outcomes)
		}()

		for o := range outcomes {
			resp, err := r.record(ctx, q, o)
			if err != nil {
				return nil, err
			}
			if resp != nil {
				responses = append(responses, resp)
			}
			done++
			step := fmt.Sprintf(stepQueried, done, total)
			if err := r.advance(ctx, domain.StatusQueryingPlatforms, QueryProgress(done, total), step); err != nil {
				return nil, err
			}
		}
	}
	return responses, nil
}

// record persists one settled call. Failures become NOT_MENTIONED error
// responses with confidence 0.
func (r *scanRun) record(ctx context.Context, q *domain.Query, o outcome) (*domain.PlatformResponse, error) {
	now := r.svc.Clock.Now()
	resp := &domain.PlatformResponse{
		ID:          uuid.New().String(),
		QueryID:     q.ID,
		ScanID:      r.scan.ID,
		Platform:    o.platform,
		Citations:   []string{},
		MentionType: domain.MentionNone,
		CreatedAt:   now,
	}
	if o.err != nil {
		msg := o.err.Error()
		var pe *ai.ProviderCallError
		if errors.As(o.err, &pe) && pe.Err != nil {
			msg = pe.Err.Error()
		}
		resp.Text = domain.ErrorPrefix + " " + msg
		r.log.Warn("platform call failed", "query_id", q.ID, "platform", o.platform, "err", o.err)
		if r.svc.Errors != nil {
			se := &scanerrors.ScanError{
				ScanID:    string(r.scan.ID),
				QueryID:   q.ID,
				Platform:  string(o.platform),
				Phase:     string(domain.StatusQueryingPlatforms),
				Message:   msg,
				CreatedAt: now,
			}
			if err := r.svc.Errors.Save(ctx, se); err != nil {
				r.log.Warn("save scan error failed", "err", err)
			}
		}
	} else {
		resp.Text = o.result.Text
		resp.TokensUsed = o.result.TokensUsed
		resp.LatencyMS = o.result.LatencyMS
		if o.result.Citations != nil {
			resp.Citations = o.result.Citations
		}
	}

	if err := r.svc.Repo.SaveResponse(ctx, resp); err != nil {
		if errors.Is(err, domain.ErrDuplicateResponse) {
			r.log.Warn("duplicate response skipped", "query_id", q.ID, "platform", o.platform)
			return nil, nil
		}
		return nil, fmt.Errorf("save response: %w", err)
	}
	return resp, nil
}

// archive uploads the final report. Failure is logged only.
func (r *scanRun) archive(ctx context.Context, overall int, results []*domain.PlatformResult, queries []*domain.Query, responses []*domain.PlatformResponse) {
	if r.svc.Artifacts == nil {
		return
	}
	snapshot := *r.scan
	snapshot.OverallScore = &overall
	key := fmt.Sprintf("scans/%s/report.json", r.scan.ID)
	url, err := r.svc.Artifacts.UploadJSON(ctx, key, buildReport(&snapshot, results, queries, responses))
	if err != nil {
		r.log.Warn("report archive failed", "key", key, "err", err)
		return
	}
	r.scan.ReportURL = url
}

func (r *scanRun) advance(ctx context.Context, to domain.Status, progress int, step string) error {
	if err := r.scan.Advance(to, progress, step); err != nil {
		return err
	}
	return r.persist(ctx)
}

// persist writes the scan row, then publishes its snapshot.
func (r *scanRun) persist(ctx context.Context) error {
	if err := r.svc.Repo.UpdateScan(ctx, r.scan); err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if r.svc.Publisher != nil {
		if err := r.svc.Publisher.Publish(ctx, r.scan.Snapshot()); err != nil {
			r.log.Warn("publish progress failed", "err", err)
		}
	}
	return nil
}

func (r *scanRun) fail(ctx context.Context, fatal *domain.PipelineFatalError) {
	r.log.Error("scan failed", "phase", fatal.Phase, "err", fatal)
	if err := r.scan.Fail(fatal.Message); err != nil {
		r.log.Error("cannot mark scan failed", "err", err)
		return
	}
	if err := r.persist(context.WithoutCancel(ctx)); err != nil {
		r.log.Error("persist failed scan", "err", err)
	}
}
