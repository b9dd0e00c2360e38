package scans

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bryanwahyu/geoscan/internal/application"
	appai "github.com/bryanwahyu/geoscan/internal/application/ai"
	"github.com/bryanwahyu/geoscan/internal/application/analyzer"
	"github.com/bryanwahyu/geoscan/internal/application/querygen"
	"github.com/bryanwahyu/geoscan/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Observer receives scan lifecycle events, e.g. for metrics.
type Observer interface {
	ScanStarted()
	ScanFinished(status domain.Status)
}

// Service implements use-cases untuk Scan.
// Artifacts, Publisher, Observer and Logger are optional.
type Service struct {
	Repo           domain.Repository
	Errors         scanerrors.Repository
	Scraper        domain.Scraper
	Generator      *querygen.Generator
	Adapters       *appai.Registry
	Detector       *analyzer.MentionDetector
	Scoring        *analyzer.ScoringEngine
	Analyzer       analyzer.OpportunityAnalyzer
	Regions        domain.RegionTable
	DefaultRegions []string // used when a scan is created without regions
	Artifacts      domain.ArtifactStore
	Publisher      domain.ProgressPublisher
	Observer       Observer
	Clock          application.Clock
	Logger         *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) regions() domain.RegionTable {
	if len(s.Regions) == 0 {
		return domain.DefaultRegions()
	}
	return s.Regions
}

//
// ==== USE CASES ====
//

// CreateScanCommand is the scan creation input.
type CreateScanCommand struct {
	URL     string   `json:"url"`
	Regions []string `json:"regions,omitempty"`
}

type CreateScanResult struct {
	ScanID domain.ScanID `json:"scanId"`
	Status domain.Status `json:"status"`
}

// CreateScan validates input and stores a PENDING scan. Nothing is
// persisted when validation fails.
func (s *Service) CreateScan(ctx context.Context, cmd CreateScanCommand) (CreateScanResult, error) {
	target, host, err := NormalizeURL(cmd.URL)
	if err != nil {
		return CreateScanResult{}, err
	}
	codes := cmd.Regions
	if len(codes) == 0 {
		codes = s.DefaultRegions
	}
	regions, err := ResolveRegions(s.regions(), codes)
	if err != nil {
		return CreateScanResult{}, err
	}
	codes = make([]string, len(regions))
	for i, r := range regions {
		codes[i] = r.Code
	}

	scan := &domain.Scan{
		ID:        domain.ScanID(uuid.New().String()),
		URL:       target,
		Domain:    host,
		Status:    domain.StatusPending,
		Regions:   codes,
		Keywords:  []string{},
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.CreateScan(ctx, scan); err != nil {
		return CreateScanResult{}, fmt.Errorf("create scan: %w", err)
	}
	s.logger().Info("scan created", "scan_id", scan.ID, "url", scan.URL, "regions", codes)
	return CreateScanResult{ScanID: scan.ID, Status: scan.Status}, nil
}

// StartScan creates the scan and runs the pipeline in the background
// with a context detached from the caller.
func (s *Service) StartScan(ctx context.Context, cmd CreateScanCommand) (CreateScanResult, error) {
	res, err := s.CreateScan(ctx, cmd)
	if err != nil {
		return res, err
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.Run(bg, res.ScanID); err != nil {
			s.logger().Error("background scan failed", "scan_id", res.ScanID, "err", err)
		}
	}()
	return res, nil
}

// Get ambil 1 scan by id
func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	return s.Repo.GetScan(ctx, id)
}

// Snapshot returns the pollable progress view.
func (s *Service) Snapshot(ctx context.Context, id domain.ScanID) (domain.Snapshot, error) {
	scan, err := s.Repo.GetScan(ctx, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return scan.Snapshot(), nil
}

// History lists scans newest first.
func (s *Service) History(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.Repo.ListScans(ctx, page, pageSize)
}

// QueryView is one query with the responses it received.
type QueryView struct {
	*domain.Query
	Responses []*domain.PlatformResponse `json:"responses"`
}

// Report is the full read model of a scan.
type Report struct {
	Scan    *domain.Scan             `json:"scan"`
	Results []*domain.PlatformResult `json:"results"`
	Queries []QueryView              `json:"queries"`
}

// Report loads a scan with results and per-query responses.
func (s *Service) Report(ctx context.Context, id domain.ScanID) (*Report, error) {
	scan, err := s.Repo.GetScan(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := s.Repo.ListResults(ctx, id)
	if err != nil {
		return nil, err
	}
	queries, err := s.Repo.ListQueries(ctx, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.Repo.ListResponses(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildReport(scan, results, queries, responses), nil
}

func buildReport(scan *domain.Scan, results []*domain.PlatformResult, queries []*domain.Query, responses []*domain.PlatformResponse) *Report {
	byQuery := map[string][]*domain.PlatformResponse{}
	for _, r := range responses {
		byQuery[r.QueryID] = append(byQuery[r.QueryID], r)
	}
	views := make([]QueryView, 0, len(queries))
	for _, q := range queries {
		rs := byQuery[q.ID]
		if rs == nil {
			rs = []*domain.PlatformResponse{}
		}
		views = append(views, QueryView{Query: q, Responses: rs})
	}
	if results == nil {
		results = []*domain.PlatformResult{}
	}
	return &Report{Scan: scan, Results: results, Queries: views}
}

func (s *Service) completedData(ctx context.Context, id domain.ScanID) (*domain.Scan, []*domain.Query, []*domain.PlatformResponse, error) {
	scan, err := s.Repo.GetScan(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if scan.Status != domain.StatusCompleted {
		return nil, nil, nil, fmt.Errorf("%w: status %s", domain.ErrNotComplete, scan.Status)
	}
	queries, err := s.Repo.ListQueries(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	responses, err := s.Repo.ListResponses(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return scan, queries, responses, nil
}

// Opportunities recomputes the advisory findings of a completed scan.
func (s *Service) Opportunities(ctx context.Context, id domain.ScanID) ([]analyzer.Opportunity, error) {
	scan, queries, responses, err := s.completedData(ctx, id)
	if err != nil {
		return nil, err
	}
	ops := s.Analyzer.Analyze(queries, responses, scan.Domain)
	if ops == nil {
		ops = []analyzer.Opportunity{}
	}
	return ops, nil
}

// Keywords mines answer text for terms the site does not target yet.
func (s *Service) Keywords(ctx context.Context, id domain.ScanID) ([]analyzer.DiscoveredKeyword, error) {
	scan, _, responses, err := s.completedData(ctx, id)
	if err != nil {
		return nil, err
	}
	kws := analyzer.DiscoverKeywords(responses, scan.Domain, scan.Keywords)
	if kws == nil {
		kws = []analyzer.DiscoveredKeyword{}
	}
	return kws, nil
}

// ScanErrors lists recorded provider failures of a scan.
func (s *Service) ScanErrors(ctx context.Context, id domain.ScanID, limit int) ([]*scanerrors.ScanError, error) {
	if _, err := s.Repo.GetScan(ctx, id); err != nil {
		return nil, err
	}
	if s.Errors == nil {
		return []*scanerrors.ScanError{}, nil
	}
	return s.Errors.ListByScan(ctx, string(id), limit)
}
