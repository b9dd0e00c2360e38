package scans

import "context"

// Repository port (interface untuk persistence)
// UpdateScan must write the whole mutable row in one statement.
type Repository interface {
	CreateScan(ctx context.Context, s *Scan) error
	GetScan(ctx context.Context, id ScanID) (*Scan, error)
	UpdateScan(ctx context.Context, s *Scan) error
	ListScans(ctx context.Context, page, pageSize int) (PaginatedResult, error)

	SaveQueries(ctx context.Context, qs []*Query) error
	ListQueries(ctx context.Context, id ScanID) ([]*Query, error)

	// SaveResponse rejects a second response for the same (query, platform).
	SaveResponse(ctx context.Context, r *PlatformResponse) error
	UpdateResponseAnalysis(ctx context.Context, r *PlatformResponse) error
	ListResponses(ctx context.Context, id ScanID) ([]*PlatformResponse, error)

	SaveResults(ctx context.Context, rs []*PlatformResult) error
	ListResults(ctx context.Context, id ScanID) ([]*PlatformResult, error)
}

// Scraper port, fetches the target site and infers keywords.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*SiteData, error)
}

// ArtifactStore port (interface untuk penyimpanan report)
type ArtifactStore interface {
	UploadJSON(ctx context.Context, key string, v any) (string, error)
}

// ProgressPublisher receives every snapshot the orchestrator writes.
type ProgressPublisher interface {
	Publish(ctx context.Context, snap Snapshot) error
}
