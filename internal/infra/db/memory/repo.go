// Package memory is a process-local store used by the CLI and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bryanwahyu/geoscan/internal/domain/scanerrors"
	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

type responseKey struct {
	queryID  string
	platform scans.Platform
}

type Store struct {
	mu        sync.RWMutex
	scans     map[scans.ScanID]*scans.Scan
	queries   map[scans.ScanID][]*scans.Query
	responses map[scans.ScanID][]*scans.PlatformResponse
	byPair    map[responseKey]*scans.PlatformResponse
	results   map[scans.ScanID][]*scans.PlatformResult
	errors    []*scanerrors.ScanError
	nextErrID int64
}

func New() *Store {
	return &Store{
		scans:     map[scans.ScanID]*scans.Scan{},
		queries:   map[scans.ScanID][]*scans.Query{},
		responses: map[scans.ScanID][]*scans.PlatformResponse{},
		byPair:    map[responseKey]*scans.PlatformResponse{},
		results:   map[scans.ScanID][]*scans.PlatformResult{},
	}
}

func cloneScan(s *scans.Scan) *scans.Scan {
	c := *s
	c.Regions = append([]string(nil), s.Regions...)
	c.Keywords = append([]string(nil), s.Keywords...)
	return &c
}

func cloneResponse(r *scans.PlatformResponse) *scans.PlatformResponse {
	c := *r
	c.Citations = append([]string(nil), r.Citations...)
	return &c
}

func (m *Store) CreateScan(_ context.Context, s *scans.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[s.ID] = cloneScan(s)
	return nil
}

func (m *Store) GetScan(_ context.Context, id scans.ScanID) (*scans.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scans[id]
	if !ok {
		return nil, scans.ErrNotFound
	}
	return cloneScan(s), nil
}

func (m *Store) UpdateScan(_ context.Context, s *scans.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[s.ID]; !ok {
		return scans.ErrNotFound
	}
	m.scans[s.ID] = cloneScan(s)
	return nil
}

func (m *Store) ListScans(_ context.Context, page, pageSize int) (scans.PaginatedResult, error) {
	page, pageSize = scans.NormalizePage(page, pageSize)
	m.mu.RLock()
	all := make([]*scans.Scan, 0, len(m.scans))
	for _, s := range m.scans {
		all = append(all, cloneScan(s))
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return scans.PaginatedResult{
		Data:       all[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: scans.TotalPages(total, pageSize),
	}, nil
}

func (m *Store) SaveQueries(_ context.Context, qs []*scans.Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range qs {
		c := *q
		m.queries[q.ScanID] = append(m.queries[q.ScanID], &c)
	}
	return nil
}

func (m *Store) ListQueries(_ context.Context, id scans.ScanID) ([]*scans.Query, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*scans.Query, 0, len(m.queries[id]))
	for _, q := range m.queries[id] {
		c := *q
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *Store) SaveResponse(_ context.Context, r *scans.PlatformResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := responseKey{r.QueryID, r.Platform}
	if _, dup := m.byPair[key]; dup {
		return scans.ErrDuplicateResponse
	}
	c := cloneResponse(r)
	m.byPair[key] = c
	m.responses[r.ScanID] = append(m.responses[r.ScanID], c)
	return nil
}

func (m *Store) UpdateResponseAnalysis(_ context.Context, r *scans.PlatformResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byPair[responseKey{r.QueryID, r.Platform}]
	if !ok || stored.ID != r.ID {
		return scans.ErrNotFound
	}
	stored.Mentioned = r.Mentioned
	stored.MentionType = r.MentionType
	stored.MentionExcerpt = r.MentionExcerpt
	stored.CitationURL = r.CitationURL
	stored.Confidence = r.Confidence
	return nil
}

func (m *Store) ListResponses(_ context.Context, id scans.ScanID) ([]*scans.PlatformResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*scans.PlatformResponse, 0, len(m.responses[id]))
	for _, r := range m.responses[id] {
		out = append(out, cloneResponse(r))
	}
	return out, nil
}

func (m *Store) SaveResults(_ context.Context, rs []*scans.PlatformResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		c := *r
		m.results[r.ScanID] = append(m.results[r.ScanID], &c)
	}
	return nil
}

func (m *Store) ListResults(_ context.Context, id scans.ScanID) ([]*scans.PlatformResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*scans.PlatformResult, 0, len(m.results[id]))
	for _, r := range m.results[id] {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

// ErrorLog adapts the store to scanerrors.Repository.
func (m *Store) ErrorLog() scanerrors.Repository { return errorLog{m} }

type errorLog struct{ m *Store }

func (e errorLog) Save(_ context.Context, se *scanerrors.ScanError) error {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	e.m.nextErrID++
	se.ID = e.m.nextErrID
	c := *se
	e.m.errors = append(e.m.errors, &c)
	return nil
}

func (e errorLog) ListByScan(_ context.Context, scanID string, limit int) ([]*scanerrors.ScanError, error) {
	if limit <= 0 {
		limit = 100
	}
	e.m.mu.RLock()
	defer e.m.mu.RUnlock()
	out := []*scanerrors.ScanError{}
	for i := len(e.m.errors) - 1; i >= 0 && len(out) < limit; i-- {
		if se := e.m.errors[i]; se.ScanID == scanID {
			c := *se
			out = append(out, &c)
		}
	}
	return out, nil
}
