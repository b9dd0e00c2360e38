// Package sqlrepo persists scans through database/sql for MySQL and
// Postgres. Statements are built with squirrel so one code path serves
// both placeholder styles.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// Dialect captures what differs between the supported engines.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	Returning   bool // inserts report generated ids via RETURNING
	IsDuplicate func(error) bool
}

const (
	tableScans     = "scans"
	tableQueries   = "scan_queries"
	tableResponses = "platform_responses"
	tableResults   = "platform_results"
	tableErrors    = "scan_errors"
)

var scanColumns = []string{
	"id", "url", "domain", "status", "progress", "current_step", "regions",
	"website_title", "website_description", "industry", "keywords",
	"overall_score", "error_message", "report_url",
	"created_at", "started_at", "completed_at",
}

var queryColumns = []string{
	"id", "scan_id", "position", "text", "keyword", "region", "region_label", "category", "created_at",
}

var responseColumns = []string{
	"id", "query_id", "scan_id", "platform", "response_text", "citations",
	"tokens_used", "latency_ms", "mentioned", "mention_type",
	"mention_excerpt", "citation_url", "confidence", "created_at",
}

var resultColumns = []string{
	"scan_id", "platform", "score", "total_queries", "mention_count", "citation_count",
}

// Repository implements scans.Repository.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

func New(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, dialect: d, sb: sq.StatementBuilder.PlaceholderFormat(d.Placeholder)}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) insertScan(s *domain.Scan) sq.InsertBuilder {
	return r.sb.Insert(tableScans).Columns(scanColumns...).Values(
		s.ID, s.URL, s.Domain, s.Status, s.Progress, s.CurrentStep, encodeList(s.Regions),
		s.WebsiteTitle, s.WebsiteDesc, s.Industry, encodeList(s.Keywords),
		nullInt(s.OverallScore), nullString(s.ErrorMessage), s.ReportURL,
		utc(s.CreatedAt), nullTime(s.StartedAt), nullTime(s.CompletedAt),
	)
}

// updateScan writes every mutable column in one statement.
func (r *Repository) updateScan(s *domain.Scan) sq.UpdateBuilder {
	return r.sb.Update(tableScans).SetMap(map[string]any{
		"status":              s.Status,
		"progress":            s.Progress,
		"current_step":        s.CurrentStep,
		"website_title":       s.WebsiteTitle,
		"website_description": s.WebsiteDesc,
		"industry":            s.Industry,
		"keywords":            encodeList(s.Keywords),
		"overall_score":       nullInt(s.OverallScore),
		"error_message":       nullString(s.ErrorMessage),
		"report_url":          s.ReportURL,
		"started_at":          nullTime(s.StartedAt),
		"completed_at":        nullTime(s.CompletedAt),
	}).Where(sq.Eq{"id": s.ID})
}

func (r *Repository) CreateScan(ctx context.Context, s *domain.Scan) error {
	if _, err := r.insertScan(s).RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// GetScan ambil 1 scan by id
func (r *Repository) GetScan(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	row := r.sb.Select(scanColumns...).From(tableScans).
		Where(sq.Eq{"id": id}).Limit(1).
		RunWith(r.db).QueryRowContext(ctx)
	s, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return s, err
}

func (r *Repository) UpdateScan(ctx context.Context, s *domain.Scan) error {
	if _, err := r.updateScan(s).RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update scan %s: %w", s.ID, err)
	}
	return nil
}

// ListScans paginates newest first with offset + limit.
func (r *Repository) ListScans(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	var total int64
	if err := r.sb.Select("COUNT(*)").From(tableScans).RunWith(r.db).QueryRowContext(ctx).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("counting scans: %w", err)
	}

	rows, err := r.sb.Select(scanColumns...).From(tableScans).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).Offset(uint64(offset)).
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	data := []*domain.Scan{}
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		data = append(data, s)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: domain.TotalPages(total, pageSize),
	}, nil
}

func scanScan(row rowScanner) (*domain.Scan, error) {
	var (
		s                  domain.Scan
		regions, keywords  string
		score              sql.NullInt64
		errMsg             sql.NullString
		started, completed sql.NullTime
	)
	if err := row.Scan(
		&s.ID, &s.URL, &s.Domain, &s.Status, &s.Progress, &s.CurrentStep, &regions,
		&s.WebsiteTitle, &s.WebsiteDesc, &s.Industry, &keywords,
		&score, &errMsg, &s.ReportURL,
		&s.CreatedAt, &started, &completed,
	); err != nil {
		return nil, err
	}
	s.Regions = decodeList(regions)
	s.Keywords = decodeList(keywords)
	if score.Valid {
		v := int(score.Int64)
		s.OverallScore = &v
	}
	if errMsg.Valid {
		s.ErrorMessage = &errMsg.String
	}
	s.StartedAt = timePtr(started)
	s.CompletedAt = timePtr(completed)
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
