package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
)

// SaveQueries inserts the whole battery in one transaction.
func (r *Repository) SaveQueries(ctx context.Context, qs []*domain.Query) error {
	if len(qs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ins := r.sb.Insert(tableQueries).Columns(queryColumns...)
	for _, q := range qs {
		ins = ins.Values(q.ID, q.ScanID, q.Position, q.Text, q.Keyword, q.Region, q.RegionLabel, q.Category, utc(q.CreatedAt))
	}
	if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert queries: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) ListQueries(ctx context.Context, id domain.ScanID) ([]*domain.Query, error) {
	rows, err := r.sb.Select(queryColumns...).From(tableQueries).
		Where(sq.Eq{"scan_id": id}).OrderBy("position ASC").
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying queries: %w", err)
	}
	defer rows.Close()

	out := []*domain.Query{}
	for rows.Next() {
		var q domain.Query
		if err := rows.Scan(&q.ID, &q.ScanID, &q.Position, &q.Text, &q.Keyword, &q.Region, &q.RegionLabel, &q.Category, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.CreatedAt = q.CreatedAt.UTC()
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (r *Repository) insertResponse(p *domain.PlatformResponse) sq.InsertBuilder {
	return r.sb.Insert(tableResponses).Columns(responseColumns...).Values(
		p.ID, p.QueryID, p.ScanID, p.Platform, p.Text, encodeList(p.Citations),
		p.TokensUsed, p.LatencyMS, p.Mentioned, p.MentionType,
		nullString(p.MentionExcerpt), nullString(p.CitationURL), p.Confidence, utc(p.CreatedAt),
	)
}

// SaveResponse relies on the (query_id, platform) unique key.
func (r *Repository) SaveResponse(ctx context.Context, p *domain.PlatformResponse) error {
	_, err := r.insertResponse(p).RunWith(r.db).ExecContext(ctx)
	if err != nil && r.dialect.IsDuplicate != nil && r.dialect.IsDuplicate(err) {
		return fmt.Errorf("%w: query %s platform %s", domain.ErrDuplicateResponse, p.QueryID, p.Platform)
	}
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (r *Repository) updateAnalysis(p *domain.PlatformResponse) sq.UpdateBuilder {
	return r.sb.Update(tableResponses).
		Set("mentioned", p.Mentioned).
		Set("mention_type", p.MentionType).
		Set("mention_excerpt", nullString(p.MentionExcerpt)).
		Set("citation_url", nullString(p.CitationURL)).
		Set("confidence", p.Confidence).
		Where(sq.Eq{"id": p.ID})
}

func (r *Repository) UpdateResponseAnalysis(ctx context.Context, p *domain.PlatformResponse) error {
	if _, err := r.updateAnalysis(p).RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update response %s: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) ListResponses(ctx context.Context, id domain.ScanID) ([]*domain.PlatformResponse, error) {
	rows, err := r.sb.Select(responseColumns...).From(tableResponses).
		Where(sq.Eq{"scan_id": id}).OrderBy("created_at ASC", "id ASC").
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying responses: %w", err)
	}
	defer rows.Close()

	out := []*domain.PlatformResponse{}
	for rows.Next() {
		var (
			p                 domain.PlatformResponse
			citations         string
			excerpt, citation sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.QueryID, &p.ScanID, &p.Platform, &p.Text, &citations,
			&p.TokensUsed, &p.LatencyMS, &p.Mentioned, &p.MentionType,
			&excerpt, &citation, &p.Confidence, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Citations = decodeList(citations)
		p.MentionExcerpt = stringPtr(excerpt)
		p.CitationURL = stringPtr(citation)
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *Repository) SaveResults(ctx context.Context, rs []*domain.PlatformResult) error {
	if len(rs) == 0 {
		return nil
	}
	ins := r.sb.Insert(tableResults).Columns(resultColumns...)
	for _, p := range rs {
		ins = ins.Values(p.ScanID, p.Platform, p.Score, p.TotalQueries, p.MentionCount, p.CitationCount)
	}
	if _, err := ins.RunWith(r.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

func (r *Repository) ListResults(ctx context.Context, id domain.ScanID) ([]*domain.PlatformResult, error) {
	rows, err := r.sb.Select(resultColumns...).From(tableResults).
		Where(sq.Eq{"scan_id": id}).OrderBy("platform ASC").
		RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	out := []*domain.PlatformResult{}
	for rows.Next() {
		var p domain.PlatformResult
		if err := rows.Scan(&p.ScanID, &p.Platform, &p.Score, &p.TotalQueries, &p.MentionCount, &p.CitationCount); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
