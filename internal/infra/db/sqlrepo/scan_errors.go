package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/bryanwahyu/geoscan/internal/domain/scanerrors"
)

const defaultErrorLimit = 100

var errorColumns = []string{"scan_id", "query_id", "platform", "phase", "message", "created_at"}

// ScanErrorRepository implements scanerrors.Repository.
type ScanErrorRepository struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
}

func NewScanErrorRepository(db *sql.DB, d Dialect) *ScanErrorRepository {
	return &ScanErrorRepository{db: db, dialect: d, sb: sq.StatementBuilder.PlaceholderFormat(d.Placeholder)}
}

func (r *ScanErrorRepository) insert(e *scanerrors.ScanError) sq.InsertBuilder {
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	ins := r.sb.Insert(tableErrors).Columns(errorColumns...).
		Values(orDash(e.ScanID), orDash(e.QueryID), orDash(e.Platform), orDash(e.Phase), msg, created.UTC())
	if r.dialect.Returning {
		ins = ins.Suffix("RETURNING id")
	}
	return ins
}

// Save stores e and fills in its generated id.
func (r *ScanErrorRepository) Save(ctx context.Context, e *scanerrors.ScanError) error {
	ins := r.insert(e)
	if r.dialect.Returning {
		if err := ins.RunWith(r.db).QueryRowContext(ctx).Scan(&e.ID); err != nil {
			return fmt.Errorf("insert scan error: %w", err)
		}
		return nil
	}
	res, err := ins.RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert scan error: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *ScanErrorRepository) list(scanID string, limit int) sq.SelectBuilder {
	if limit <= 0 {
		limit = defaultErrorLimit
	}
	return r.sb.Select(append([]string{"id"}, errorColumns...)...).From(tableErrors).
		Where(sq.Eq{"scan_id": scanID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))
}

// ListByScan returns newest first.
func (r *ScanErrorRepository) ListByScan(ctx context.Context, scanID string, limit int) ([]*scanerrors.ScanError, error) {
	rows, err := r.list(scanID, limit).RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying scan errors: %w", err)
	}
	defer rows.Close()

	out := []*scanerrors.ScanError{}
	for rows.Next() {
		var e scanerrors.ScanError
		if err := rows.Scan(&e.ID, &e.ScanID, &e.QueryID, &e.Platform, &e.Phase, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
