// Package postgres registers lib/pq and describes the Postgres dialect.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/bryanwahyu/geoscan/internal/infra/db/sqlrepo"
)

const uniqueViolation = "23505"

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Dialect uses $n placeholders and RETURNING for generated ids.
func Dialect() sqlrepo.Dialect {
	return sqlrepo.Dialect{
		Name:        "postgres",
		Placeholder: sq.Dollar,
		Returning:   true,
		IsDuplicate: IsDuplicate,
	}
}

func IsDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
