// Package mysql registers the MySQL driver and describes its dialect.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	driver "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/geoscan/internal/infra/db/sqlrepo"
)

// erDupEntry is MySQL error 1062, duplicate key.
const erDupEntry = 1062

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Dialect uses ? placeholders and LastInsertId.
func Dialect() sqlrepo.Dialect {
	return sqlrepo.Dialect{
		Name:        "mysql",
		Placeholder: sq.Question,
		IsDuplicate: IsDuplicate,
	}
}

func IsDuplicate(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}
