package sqlrepo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// Migrations returns the migration files for one dialect.
func Migrations(dialect string) (fs.FS, error) {
	return fs.Sub(migrations, "migrations/"+dialect)
}

func gooseDialect(name string) (goose.Dialect, error) {
	switch name {
	case "mysql":
		return goose.DialectMySQL, nil
	case "postgres":
		return goose.DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", name)
}

// Migrate applies every pending migration of d.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, logger *slog.Logger) error {
	gd, err := gooseDialect(d.Name)
	if err != nil {
		return err
	}
	fsys, err := Migrations(d.Name)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gd, db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration)
	}
	return nil
}
