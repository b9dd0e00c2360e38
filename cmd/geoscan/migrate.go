package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/geoscan/internal/config"
	"github.com/bryanwahyu/geoscan/internal/infra/db/sqlrepo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured driver",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()
		return migrateDB(cmd.Context(), cfg, logger)
	},
}

func migrateDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return sqlrepo.Migrate(ctx, db, dialect, logger)
}
