package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bryanwahyu/geoscan/internal/application"
	appai "github.com/bryanwahyu/geoscan/internal/application/ai"
	"github.com/bryanwahyu/geoscan/internal/application/analyzer"
	"github.com/bryanwahyu/geoscan/internal/application/querygen"
	appscans "github.com/bryanwahyu/geoscan/internal/application/scans"
	"github.com/bryanwahyu/geoscan/internal/config"
	domain "github.com/bryanwahyu/geoscan/internal/domain/scans"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/gemini"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/perplexity"
	"github.com/bryanwahyu/geoscan/internal/infra/ai/transport"
	"github.com/bryanwahyu/geoscan/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/geoscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/geoscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/geoscan/internal/infra/db/sqlrepo"
	"github.com/bryanwahyu/geoscan/internal/infra/events"
	"github.com/bryanwahyu/geoscan/internal/infra/scraper"
	"github.com/bryanwahyu/geoscan/internal/infra/storage"
	"github.com/bryanwahyu/geoscan/internal/middleware"
)

// app holds everything a command needs; close releases it.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	svc      *appscans.Service
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "err", err)
		}
	}
}

func loadConfig() (*config.Config, *slog.Logger, func() error, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config load: %w", err)
	}
	logger, closeLog := config.SetupLogger(cfg.Log.Level, cfg.Log.File)
	slog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, sqlrepo.Dialect, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		return db, mysqlp.Dialect(), err
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN())
		return db, postgres.Dialect(), err
	}
	return nil, sqlrepo.Dialect{}, errors.New("database.driver is not set")
}

func buildAdapters(ctx context.Context, cfg *config.Config) (*appai.Registry, error) {
	p := cfg.Providers
	hc := transport.NewClient(p.Timeout)

	claude, err := anthropic.NewClient(p.Anthropic.APIKey, p.Anthropic.Model, p.Anthropic.BaseURL, hc)
	if err != nil {
		return nil, err
	}
	gem, err := gemini.NewClient(ctx, p.Gemini.APIKey, p.Gemini.Model, p.Gemini.BaseURL, hc)
	if err != nil {
		return nil, err
	}
	return appai.NewRegistry(
		openai.NewClient(p.OpenAI.APIKey, p.OpenAI.Model, p.OpenAI.BaseURL, hc),
		claude,
		gem,
		perplexity.NewClient(p.Perplexity.APIKey, p.Perplexity.Model, p.Perplexity.BaseURL, hc),
	), nil
}

// scoringPolicy overlays configured weights on the defaults.
func scoringPolicy(cfg *config.Config) analyzer.Policy {
	pol := analyzer.DefaultPolicy()
	for k, v := range cfg.Scoring.MentionWeights {
		pol.MentionWeights[domain.MentionType(strings.ToUpper(k))] = v
	}
	for k, v := range cfg.Scoring.ProviderWeights {
		pol.ProviderWeights[domain.Platform(strings.ToUpper(k))] = v
	}
	if cfg.Scoring.DefaultProviderWeight > 0 {
		pol.DefaultProviderWeight = cfg.Scoring.DefaultProviderWeight
	}
	return pol
}

// newApp wires the service. oneShot keeps everything in process:
// memory store, no archive, no NATS.
func newApp(ctx context.Context, oneShot bool) (*app, error) {
	cfg, logger, closeLog, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, checkers: map[string]middleware.HealthChecker{}, closers: []func() error{closeLog}}

	adapters, err := buildAdapters(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	svc := &appscans.Service{
		Scraper:        scraper.New(cfg.Scan.ScrapeTimeout, cfg.Scan.UserAgent),
		Generator:      querygen.New(cfg.Scan.MaxQueriesPerRegion, cfg.Scan.KeywordLimit),
		Adapters:       adapters,
		Detector:       analyzer.NewMentionDetector(),
		Scoring:        analyzer.NewScoringEngine(scoringPolicy(cfg)),
		DefaultRegions: cfg.Scan.DefaultRegions,
		Publisher:      events.Noop{},
		Observer:       middleware.ScanObserver{},
		Clock:          application.SystemClock{},
		Logger:         logger,
	}
	a.svc = svc

	if oneShot || cfg.Database.Driver == "" {
		store := memory.New()
		svc.Repo, svc.Errors = store, store.ErrorLog()
		if !oneShot {
			logger.Warn("database.driver not set, scans are kept in memory")
		}
	} else {
		db, dialect, err := openDB(ctx, cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
		}
		a.closers = append(a.closers, db.Close)
		svc.Repo = sqlrepo.New(db, dialect)
		svc.Errors = sqlrepo.NewScanErrorRepository(db, dialect)
		a.checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	if oneShot {
		return a, nil
	}

	if cfg.Minio.Enabled {
		m := cfg.Minio
		store, err := storage.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Artifacts = store
	}
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { pub.Close(); return nil })
		svc.Publisher = pub
		a.checkers["nats"] = pub
	}
	return a, nil
}
