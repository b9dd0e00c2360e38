package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/geoscan/internal/infra/httpserver"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply database migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if serveMigrate && cfg.Database.Driver != "" {
		if err := migrateDB(ctx, cfg, a.log); err != nil {
			return err
		}
	}
	if len(a.svc.Adapters.Usable()) == 0 {
		a.log.Warn("no AI platform configured, scans will fail until an API key is set")
	}

	done := make(chan struct{})
	defer close(done)
	handler := httpserver.NewRouter(a.svc, httpserver.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateLimitRPS:   cfg.Server.RateLimit.RPS,
		RateLimitBurst: cfg.Server.RateLimit.Burst,
		Checkers:       a.checkers,
		Logger:         a.log,
		Stop:           done,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "platforms", len(a.svc.Adapters.Usable()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// graceful shutdown
	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

