package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Scan.KeywordLimit != 5 || cfg.NATS.Subject != "geoscan.scans" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9000
  apiKeys:
    secret: dashboard
database:
  driver: postgres
  host: db
  port: 5432
  user: geo
  password: "p@ss"
  name: geoscan
providers:
  openai:
    apiKey: from-file
  timeout: 45s
scan:
  defaultRegions: [us, uk]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("PERPLEXITY_API_KEY", "pplx")
	t.Setenv("PORT", "9100")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Providers.OpenAI.APIKey != "from-env" || cfg.Providers.Perplexity.APIKey != "pplx" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.Providers.Timeout != 45*time.Second {
		t.Errorf("timeout = %s", cfg.Providers.Timeout)
	}
	if cfg.Server.APIKeys["secret"] != "dashboard" || len(cfg.Scan.DefaultRegions) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if got := cfg.DSN(); got != "postgres://geo:p%40ss@db:5432/geoscan?sslmode=disable" {
		t.Errorf("dsn = %s", got)
	}
}

func TestDSN(t *testing.T) {
	cfg := Default()
	if cfg.DSN() != "" {
		t.Fatal("memory store has no dsn")
	}
	cfg.Database.Driver = "mysql"
	cfg.Database.User, cfg.Database.Password = "root", "pw"
	cfg.Database.Host, cfg.Database.Port, cfg.Database.Name = "localhost", 3306, "geoscan"
	if got := cfg.DSN(); got != "root:pw@tcp(localhost:3306)/geoscan?parseTime=true&charset=utf8mb4&loc=UTC" {
		t.Errorf("mysql dsn = %s", got)
	}
	cfg.Database.URL = "raw"
	if cfg.DSN() != "raw" {
		t.Error("DATABASE_URL must win")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Error("sqlite must be rejected")
	}
	cfg = Default()
	cfg.Minio.Enabled = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "minio") {
		t.Errorf("err = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v", in, got)
		}
	}
}

func TestFanoutWritesBoth(t *testing.T) {
	var text, js bytes.Buffer
	newFanout(&text, &js, slog.LevelInfo).Info("scan created", "scan_id", "s1")

	if !strings.Contains(text.String(), "scan_id=s1") {
		t.Errorf("text = %q", text.String())
	}
	var line map[string]any
	if err := json.Unmarshal(js.Bytes(), &line); err != nil || line["scan_id"] != "s1" {
		t.Errorf("json = %q (%v)", js.String(), err)
	}
}
