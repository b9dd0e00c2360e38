package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Provider struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

type Config struct {
	Server struct {
		Port         int               `yaml:"port"`
		CORSOrigins  []string          `yaml:"corsOrigins"`
		APIKeys      map[string]string `yaml:"apiKeys"` // key -> client name
		ReadTimeout  time.Duration     `yaml:"readTimeout"`
		WriteTimeout time.Duration     `yaml:"writeTimeout"`
		IdleTimeout  time.Duration     `yaml:"idleTimeout"`
		RateLimit    struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (memory)
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Providers struct {
		OpenAI     Provider      `yaml:"openai"`
		Anthropic  Provider      `yaml:"anthropic"`
		Gemini     Provider      `yaml:"gemini"`
		Perplexity Provider      `yaml:"perplexity"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"providers"`

	Scan struct {
		MaxQueriesPerRegion int           `yaml:"maxQueriesPerRegion"`
		KeywordLimit        int           `yaml:"keywordLimit"`
		DefaultRegions      []string      `yaml:"defaultRegions"`
		ScrapeTimeout       time.Duration `yaml:"scrapeTimeout"`
		UserAgent           string        `yaml:"userAgent"`
	} `yaml:"scan"`

	Scoring struct {
		MentionWeights        map[string]float64 `yaml:"mentionWeights"`
		ProviderWeights       map[string]float64 `yaml:"providerWeights"`
		DefaultProviderWeight float64            `yaml:"defaultProviderWeight"`
	} `yaml:"scoring"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Default config kalau file tidak ada
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 0 // SSE and websocket streams stay open
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.RateLimit.RPS = 5
	c.Server.RateLimit.Burst = 10
	c.Database.SSLMode = "disable"
	c.Minio.BucketName = "geoscan-reports"
	c.NATS.Subject = "geoscan.scans"
	c.Providers.Timeout = 60 * time.Second
	c.Scan.MaxQueriesPerRegion = 10
	c.Scan.KeywordLimit = 5
	c.Scan.ScrapeTimeout = 30 * time.Second
	c.Log.Level = "info"
	return &c
}

// Load baca file config.yaml. A missing file leaves defaults plus env.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&c.Providers.Gemini.APIKey, "GOOGLE_GEMINI_API_KEY")
	set(&c.Providers.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	set(&c.Database.Driver, "DATABASE_DRIVER")
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.NATS.URL, "NATS_URL")
	set(&c.Log.Level, "LOG_LEVEL")
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("database.driver %q: want mysql, postgres or empty", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Minio.Enabled && c.Minio.Endpoint == "" {
		return errors.New("minio.endpoint is required when minio is enabled")
	}
	return nil
}

// DSN build DSN sesuai driver. DATABASE_URL wins when set.
func (c *Config) DSN() string {
	d := c.Database
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:     "/" + d.Name,
			RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
		}
		return u.String()
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return ""
}
