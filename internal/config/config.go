// Package config defines the top-level configuration for the odds-intelligence
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSIGHT_* environment variables.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	EV       EVConfig       `toml:"ev"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ProviderConfig holds the upstream odds API settings.
type ProviderConfig struct {
	BaseURL string   `toml:"base_url"`
	ApiKey  string   `toml:"api_key"`
	Regions string   `toml:"regions"`
	Timeout duration `toml:"timeout"`
	// RequestsPerSecond budgets upstream calls through the shared limiter.
	RequestsPerSecond int `toml:"requests_per_second"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the history and
// audit stores. Optional: with an empty DSN and host, the service runs
// without persistence.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// Enabled reports whether any connection target is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != "" || p.Host != ""
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival. Optional: with an empty bucket, archival is skipped.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether snapshot archival is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// EVConfig holds every EV threshold in one place. These values are the
// single authoritative copy; components receive them wired in, never
// hardcoded.
type EVConfig struct {
	Stake            float64 `toml:"stake"`
	MinProbSpread    float64 `toml:"min_prob_spread"`
	MinBooks         int     `toml:"min_books"`
	ReferenceBook    string  `toml:"reference_book"`
	ReferenceWeight  float64 `toml:"reference_weight"`
	RequireReference bool    `toml:"require_reference"`
	HighEVPercent    float64 `toml:"high_ev_percent"`
}

// ScannerConfig holds the mispricing scan thresholds.
type ScannerConfig struct {
	MinBooks        int     `toml:"min_books"`
	MinPercentDiff  float64 `toml:"min_percent_diff"`
	MaxPerSport     int     `toml:"max_per_sport"`
	MaxTotal        int     `toml:"max_total"`
	ShortOddsCutoff int     `toml:"short_odds_cutoff"`
}

// PipelineConfig holds the scheduler settings.
type PipelineConfig struct {
	Enabled           bool     `toml:"enabled"`
	Sports            []string `toml:"sports"`
	Concurrency       int      `toml:"concurrency"`
	EVInterval        duration `toml:"ev_interval"`
	MispricedInterval duration `toml:"mispriced_interval"`
	AggregateInterval duration `toml:"aggregate_interval"`
	OddsTTL           duration `toml:"odds_ttl"`
	EventTTL          duration `toml:"event_ttl"`
	SportTTL          duration `toml:"sport_ttl"`
	MispricedTTL      duration `toml:"mispriced_ttl"`
	LockTTL           duration `toml:"lock_ttl"`
	ScanCount         int64    `toml:"scan_count"`
	BatchSize         int      `toml:"batch_size"`
	Thresholds        []int    `toml:"thresholds"`
	MispricedScope    string   `toml:"mispriced_scope"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// CronSecret guards the POST /api/cron endpoints. Required when the
	// server is enabled.
	CronSecret string `toml:"cron_secret"`
	// ReadRateLimit budgets read-surface requests per client IP within
	// ReadRateWindow. Zero disables read-side rate limiting.
	ReadRateLimit  int      `toml:"read_rate_limit"`
	ReadRateWindow duration `toml:"read_rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:           "https://api.the-odds-api.com/v4",
			Regions:           "us",
			Timeout:           duration{15 * time.Second},
			RequestsPerSecond: 5,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Port:         5432,
			Database:     "oddsight",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		EV: EVConfig{
			Stake:            100,
			MinProbSpread:    0.02,
			MinBooks:         4,
			ReferenceBook:    "pinnacle",
			ReferenceWeight:  10,
			RequireReference: true,
			HighEVPercent:    8,
		},
		Scanner: ScannerConfig{
			MinBooks:        3,
			MinPercentDiff:  10,
			MaxPerSport:     2,
			MaxTotal:        12,
			ShortOddsCutoff: 200,
		},
		Pipeline: PipelineConfig{
			Enabled:           true,
			Sports:            []string{"basketball_nba", "baseball_mlb", "icehockey_nhl", "americanfootball_nfl"},
			Concurrency:       5,
			EVInterval:        duration{5 * time.Minute},
			MispricedInterval: duration{10 * time.Minute},
			AggregateInterval: duration{5 * time.Minute},
			OddsTTL:           duration{10 * time.Minute},
			EventTTL:          duration{30 * time.Minute},
			SportTTL:          duration{600 * time.Second},
			MispricedTTL:      duration{900 * time.Second},
			LockTTL:           duration{4 * time.Minute},
			ScanCount:         500,
			BatchSize:         100,
			Thresholds:        []int{3, 5, 8},
			MispricedScope:    "featured",
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8000,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			ReadRateLimit:  120,
			ReadRateWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"high_ev", "scan_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":  true,
	"serve": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, serve, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Provider — needed whenever the pipeline runs.
	needsProvider := c.Pipeline.Enabled && (c.Mode == "scan" || c.Mode == "full")
	if needsProvider {
		if c.Provider.ApiKey == "" {
			errs = append(errs, "provider: api_key is required for mode "+c.Mode)
		}
		if c.Provider.BaseURL == "" {
			errs = append(errs, "provider: base_url must not be empty")
		}
	}
	if c.Provider.RequestsPerSecond < 1 {
		errs = append(errs, "provider: requests_per_second must be >= 1")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres — only checked when configured.
	if c.Postgres.Enabled() && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// S3 — only checked when configured.
	if c.S3.Enabled() && c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty when a bucket is set")
	}

	// EV
	if c.EV.Stake <= 0 {
		errs = append(errs, "ev: stake must be > 0")
	}
	if c.EV.MinProbSpread < 0 || c.EV.MinProbSpread >= 1 {
		errs = append(errs, "ev: min_prob_spread must be in [0, 1)")
	}
	if c.EV.MinBooks < 1 {
		errs = append(errs, "ev: min_books must be >= 1")
	}
	if c.EV.ReferenceWeight < 1 {
		errs = append(errs, "ev: reference_weight must be >= 1")
	}

	// Scanner
	if c.Scanner.MinBooks < 2 {
		errs = append(errs, "scanner: min_books must be >= 2")
	}
	if c.Scanner.MinPercentDiff <= 0 {
		errs = append(errs, "scanner: min_percent_diff must be > 0")
	}
	if c.Scanner.MaxTotal < 1 {
		errs = append(errs, "scanner: max_total must be >= 1")
	}

	// Pipeline
	if c.Pipeline.Enabled {
		if len(c.Pipeline.Sports) == 0 {
			errs = append(errs, "pipeline: sports must not be empty when enabled")
		}
		if c.Pipeline.Concurrency < 1 {
			errs = append(errs, "pipeline: concurrency must be >= 1")
		}
		if c.Pipeline.OddsTTL.Duration <= 0 {
			errs = append(errs, "pipeline: odds_ttl must be > 0")
		}
		if c.Pipeline.ScanCount < 1 {
			errs = append(errs, "pipeline: scan_count must be >= 1")
		}
		if c.Pipeline.BatchSize < 1 {
			errs = append(errs, "pipeline: batch_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.CronSecret == "" && (c.Mode == "serve" || c.Mode == "full") {
			errs = append(errs, "server: cron_secret is required when the server is enabled")
		}
		if c.Server.ReadRateLimit < 0 {
			errs = append(errs, "server: read_rate_limit must be >= 0")
		}
		if c.Server.ReadRateLimit > 0 && c.Server.ReadRateWindow.Duration <= 0 {
			errs = append(errs, "server: read_rate_window must be > 0 when read_rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
