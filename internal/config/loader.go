package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSIGHT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ODDSIGHT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "ODDSIGHT_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.ApiKey, "ODDSIGHT_PROVIDER_API_KEY")
	setStr(&cfg.Provider.Regions, "ODDSIGHT_PROVIDER_REGIONS")
	setDuration(&cfg.Provider.Timeout, "ODDSIGHT_PROVIDER_TIMEOUT")
	setInt(&cfg.Provider.RequestsPerSecond, "ODDSIGHT_PROVIDER_REQUESTS_PER_SECOND")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ODDSIGHT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSIGHT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSIGHT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSIGHT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSIGHT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSIGHT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ODDSIGHT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ODDSIGHT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ODDSIGHT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ODDSIGHT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ODDSIGHT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ODDSIGHT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ODDSIGHT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ODDSIGHT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ODDSIGHT_POSTGRES_POOL_MIN_CONNS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ODDSIGHT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ODDSIGHT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ODDSIGHT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ODDSIGHT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ODDSIGHT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ODDSIGHT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ODDSIGHT_S3_FORCE_PATH_STYLE")

	// ── EV ──
	setFloat64(&cfg.EV.Stake, "ODDSIGHT_EV_STAKE")
	setFloat64(&cfg.EV.MinProbSpread, "ODDSIGHT_EV_MIN_PROB_SPREAD")
	setInt(&cfg.EV.MinBooks, "ODDSIGHT_EV_MIN_BOOKS")
	setStr(&cfg.EV.ReferenceBook, "ODDSIGHT_EV_REFERENCE_BOOK")
	setFloat64(&cfg.EV.ReferenceWeight, "ODDSIGHT_EV_REFERENCE_WEIGHT")
	setBool(&cfg.EV.RequireReference, "ODDSIGHT_EV_REQUIRE_REFERENCE")
	setFloat64(&cfg.EV.HighEVPercent, "ODDSIGHT_EV_HIGH_EV_PERCENT")

	// ── Scanner ──
	setInt(&cfg.Scanner.MinBooks, "ODDSIGHT_SCANNER_MIN_BOOKS")
	setFloat64(&cfg.Scanner.MinPercentDiff, "ODDSIGHT_SCANNER_MIN_PERCENT_DIFF")
	setInt(&cfg.Scanner.MaxPerSport, "ODDSIGHT_SCANNER_MAX_PER_SPORT")
	setInt(&cfg.Scanner.MaxTotal, "ODDSIGHT_SCANNER_MAX_TOTAL")
	setInt(&cfg.Scanner.ShortOddsCutoff, "ODDSIGHT_SCANNER_SHORT_ODDS_CUTOFF")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "ODDSIGHT_PIPELINE_ENABLED")
	setStringSlice(&cfg.Pipeline.Sports, "ODDSIGHT_PIPELINE_SPORTS")
	setInt(&cfg.Pipeline.Concurrency, "ODDSIGHT_PIPELINE_CONCURRENCY")
	setDuration(&cfg.Pipeline.EVInterval, "ODDSIGHT_PIPELINE_EV_INTERVAL")
	setDuration(&cfg.Pipeline.MispricedInterval, "ODDSIGHT_PIPELINE_MISPRICED_INTERVAL")
	setDuration(&cfg.Pipeline.AggregateInterval, "ODDSIGHT_PIPELINE_AGGREGATE_INTERVAL")
	setDuration(&cfg.Pipeline.OddsTTL, "ODDSIGHT_PIPELINE_ODDS_TTL")
	setDuration(&cfg.Pipeline.EventTTL, "ODDSIGHT_PIPELINE_EVENT_TTL")
	setDuration(&cfg.Pipeline.SportTTL, "ODDSIGHT_PIPELINE_SPORT_TTL")
	setDuration(&cfg.Pipeline.MispricedTTL, "ODDSIGHT_PIPELINE_MISPRICED_TTL")
	setDuration(&cfg.Pipeline.LockTTL, "ODDSIGHT_PIPELINE_LOCK_TTL")
	setInt64(&cfg.Pipeline.ScanCount, "ODDSIGHT_PIPELINE_SCAN_COUNT")
	setInt(&cfg.Pipeline.BatchSize, "ODDSIGHT_PIPELINE_BATCH_SIZE")
	setStr(&cfg.Pipeline.MispricedScope, "ODDSIGHT_PIPELINE_MISPRICED_SCOPE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ODDSIGHT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ODDSIGHT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ODDSIGHT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.CronSecret, "ODDSIGHT_SERVER_CRON_SECRET")
	setInt(&cfg.Server.ReadRateLimit, "ODDSIGHT_SERVER_READ_RATE_LIMIT")
	setDuration(&cfg.Server.ReadRateWindow, "ODDSIGHT_SERVER_READ_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ODDSIGHT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ODDSIGHT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ODDSIGHT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ODDSIGHT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ODDSIGHT_MODE")
	setStr(&cfg.LogLevel, "ODDSIGHT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
