package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/oddsight/oddsight/internal/blob/s3"
	"github.com/oddsight/oddsight/internal/cache/redis"
	"github.com/oddsight/oddsight/internal/config"
	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/notify"
	"github.com/oddsight/oddsight/internal/pipeline"
	"github.com/oddsight/oddsight/internal/provider"
	"github.com/oddsight/oddsight/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Caches
	OddsCache   domain.OddsCache
	AggCache    domain.AggregateCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Stores (nil when Postgres is not configured)
	EVHistory domain.EVHistoryStore
	ScanRuns  domain.ScanRunStore

	// Blob storage (nil when S3 is not configured)
	Archiver domain.SnapshotArchiver

	// Upstream odds feed (nil when no API key is configured)
	Fetcher pipeline.OddsFetcher

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (always required; every mode reads or writes the cache) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.OddsCache = redis.NewOddsCache(redisClient)
	deps.AggCache = redis.NewAggregateCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient).
		WithWaitBudget(cfg.Provider.RequestsPerSecond, time.Second)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- PostgreSQL (optional; history and audit persistence) ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres schema: %w", err)
		}

		pool := pgClient.Pool()
		deps.EVHistory = postgres.NewEVHistoryStore(pool)
		deps.ScanRuns = postgres.NewScanRunStore(pool)
	}

	// --- S3 blob storage (optional; snapshot archival) ---
	if cfg.S3.Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Upstream odds feed ---
	if cfg.Provider.ApiKey != "" {
		deps.Fetcher = provider.NewClient(provider.Config{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.ApiKey,
			Regions: cfg.Provider.Regions,
			Timeout: cfg.Provider.Timeout.Duration,
		})
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
