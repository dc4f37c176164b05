package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/ev"
	"github.com/oddsight/oddsight/internal/market"
)

// AggregatorConfig holds the cache-driven aggregation settings.
type AggregatorConfig struct {
	Sports []string
	// ScanCount bounds each keyspace scan call.
	ScanCount int64
	// BatchSize bounds each multi-get.
	BatchSize int
	// SnapshotTTL is the lifetime of the published per-sport bucket.
	SnapshotTTL time.Duration
}

// DefaultAggregatorConfig returns the production aggregation settings.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Sports:      market.PrioritySports,
		ScanCount:   500,
		BatchSize:   100,
		SnapshotTTL: 600 * time.Second,
	}
}

// MarketAggregator rebuilds each sport's combined EV bucket from the raw
// odds keyspace. It runs per market through a fixed sequence: enumerate the
// market's keys, fetch entries in batches, drop started games, then publish
// the sport bucket in a single overwrite. One market's failure is logged and
// skipped; only a cache outage aborts the sport.
type MarketAggregator struct {
	odds    domain.OddsCache
	agg     domain.AggregateCache
	limiter domain.RateLimiter
	sinks   Sinks
	cfg     AggregatorConfig
	calc    ev.Config
	logger  *slog.Logger
}

// NewMarketAggregator creates a new MarketAggregator.
func NewMarketAggregator(
	oddsCache domain.OddsCache,
	aggCache domain.AggregateCache,
	limiter domain.RateLimiter,
	sinks Sinks,
	cfg AggregatorConfig,
	calc ev.Config,
	logger *slog.Logger,
) *MarketAggregator {
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &MarketAggregator{
		odds:    oddsCache,
		agg:     aggCache,
		limiter: limiter,
		sinks:   sinks,
		cfg:     cfg,
		calc:    calc,
		logger:  logger,
	}
}

// Run aggregates every configured sport.
func (a *MarketAggregator) Run(ctx context.Context) error {
	for _, sport := range a.cfg.Sports {
		if err := a.RunSport(ctx, sport); err != nil {
			if errors.Is(err, domain.ErrCacheUnavailable) || ctx.Err() != nil {
				return err
			}
			a.logger.Error("aggregation failed for sport",
				slog.String("sport", sport),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// RunSport rebuilds one sport's combined bucket and publishes it.
func (a *MarketAggregator) RunSport(ctx context.Context, sport string) error {
	runID := uuid.NewString()
	now := time.Now().UTC()

	var records []domain.EVRecord
	eventsSeen := make(map[string]struct{})

	for _, m := range market.ForSport(sport) {
		entries, err := a.aggregateMarket(ctx, sport, m.APIKey, now)
		if err != nil {
			if errors.Is(err, domain.ErrCacheUnavailable) || ctx.Err() != nil {
				return fmt.Errorf("pipeline: aggregate %s/%s: %w", sport, m.APIKey, err)
			}
			a.logger.Warn("market aggregation skipped",
				slog.String("sport", sport),
				slog.String("market", m.APIKey),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, entry := range entries {
			eventsSeen[entry.EventID] = struct{}{}
			records = append(records, recordsForEntry(a.calc, entry, now)...)
		}
	}

	sortRecords(records)
	snap := domain.EVSnapshot{
		Sport:       sport,
		RunID:       runID,
		Records:     records,
		EventsSeen:  len(eventsSeen),
		GeneratedAt: now,
	}
	key := market.EVSportKey(sport)
	if err := a.agg.PublishEV(ctx, key, snap, a.cfg.SnapshotTTL); err != nil {
		return fmt.Errorf("pipeline: publish %s: %w", key, err)
	}

	a.logger.Info("sport bucket published",
		slog.String("sport", sport),
		slog.String("run_id", runID),
		slog.Int("events", len(eventsSeen)),
		slog.Int("records", len(records)),
	)
	publishSignal(ctx, a.sinks.Bus, a.logger, domain.PublishEvent{
		Kind:        "ev",
		Key:         key,
		Sport:       sport,
		RunID:       runID,
		RecordCount: len(records),
		GeneratedAt: now.Format(time.RFC3339),
	})
	return nil
}

// aggregateMarket enumerates, fetches, and filters one market's entries.
func (a *MarketAggregator) aggregateMarket(ctx context.Context, sport, marketKey string, now time.Time) ([]domain.OddsEntry, error) {
	keys, err := collectKeys(ctx, a.odds, market.OddsPattern(sport, marketKey), a.cfg.ScanCount)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	entries, err := fetchEntries(ctx, a.odds, a.limiter, "cache:"+sport, keys, a.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	return freshEntries(entries, now), nil
}
