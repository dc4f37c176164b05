// Package pipeline contains the aggregation schedulers: the provider-driven
// EV scanner, the cache-driven market aggregator and mispricing scanner, and
// the orchestrator that runs them on intervals under a distributed try-lock.
//
// Every cycle is idempotent: it fully replaces its output bucket, so
// re-running or overlapping with a skipped run is always safe.
package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/provider"
)

// OddsFetcher retrieves events and odds from the upstream provider.
type OddsFetcher interface {
	GetEvents(ctx context.Context, sport string) ([]provider.Event, error)
	GetEventOdds(ctx context.Context, sport, eventID string, marketKeys []string) (provider.EventOdds, error)
}

// Notifier receives pipeline alerts. Implementations must be non-blocking or
// internally bounded; the schedulers call them inline.
type Notifier interface {
	NotifyHighEV(ctx context.Context, rec domain.EVRecord) error
	NotifyScanFailure(ctx context.Context, kind string, failure error) error
}

// collectKeys drains a cursor scan into a single key list. The scan is
// bounded per call by count; iteration ends when the cache returns cursor 0.
func collectKeys(ctx context.Context, cache domain.OddsCache, pattern string, count int64) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, batch, err := cache.Scan(ctx, cursor, pattern, count)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// fetchEntries multi-gets keys in fixed-size batches, consulting the rate
// limiter between batches as backpressure on the shared cache. Absent and
// malformed entries come back as nil and are dropped here.
func fetchEntries(ctx context.Context, cache domain.OddsCache, limiter domain.RateLimiter, limiterKey string, keys []string, batchSize int) ([]domain.OddsEntry, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	entries := make([]domain.OddsEntry, 0, len(keys))
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if limiter != nil {
			if err := limiter.Wait(ctx, limiterKey); err != nil {
				return nil, fmt.Errorf("limiter wait: %w", err)
			}
		}

		batch, err := cache.MultiGet(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("multi-get batch at %d: %w", start, err)
		}
		for _, e := range batch {
			if e != nil {
				entries = append(entries, *e)
			}
		}
	}
	return entries, nil
}

// sortRecords fixes the publish order. Records arrive from map iteration and
// concurrent fan-out, so two runs over the same cached input would otherwise
// serialize in different orders.
func sortRecords(records []domain.EVRecord) {
	slices.SortFunc(records, func(a, b domain.EVRecord) int {
		if c := cmp.Compare(a.EventID, b.EventID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MarketKey, b.MarketKey); c != 0 {
			return c
		}
		if c := cmp.Compare(a.PlayerID, b.PlayerID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Side, b.Side); c != 0 {
			return c
		}
		return cmp.Compare(a.BestBook, b.BestBook)
	})
}

// freshEntries drops entries whose event has already started. Expired
// opportunities must never be published.
func freshEntries(entries []domain.OddsEntry, now time.Time) []domain.OddsEntry {
	out := entries[:0]
	for _, e := range entries {
		if !e.CommenceTime.IsZero() && e.CommenceTime.Before(now) {
			continue
		}
		out = append(out, e)
	}
	return out
}
