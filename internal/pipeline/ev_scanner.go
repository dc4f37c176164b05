package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/ev"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/provider"
)

// Sinks are the optional downstream consumers of a published run. Any field
// may be nil; the schedulers skip what is not wired.
type Sinks struct {
	History  domain.EVHistoryStore
	Runs     domain.ScanRunStore
	Archiver domain.SnapshotArchiver
	Bus      domain.SignalBus
	Notifier Notifier
}

// EVScannerConfig holds the provider-driven scan settings.
type EVScannerConfig struct {
	// Sports to scan, in priority order.
	Sports []string
	// Concurrency bounds the per-event fan-out.
	Concurrency int
	// OddsTTL is the lifetime of the raw odds entries written per event.
	OddsTTL time.Duration
	// EventTTL is the lifetime of the per-event EV buckets.
	EventTTL time.Duration
	// Thresholds are the EV-percent bucket cutoffs written per event.
	Thresholds []int
	// HighEVPercent is the notification cutoff.
	HighEVPercent float64
}

// DefaultEVScannerConfig returns the production scan settings.
func DefaultEVScannerConfig() EVScannerConfig {
	return EVScannerConfig{
		Sports:        market.PrioritySports,
		Concurrency:   5,
		OddsTTL:       10 * time.Minute,
		EventTTL:      30 * time.Minute,
		Thresholds:    []int{3, 5, 8},
		HighEVPercent: 8,
	}
}

// EVScanner is the provider-driven scan: it fetches every upcoming event's
// props, refreshes the raw odds keyspace, scores each selection, and writes
// per-event EV buckets at each configured threshold.
type EVScanner struct {
	fetcher OddsFetcher
	odds    domain.OddsCache
	agg     domain.AggregateCache
	limiter domain.RateLimiter
	sinks   Sinks
	cfg     EVScannerConfig
	calc    ev.Config
	logger  *slog.Logger
}

// NewEVScanner creates a new EVScanner.
func NewEVScanner(
	fetcher OddsFetcher,
	oddsCache domain.OddsCache,
	aggCache domain.AggregateCache,
	limiter domain.RateLimiter,
	sinks Sinks,
	cfg EVScannerConfig,
	calc ev.Config,
	logger *slog.Logger,
) *EVScanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	return &EVScanner{
		fetcher: fetcher,
		odds:    oddsCache,
		agg:     aggCache,
		limiter: limiter,
		sinks:   sinks,
		cfg:     cfg,
		calc:    calc,
		logger:  logger,
	}
}

// Run scans every configured sport. One sport's failure is logged and does
// not stop the others; a cache outage aborts the remainder of the cycle.
func (s *EVScanner) Run(ctx context.Context) error {
	for _, sport := range s.cfg.Sports {
		if err := s.RunSport(ctx, sport); err != nil {
			if errors.Is(err, domain.ErrCacheUnavailable) || ctx.Err() != nil {
				return err
			}
			s.logger.Error("ev scan failed for sport",
				slog.String("sport", sport),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// RunSport executes one sport's scan cycle: enumerate upcoming events, fan
// out per event with bounded concurrency, and record the run.
func (s *EVScanner) RunSport(ctx context.Context, sport string) error {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	events, err := s.fetcher.GetEvents(ctx, sport)
	if err != nil {
		s.recordRun(ctx, domain.ScanRun{
			ID: runID, Kind: "ev", Sport: sport,
			Error: err.Error(), StartedAt: startedAt, FinishedAt: time.Now().UTC(),
		})
		s.notifyFailure(ctx, "ev", err)
		return fmt.Errorf("pipeline: list events %s: %w", sport, err)
	}

	now := time.Now().UTC()
	upcoming := events[:0]
	for _, e := range events {
		if e.CommenceTime.Before(now) {
			continue
		}
		upcoming = append(upcoming, e)
	}

	var (
		mu      sync.Mutex
		records []domain.EVRecord
		scanned int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, evt := range upcoming {
		evt := evt
		g.Go(func() error {
			recs, err := s.scanEvent(gctx, sport, runID, evt)
			if err != nil {
				// One event's failure must not cancel sibling fetches.
				// Only a cache outage tears down the cycle.
				if errors.Is(err, domain.ErrCacheUnavailable) || gctx.Err() != nil {
					return err
				}
				s.logger.Warn("event scan failed",
					slog.String("sport", sport),
					slog.String("event_id", evt.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			records = append(records, recs...)
			scanned++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.recordRun(ctx, domain.ScanRun{
			ID: runID, Kind: "ev", Sport: sport, EventsSeen: scanned,
			Error: err.Error(), StartedAt: startedAt, FinishedAt: time.Now().UTC(),
		})
		s.notifyFailure(ctx, "ev", err)
		return fmt.Errorf("pipeline: ev scan %s: %w", sport, err)
	}
	sortRecords(records)

	s.logger.Info("ev scan complete",
		slog.String("sport", sport),
		slog.String("run_id", runID),
		slog.Int("events", scanned),
		slog.Int("records", len(records)),
	)

	s.recordRun(ctx, domain.ScanRun{
		ID: runID, Kind: "ev", Sport: sport, EventsSeen: scanned,
		RecordCount: len(records), Published: true,
		StartedAt: startedAt, FinishedAt: time.Now().UTC(),
	})
	s.fanOutSinks(ctx, sport, runID, scanned, records)
	return nil
}

// scanEvent fetches one event's odds, refreshes the raw odds keyspace, and
// writes that event's threshold buckets.
func (s *EVScanner) scanEvent(ctx context.Context, sport, runID string, evt provider.Event) ([]domain.EVRecord, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, "provider:"+sport); err != nil {
			return nil, fmt.Errorf("limiter wait: %w", err)
		}
	}

	marketKeys := market.ValidKeys(market.APIKeysForSport(sport))
	eventOdds, err := s.fetcher.GetEventOdds(ctx, sport, evt.ID, marketKeys)
	if err != nil {
		return nil, fmt.Errorf("fetch odds: %w", err)
	}

	now := time.Now().UTC()
	var records []domain.EVRecord
	for entryKey, entry := range eventOdds.OddsEntries() {
		cacheKey := market.OddsKey(sport, provider.EntityID(entryKey), entry.MarketKey)
		if err := s.odds.SetWithTTL(ctx, cacheKey, entry, s.cfg.OddsTTL); err != nil {
			if errors.Is(err, domain.ErrCacheUnavailable) {
				return nil, err
			}
			s.logger.Warn("odds write failed",
				slog.String("key", cacheKey),
				slog.String("error", err.Error()),
			)
		}
		records = append(records, recordsForEntry(s.calc, entry, now)...)
	}
	sortRecords(records)

	for _, threshold := range s.cfg.Thresholds {
		bucket := filterByEV(records, float64(threshold))
		snap := domain.EVSnapshot{
			Sport:       sport,
			RunID:       runID,
			Records:     bucket,
			EventsSeen:  1,
			GeneratedAt: now,
		}
		key := market.EVEventKey(threshold, sport, evt.ID)
		if err := s.agg.PublishEV(ctx, key, snap, s.cfg.EventTTL); err != nil {
			return nil, fmt.Errorf("publish %s: %w", key, err)
		}
	}

	return records, nil
}

// fanOutSinks pushes a completed run to the optional consumers. Sink
// failures are logged, never propagated.
func (s *EVScanner) fanOutSinks(ctx context.Context, sport, runID string, eventsSeen int, records []domain.EVRecord) {
	if s.sinks.History != nil && len(records) > 0 {
		if err := s.sinks.History.InsertBatch(ctx, runID, records); err != nil {
			s.logger.Warn("ev history insert failed", slog.String("error", err.Error()))
		}
	}
	snap := domain.EVSnapshot{
		Sport: sport, RunID: runID, Records: records,
		EventsSeen: eventsSeen, GeneratedAt: time.Now().UTC(),
	}
	if s.sinks.Archiver != nil {
		if err := s.sinks.Archiver.Archive(ctx, "ev", runID, snap); err != nil {
			s.logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
		}
	}
	publishSignal(ctx, s.sinks.Bus, s.logger, domain.PublishEvent{
		Kind:        "ev",
		Key:         market.EVSportKey(sport),
		Sport:       sport,
		RunID:       runID,
		RecordCount: len(records),
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
	})
	if s.sinks.Notifier != nil {
		for _, rec := range records {
			if rec.EVPercent < s.cfg.HighEVPercent {
				continue
			}
			if err := s.sinks.Notifier.NotifyHighEV(ctx, rec); err != nil {
				s.logger.Warn("high-ev notify failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *EVScanner) recordRun(ctx context.Context, run domain.ScanRun) {
	if s.sinks.Runs == nil {
		return
	}
	if err := s.sinks.Runs.Insert(ctx, run); err != nil {
		s.logger.Warn("scan run insert failed", slog.String("error", err.Error()))
	}
}

func (s *EVScanner) notifyFailure(ctx context.Context, kind string, failure error) {
	if s.sinks.Notifier == nil {
		return
	}
	if err := s.sinks.Notifier.NotifyScanFailure(ctx, kind, failure); err != nil {
		s.logger.Warn("failure notify failed", slog.String("error", err.Error()))
	}
}

// recordsForEntry scores every (line, side) of a cached entry and keeps the
// positive edges.
func recordsForEntry(calc ev.Config, entry domain.OddsEntry, now time.Time) []domain.EVRecord {
	var records []domain.EVRecord
	for lineKey, quotes := range entry.Lines {
		line, ok := domain.ParseLine(lineKey)
		if !ok {
			continue
		}
		for _, side := range []domain.Side{domain.SideOver, domain.SideUnder} {
			res := ev.Calculate(calc, quotes, side)
			if res.EVPercent <= 0 {
				continue
			}
			records = append(records, domain.EVRecord{
				Selection:       entry.Selection(line),
				Side:            side,
				EVPercent:       res.EVPercent,
				EVDollars:       res.EVDollars,
				BestBook:        res.BestBook,
				BestOdds:        res.BestOdds,
				FairProbability: res.FairProbability,
				Confidence:      res.Confidence,
				BooksUsed:       res.BooksUsed,
				NoVigLineUsed:   res.NoVigLineUsed,
				CreatedAt:       now,
			})
		}
	}
	return records
}

func filterByEV(records []domain.EVRecord, minPercent float64) []domain.EVRecord {
	out := make([]domain.EVRecord, 0, len(records))
	for _, r := range records {
		if r.EVPercent >= minPercent {
			out = append(out, r)
		}
	}
	return out
}

// publishSignal sends a publish notification on the bus, if wired.
func publishSignal(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, evt domain.PublishEvent) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Warn("publish event marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := bus.Publish(ctx, domain.ChannelPublishes, payload); err != nil {
		logger.Warn("publish event send failed", slog.String("error", err.Error()))
	}
}
