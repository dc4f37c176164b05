package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/scanner"
)

// MispricedConfig holds the cross-sport mispricing scan settings.
type MispricedConfig struct {
	Sports []string
	// Scope names the published snapshot ("featured" for the cross-sport
	// homepage set).
	Scope       string
	ScanCount   int64
	BatchSize   int
	SnapshotTTL time.Duration
}

// DefaultMispricedConfig returns the production mispricing scan settings.
func DefaultMispricedConfig() MispricedConfig {
	return MispricedConfig{
		Sports:      market.PrioritySports,
		Scope:       "featured",
		ScanCount:   500,
		BatchSize:   100,
		SnapshotTTL: 900 * time.Second,
	}
}

// MispricedScanner walks each sport's priority markets through the cached
// odds keyspace, flags divergent prices, and publishes the ranked cross-sport
// snapshot in a single overwrite.
type MispricedScanner struct {
	odds    domain.OddsCache
	agg     domain.AggregateCache
	limiter domain.RateLimiter
	sinks   Sinks
	cfg     MispricedConfig
	scan    scanner.Config
	logger  *slog.Logger
}

// NewMispricedScanner creates a new MispricedScanner.
func NewMispricedScanner(
	oddsCache domain.OddsCache,
	aggCache domain.AggregateCache,
	limiter domain.RateLimiter,
	sinks Sinks,
	cfg MispricedConfig,
	scan scanner.Config,
	logger *slog.Logger,
) *MispricedScanner {
	if cfg.Scope == "" {
		cfg.Scope = "featured"
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &MispricedScanner{
		odds:    oddsCache,
		agg:     aggCache,
		limiter: limiter,
		sinks:   sinks,
		cfg:     cfg,
		scan:    scan,
		logger:  logger,
	}
}

// Run executes one full scan cycle and publishes the ranked snapshot.
func (m *MispricedScanner) Run(ctx context.Context) error {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()

	var flagged []domain.MispricedSelection
	var scanned []string

	for _, sport := range m.cfg.Sports {
		selections, err := m.scanSport(ctx, sport, startedAt)
		if err != nil {
			if errors.Is(err, domain.ErrCacheUnavailable) || ctx.Err() != nil {
				m.recordRun(ctx, domain.ScanRun{
					ID: runID, Kind: "mispriced", Sport: sport,
					Error: err.Error(), StartedAt: startedAt, FinishedAt: time.Now().UTC(),
				})
				m.notifyFailure(ctx, "mispriced", err)
				return fmt.Errorf("pipeline: mispriced scan %s: %w", sport, err)
			}
			m.logger.Warn("sport scan skipped",
				slog.String("sport", sport),
				slog.String("error", err.Error()),
			)
			continue
		}
		flagged = append(flagged, selections...)
		scanned = append(scanned, sport)
	}

	snap := domain.MispricedSnapshot{
		Selections:    scanner.Rank(m.scan, flagged),
		SportsScanned: scanned,
		RunID:         runID,
		GeneratedAt:   time.Now().UTC(),
	}
	key := market.MispricedKey(m.cfg.Scope)
	if err := m.agg.PublishMispriced(ctx, key, snap, m.cfg.SnapshotTTL); err != nil {
		m.notifyFailure(ctx, "mispriced", err)
		return fmt.Errorf("pipeline: publish %s: %w", key, err)
	}

	m.logger.Info("mispriced snapshot published",
		slog.String("run_id", runID),
		slog.Int("flagged", len(snap.Selections)),
		slog.Int("sports", len(scanned)),
	)
	m.recordRun(ctx, domain.ScanRun{
		ID: runID, Kind: "mispriced",
		RecordCount: len(snap.Selections), Published: true,
		StartedAt: startedAt, FinishedAt: time.Now().UTC(),
	})
	if m.sinks.Archiver != nil {
		if err := m.sinks.Archiver.Archive(ctx, "mispriced", runID, snap); err != nil {
			m.logger.Warn("snapshot archive failed", slog.String("error", err.Error()))
		}
	}
	publishSignal(ctx, m.sinks.Bus, m.logger, domain.PublishEvent{
		Kind:        "mispriced",
		Key:         key,
		RunID:       runID,
		RecordCount: len(snap.Selections),
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
	})
	return nil
}

// scanSport walks the sport's priority markets in order and stops collecting
// once the per-sport cap is reached.
func (m *MispricedScanner) scanSport(ctx context.Context, sport string, now time.Time) ([]domain.MispricedSelection, error) {
	var flagged []domain.MispricedSelection

	for _, marketKey := range market.PriorityMarkets[sport] {
		if m.scan.MaxPerSport > 0 && len(flagged) >= m.scan.MaxPerSport {
			break
		}

		keys, err := collectKeys(ctx, m.odds, market.OddsPattern(sport, marketKey), m.cfg.ScanCount)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			continue
		}

		entries, err := fetchEntries(ctx, m.odds, m.limiter, "cache:"+sport, keys, m.cfg.BatchSize)
		if err != nil {
			return nil, err
		}

		// One selection per market: the best-scoring entry.
		var best domain.MispricedSelection
		found := false
		for _, entry := range freshEntries(entries, now) {
			sel, ok := scanner.AnalyzeEntry(m.scan, entry)
			if !ok {
				continue
			}
			if !found || sel.ValueScore > best.ValueScore {
				best = sel
				found = true
			}
		}
		if found {
			flagged = append(flagged, best)
		}
	}

	return flagged, nil
}

func (m *MispricedScanner) recordRun(ctx context.Context, run domain.ScanRun) {
	if m.sinks.Runs == nil {
		return
	}
	if err := m.sinks.Runs.Insert(ctx, run); err != nil {
		m.logger.Warn("scan run insert failed", slog.String("error", err.Error()))
	}
}

func (m *MispricedScanner) notifyFailure(ctx context.Context, kind string, failure error) {
	if m.sinks.Notifier == nil {
		return
	}
	if err := m.sinks.Notifier.NotifyScanFailure(ctx, kind, failure); err != nil {
		m.logger.Warn("failure notify failed", slog.String("error", err.Error()))
	}
}
