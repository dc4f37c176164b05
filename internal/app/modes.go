package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsight/oddsight/internal/ev"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/pipeline"
	"github.com/oddsight/oddsight/internal/scanner"
	"github.com/oddsight/oddsight/internal/server"
	"github.com/oddsight/oddsight/internal/server/handler"
	"github.com/oddsight/oddsight/internal/server/ws"
)

// ScanMode runs the scheduler loops only: EV scans against the provider,
// cache-driven aggregation, and mispricing scans. No HTTP surface.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	orch := a.buildOrchestrator(deps)
	if orch == nil {
		return errors.New("scan mode: provider api key is required")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	return waitGroup(g)
}

// ServeMode runs the HTTP and WebSocket surface only. Scheduler cycles run
// on demand through the cron trigger endpoints; no interval loops start.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// The trigger is nil without a provider key; the cron endpoints then
	// answer 503 while the read surface stays up.
	trigger := a.buildOrchestrator(deps)
	if trigger == nil {
		a.logger.WarnContext(ctx, "no provider api key; cron triggers disabled")
		a.startHTTPServer(ctx, g, deps, nil)
	} else {
		a.startHTTPServer(ctx, g, deps, trigger)
	}

	return waitGroup(g)
}

// FullMode runs the scheduler loops and the HTTP surface in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	orch := a.buildOrchestrator(deps)
	if orch == nil {
		return errors.New("full mode: provider api key is required")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, orch)
	}

	return waitGroup(g)
}

// buildOrchestrator assembles the scheduler jobs from configuration. It
// returns nil when no provider client is wired, since the EV scan cannot run
// without the upstream feed.
func (a *App) buildOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	if deps.Fetcher == nil {
		return nil
	}

	sports := a.cfg.Pipeline.Sports
	if len(sports) == 0 {
		sports = market.PrioritySports
	}

	sinks := pipeline.Sinks{
		History:  deps.EVHistory,
		Runs:     deps.ScanRuns,
		Archiver: deps.Archiver,
		Bus:      deps.SignalBus,
		Notifier: deps.Notifier,
	}

	calc := ev.Config{
		Stake:            a.cfg.EV.Stake,
		MinProbSpread:    a.cfg.EV.MinProbSpread,
		MinBooks:         a.cfg.EV.MinBooks,
		ReferenceBook:    a.cfg.EV.ReferenceBook,
		ReferenceWeight:  a.cfg.EV.ReferenceWeight,
		RequireReference: a.cfg.EV.RequireReference,
	}

	scanCfg := scanner.Config{
		MinBooks:        a.cfg.Scanner.MinBooks,
		MinPercentDiff:  a.cfg.Scanner.MinPercentDiff,
		MaxPerSport:     a.cfg.Scanner.MaxPerSport,
		MaxTotal:        a.cfg.Scanner.MaxTotal,
		ShortOddsCutoff: a.cfg.Scanner.ShortOddsCutoff,
	}

	evScanner := pipeline.NewEVScanner(
		deps.Fetcher, deps.OddsCache, deps.AggCache, deps.RateLimiter, sinks,
		pipeline.EVScannerConfig{
			Sports:        sports,
			Concurrency:   a.cfg.Pipeline.Concurrency,
			OddsTTL:       a.cfg.Pipeline.OddsTTL.Duration,
			EventTTL:      a.cfg.Pipeline.EventTTL.Duration,
			Thresholds:    a.cfg.Pipeline.Thresholds,
			HighEVPercent: a.cfg.EV.HighEVPercent,
		},
		calc, a.logger,
	)

	aggregator := pipeline.NewMarketAggregator(
		deps.OddsCache, deps.AggCache, deps.RateLimiter, sinks,
		pipeline.AggregatorConfig{
			Sports:      sports,
			ScanCount:   a.cfg.Pipeline.ScanCount,
			BatchSize:   a.cfg.Pipeline.BatchSize,
			SnapshotTTL: a.cfg.Pipeline.SportTTL.Duration,
		},
		calc, a.logger,
	)

	mispriced := pipeline.NewMispricedScanner(
		deps.OddsCache, deps.AggCache, deps.RateLimiter, sinks,
		pipeline.MispricedConfig{
			Sports:      sports,
			Scope:       a.cfg.Pipeline.MispricedScope,
			ScanCount:   a.cfg.Pipeline.ScanCount,
			BatchSize:   a.cfg.Pipeline.BatchSize,
			SnapshotTTL: a.cfg.Pipeline.MispricedTTL.Duration,
		},
		scanCfg, a.logger,
	)

	return pipeline.NewOrchestrator(
		evScanner, mispriced, aggregator, deps.LockManager,
		pipeline.OrchestratorConfig{
			EVInterval:        a.cfg.Pipeline.EVInterval.Duration,
			MispricedInterval: a.cfg.Pipeline.MispricedInterval.Duration,
			AggregateInterval: a.cfg.Pipeline.AggregateInterval.Duration,
			LockTTL:           a.cfg.Pipeline.LockTTL.Duration,
		},
		a.logger,
	)
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. trigger is optional; when nil the cron endpoints answer
// 503.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	trigger handler.PipelineTrigger,
) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.cfg.Mode, a.logger),
		EV:        handler.NewEVHandler(deps.AggCache, a.cfg.Pipeline.Thresholds, a.logger),
		Mispriced: handler.NewMispricedHandler(deps.AggCache, a.cfg.Pipeline.MispricedScope, a.logger),
		History:   handler.NewHistoryHandler(deps.EVHistory, deps.ScanRuns, a.logger),
		Cron:      handler.NewCronHandler(trigger, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		CronSecret:  a.cfg.Server.CronSecret,
		ReadLimiter: deps.RateLimiter,
		ReadLimit:   a.cfg.Server.ReadRateLimit,
		ReadWindow:  a.cfg.Server.ReadRateWindow.Duration,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// waitGroup waits for all goroutines and treats context cancellation as a
// clean shutdown.
func waitGroup(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
