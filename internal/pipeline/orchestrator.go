package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsight/oddsight/internal/domain"
)

// Lock keys, one per job kind. A held lock means another instance is mid-run
// and this cycle is safe to skip.
const (
	lockEVScan    = "lock:pipeline:ev"
	lockMispriced = "lock:pipeline:mispriced"
	lockAggregate = "lock:pipeline:aggregate"
)

// OrchestratorConfig holds the scheduler intervals.
type OrchestratorConfig struct {
	EVInterval        time.Duration
	MispricedInterval time.Duration
	AggregateInterval time.Duration
	// LockTTL bounds how long a crashed run can block its successors.
	LockTTL time.Duration
}

// DefaultOrchestratorConfig returns the production intervals.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		EVInterval:        5 * time.Minute,
		MispricedInterval: 10 * time.Minute,
		AggregateInterval: 5 * time.Minute,
		LockTTL:           4 * time.Minute,
	}
}

// Orchestrator runs the three scheduler jobs as interval loops. Each cycle
// takes a distributed try-lock first and skips when another run holds it, so
// multiple instances and manual cron triggers coexist safely.
type Orchestrator struct {
	evScanner  *EVScanner
	mispriced  *MispricedScanner
	aggregator *MarketAggregator
	locks      domain.LockManager
	cfg        OrchestratorConfig
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	evScanner *EVScanner,
	mispriced *MispricedScanner,
	aggregator *MarketAggregator,
	locks domain.LockManager,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 4 * time.Minute
	}
	return &Orchestrator{
		evScanner:  evScanner,
		mispriced:  mispriced,
		aggregator: aggregator,
		locks:      locks,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run starts all scheduler loops and blocks until the context is cancelled.
// Job failures are contained per cycle; Run only returns on shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("ev_interval", o.cfg.EVInterval),
		slog.Duration("mispriced_interval", o.cfg.MispricedInterval),
		slog.Duration("aggregate_interval", o.cfg.AggregateInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return o.runLoop(ctx, "ev", o.cfg.EVInterval, o.RunEVOnce)
	})
	g.Go(func() error {
		return o.runLoop(ctx, "mispriced", o.cfg.MispricedInterval, o.RunMispricedOnce)
	})
	g.Go(func() error {
		return o.runLoop(ctx, "aggregate", o.cfg.AggregateInterval, o.RunAggregateOnce)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// RunEVOnce executes one EV scan cycle under its lock. It is the entry point
// both for the interval loop and the cron trigger endpoint.
func (o *Orchestrator) RunEVOnce(ctx context.Context) error {
	return o.runLocked(ctx, lockEVScan, o.evScanner.Run)
}

// RunMispricedOnce executes one mispricing scan cycle under its lock.
func (o *Orchestrator) RunMispricedOnce(ctx context.Context) error {
	return o.runLocked(ctx, lockMispriced, o.mispriced.Run)
}

// RunAggregateOnce executes one aggregation cycle under its lock.
func (o *Orchestrator) RunAggregateOnce(ctx context.Context) error {
	return o.runLocked(ctx, lockAggregate, o.aggregator.Run)
}

// runLoop runs a job immediately and then on every tick until shutdown.
func (o *Orchestrator) runLoop(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) error {
	if interval <= 0 {
		o.logger.Info("scheduler loop disabled", slog.String("job", name))
		return nil
	}

	o.logger.Info("scheduler loop starting", slog.String("job", name))
	o.runCycle(ctx, name, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("scheduler loop stopped", slog.String("job", name))
			return ctx.Err()
		case <-ticker.C:
			o.runCycle(ctx, name, job)
		}
	}
}

// runCycle contains one cycle's failure. A cache outage kills only this
// cycle; the next tick retries from scratch.
func (o *Orchestrator) runCycle(ctx context.Context, name string, job func(context.Context) error) {
	err := job(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrLockHeld):
		o.logger.Info("cycle skipped, lock held", slog.String("job", name))
	case errors.Is(err, domain.ErrCacheUnavailable):
		o.logger.Error("cycle aborted, cache unavailable", slog.String("job", name))
	case errors.Is(err, context.Canceled):
	default:
		o.logger.Error("cycle failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
}

// runLocked takes the job's try-lock, runs it, and releases. A held lock
// surfaces as domain.ErrLockHeld for the caller to treat as a clean skip.
func (o *Orchestrator) runLocked(ctx context.Context, lockKey string, job func(context.Context) error) error {
	if o.locks == nil {
		return job(ctx)
	}
	unlock, err := o.locks.Acquire(ctx, lockKey, o.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return err
		}
		return fmt.Errorf("pipeline: acquire %s: %w", lockKey, err)
	}
	defer unlock()
	return job(ctx)
}
