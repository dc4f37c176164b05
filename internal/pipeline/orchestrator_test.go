package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/ev"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/scanner"
)

func newTestOrchestrator(locks *fakeLocks) (*Orchestrator, *fakeAggCache) {
	fetcher := newFakeFetcher()
	oddsCache := newFakeOddsCache()
	aggCache := newFakeAggCache()

	evCfg := DefaultEVScannerConfig()
	evCfg.Sports = []string{market.SportNBA}
	mpCfg := DefaultMispricedConfig()
	mpCfg.Sports = []string{market.SportNBA}
	agCfg := DefaultAggregatorConfig()
	agCfg.Sports = []string{market.SportNBA}

	evScanner := NewEVScanner(fetcher, oddsCache, aggCache, nil, Sinks{}, evCfg, ev.DefaultConfig(), testLogger())
	mispriced := NewMispricedScanner(oddsCache, aggCache, nil, Sinks{}, mpCfg, scanner.DefaultConfig(), testLogger())
	aggregator := NewMarketAggregator(oddsCache, aggCache, nil, Sinks{}, agCfg, ev.DefaultConfig(), testLogger())

	o := NewOrchestrator(evScanner, mispriced, aggregator, locks, DefaultOrchestratorConfig(), testLogger())
	return o, aggCache
}

func TestOrchestratorSkipsWhenLockHeld(t *testing.T) {
	locks := newFakeLocks()
	locks.held[lockEVScan] = true
	o, _ := newTestOrchestrator(locks)

	err := o.RunEVOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestOrchestratorReleasesLockAfterRun(t *testing.T) {
	locks := newFakeLocks()
	o, aggCache := newTestOrchestrator(locks)

	require.NoError(t, o.RunMispricedOnce(context.Background()))
	assert.False(t, locks.held[lockMispriced], "lock must be released after the cycle")
	assert.Equal(t, 1, aggCache.publishes)

	// A second manual trigger goes through cleanly.
	require.NoError(t, o.RunMispricedOnce(context.Background()))
	assert.Equal(t, 2, aggCache.publishes)
}

func TestOrchestratorRunStopsOnCancel(t *testing.T) {
	o, _ := newTestOrchestrator(newFakeLocks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop on cancel")
	}
}
