package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/market"
	"github.com/oddsight/oddsight/internal/scanner"
)

func seedOutlierEntry(cache *fakeOddsCache, sport, entity, marketKey string, commence time.Time) {
	updated := time.Now().UTC()
	entry := domain.OddsEntry{
		Sport:        sport,
		EventID:      "evt-77",
		CommenceTime: commence,
		HomeTeam:     "Boston Celtics",
		AwayTeam:     "New York Knicks",
		PlayerName:   "Jayson Tatum",
		MarketKey:    marketKey,
		Lines: map[string]domain.LineQuotes{
			"27.5": outlierQuotes(updated),
		},
		UpdatedAt: updated,
	}
	key := market.OddsKey(sport, entity, marketKey)
	_ = cache.SetWithTTL(context.Background(), key, entry, time.Minute)
}

func TestMispricedScannerPublishesRankedSnapshot(t *testing.T) {
	commence := time.Now().UTC().Add(2 * time.Hour)
	oddsCache := newFakeOddsCache()
	seedOutlierEntry(oddsCache, market.SportNBA, "jayson-tatum", "player_points", commence)

	aggCache := newFakeAggCache()
	cfg := DefaultMispricedConfig()
	cfg.Sports = []string{market.SportNBA}

	m := NewMispricedScanner(oddsCache, aggCache, nil, Sinks{}, cfg, scanner.DefaultConfig(), testLogger())
	require.NoError(t, m.Run(context.Background()))

	snap, err := aggCache.GetMispriced(context.Background(), market.MispricedKey("featured"))
	require.NoError(t, err)
	require.Len(t, snap.Selections, 1)
	sel := snap.Selections[0]
	assert.Equal(t, "betmgm", sel.BestBook)
	assert.Equal(t, 150, sel.BestOdds)
	assert.Equal(t, domain.SideOver, sel.Side)
	assert.Equal(t, 3, sel.BookCount)
	assert.Greater(t, sel.ValueScore, 0.0)
	assert.Equal(t, []string{market.SportNBA}, snap.SportsScanned)
	assert.NotEmpty(t, snap.RunID)
}

func TestMispricedScannerRerunReplacesSnapshot(t *testing.T) {
	commence := time.Now().UTC().Add(2 * time.Hour)
	oddsCache := newFakeOddsCache()
	seedOutlierEntry(oddsCache, market.SportNBA, "jayson-tatum", "player_points", commence)

	aggCache := newFakeAggCache()
	cfg := DefaultMispricedConfig()
	cfg.Sports = []string{market.SportNBA}
	m := NewMispricedScanner(oddsCache, aggCache, nil, Sinks{}, cfg, scanner.DefaultConfig(), testLogger())

	require.NoError(t, m.Run(context.Background()))
	first, err := aggCache.GetMispriced(context.Background(), market.MispricedKey("featured"))
	require.NoError(t, err)

	// Re-running is always safe: the bucket is fully replaced, never
	// appended to.
	require.NoError(t, m.Run(context.Background()))
	second, err := aggCache.GetMispriced(context.Background(), market.MispricedKey("featured"))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	require.Len(t, second.Selections, 1)
	assert.Equal(t, first.Selections[0].Selection, second.Selections[0].Selection)
	assert.Equal(t, first.Selections[0].ValueScore, second.Selections[0].ValueScore)
}

func TestMispricedScannerFiltersStartedGames(t *testing.T) {
	oddsCache := newFakeOddsCache()
	seedOutlierEntry(oddsCache, market.SportNBA, "jayson-tatum", "player_points", time.Now().UTC().Add(-time.Hour))

	aggCache := newFakeAggCache()
	cfg := DefaultMispricedConfig()
	cfg.Sports = []string{market.SportNBA}
	m := NewMispricedScanner(oddsCache, aggCache, nil, Sinks{}, cfg, scanner.DefaultConfig(), testLogger())

	require.NoError(t, m.Run(context.Background()))

	// The snapshot is still published, just empty: "nothing flagged" is a
	// valid result, distinct from "no snapshot".
	snap, err := aggCache.GetMispriced(context.Background(), market.MispricedKey("featured"))
	require.NoError(t, err)
	assert.Empty(t, snap.Selections)
}

func TestMispricedScannerRespectsPerSportCap(t *testing.T) {
	commence := time.Now().UTC().Add(2 * time.Hour)
	oddsCache := newFakeOddsCache()
	for i, mk := range market.PriorityMarkets[market.SportNBA] {
		entity := "player-" + string(rune('a'+i))
		seedOutlierEntry(oddsCache, market.SportNBA, entity, mk, commence)
	}

	aggCache := newFakeAggCache()
	cfg := DefaultMispricedConfig()
	cfg.Sports = []string{market.SportNBA}
	scanCfg := scanner.DefaultConfig()

	m := NewMispricedScanner(oddsCache, aggCache, nil, Sinks{}, cfg, scanCfg, testLogger())
	require.NoError(t, m.Run(context.Background()))

	snap, err := aggCache.GetMispriced(context.Background(), market.MispricedKey("featured"))
	require.NoError(t, err)
	assert.Len(t, snap.Selections, scanCfg.MaxPerSport)
}

func TestMispricedScannerCacheOutageFailsRun(t *testing.T) {
	oddsCache := newFakeOddsCache()
	oddsCache.fail = domain.ErrCacheUnavailable

	cfg := DefaultMispricedConfig()
	cfg.Sports = []string{market.SportNBA}
	m := NewMispricedScanner(oddsCache, newFakeAggCache(), nil, Sinks{}, cfg, scanner.DefaultConfig(), testLogger())

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}
