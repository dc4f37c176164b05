package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/ev"
	"github.com/oddsight/oddsight/internal/market"
)

func seedEdgeEntry(cache *fakeOddsCache, sport, entity, marketKey string, commence time.Time) {
	updated := time.Now().UTC()
	entry := domain.OddsEntry{
		Sport:        sport,
		EventID:      "evt-42",
		CommenceTime: commence,
		HomeTeam:     "Boston Celtics",
		AwayTeam:     "New York Knicks",
		PlayerName:   "Jayson Tatum",
		MarketKey:    marketKey,
		Lines: map[string]domain.LineQuotes{
			"27.5": positiveEVQuotes(updated),
		},
		UpdatedAt: updated,
	}
	key := market.OddsKey(sport, entity, marketKey)
	_ = cache.SetWithTTL(context.Background(), key, entry, time.Minute)
}

func TestAggregatorPublishesSportBucket(t *testing.T) {
	commence := time.Now().UTC().Add(2 * time.Hour)
	oddsCache := newFakeOddsCache()
	seedEdgeEntry(oddsCache, market.SportNBA, "jayson-tatum", "player_points", commence)

	aggCache := newFakeAggCache()
	cfg := DefaultAggregatorConfig()
	cfg.Sports = []string{market.SportNBA}

	a := NewMarketAggregator(oddsCache, aggCache, nil, Sinks{}, cfg, ev.DefaultConfig(), testLogger())
	require.NoError(t, a.Run(context.Background()))

	snap, err := aggCache.GetEV(context.Background(), market.EVSportKey(market.SportNBA))
	require.NoError(t, err)
	assert.Equal(t, market.SportNBA, snap.Sport)
	assert.Equal(t, 1, snap.EventsSeen)
	require.Len(t, snap.Records, 1)
	rec := snap.Records[0]
	assert.Equal(t, "fanduel", rec.BestBook)
	assert.InDelta(t, 10, rec.EVPercent, 0.01)
	assert.Equal(t, 27.5, rec.Line)
}

func TestAggregatorDropsStartedGames(t *testing.T) {
	oddsCache := newFakeOddsCache()
	seedEdgeEntry(oddsCache, market.SportNBA, "jayson-tatum", "player_points", time.Now().UTC().Add(-time.Hour))

	aggCache := newFakeAggCache()
	cfg := DefaultAggregatorConfig()
	cfg.Sports = []string{market.SportNBA}
	a := NewMarketAggregator(oddsCache, aggCache, nil, Sinks{}, cfg, ev.DefaultConfig(), testLogger())

	require.NoError(t, a.Run(context.Background()))

	snap, err := aggCache.GetEV(context.Background(), market.EVSportKey(market.SportNBA))
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Zero(t, snap.EventsSeen)
}

func TestAggregatorPublishOrderIsStable(t *testing.T) {
	commence := time.Now().UTC().Add(2 * time.Hour)
	updated := time.Now().UTC()
	oddsCache := newFakeOddsCache()

	for _, marketKey := range []string{"player_points", "player_rebounds"} {
		entry := domain.OddsEntry{
			Sport:        market.SportNBA,
			EventID:      "evt-42",
			CommenceTime: commence,
			HomeTeam:     "Boston Celtics",
			AwayTeam:     "New York Knicks",
			PlayerName:   "Jayson Tatum",
			MarketKey:    marketKey,
			Lines: map[string]domain.LineQuotes{
				"20.5": positiveEVQuotes(updated),
				"21.5": positiveEVQuotes(updated),
				"24.5": positiveEVQuotes(updated),
				"27.5": positiveEVQuotes(updated),
			},
			UpdatedAt: updated,
		}
		key := market.OddsKey(market.SportNBA, "jayson-tatum", marketKey)
		_ = oddsCache.SetWithTTL(context.Background(), key, entry, time.Minute)
	}

	aggCache := newFakeAggCache()
	cfg := DefaultAggregatorConfig()
	cfg.Sports = []string{market.SportNBA}
	a := NewMarketAggregator(oddsCache, aggCache, nil, Sinks{}, cfg, ev.DefaultConfig(), testLogger())

	ordering := func() []string {
		require.NoError(t, a.Run(context.Background()))
		snap, err := aggCache.GetEV(context.Background(), market.EVSportKey(market.SportNBA))
		require.NoError(t, err)
		require.Len(t, snap.Records, 8)
		out := make([]string, 0, len(snap.Records))
		for _, rec := range snap.Records {
			out = append(out, fmt.Sprintf("%s/%.1f/%s", rec.MarketKey, rec.Line, rec.Side))
		}
		return out
	}

	want := []string{
		"player_points/20.5/over",
		"player_points/21.5/over",
		"player_points/24.5/over",
		"player_points/27.5/over",
		"player_rebounds/20.5/over",
		"player_rebounds/21.5/over",
		"player_rebounds/24.5/over",
		"player_rebounds/27.5/over",
	}
	first := ordering()
	assert.Equal(t, want, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ordering())
	}
}

func TestAggregatorCacheOutageAborts(t *testing.T) {
	oddsCache := newFakeOddsCache()
	oddsCache.fail = domain.ErrCacheUnavailable

	cfg := DefaultAggregatorConfig()
	cfg.Sports = []string{market.SportNBA}
	a := NewMarketAggregator(oddsCache, newFakeAggCache(), nil, Sinks{}, cfg, ev.DefaultConfig(), testLogger())

	err := a.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}
