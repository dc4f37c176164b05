package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every canonical market must resolve bidirectionally: API key -> Market,
// alternate key -> Market, and value -> Market, for every sport.
func TestLookupCompleteness(t *testing.T) {
	for sport, markets := range bySport {
		for _, m := range markets {
			got, ok := ByAPIKey(sport, m.APIKey)
			require.True(t, ok, "%s: api key %s not resolvable", sport, m.APIKey)
			assert.Equal(t, m.Value, got.Value)

			if m.AlternateKey != "" {
				alt, ok := ByAPIKey(sport, m.AlternateKey)
				require.True(t, ok, "%s: alternate key %s not resolvable", sport, m.AlternateKey)
				assert.Equal(t, m.Value, alt.Value)
			}

			byVal, ok := ByValue(sport, m.Value)
			require.True(t, ok, "%s: value %s not resolvable", sport, m.Value)
			assert.Equal(t, m.APIKey, byVal.APIKey)
		}
	}
}

// Every API key the enumeration defines must pass the upstream allow-list,
// otherwise the scheduler would silently skip a configured market.
func TestAllMarketsPassAllowList(t *testing.T) {
	for sport := range bySport {
		for _, key := range APIKeysForSport(sport) {
			assert.True(t, IsValidKey(key), "%s: key %s fails allow-list", sport, key)
		}
	}
}

func TestValidKeysFilters(t *testing.T) {
	in := []string{"player_points", "bogus_market", "batter_hits_alternate", "h2h", "made_up"}
	out := ValidKeys(in)
	assert.Equal(t, []string{"player_points", "batter_hits_alternate", "h2h"}, out)
}

func TestPriorityMarketsAreCanonical(t *testing.T) {
	for sport, keys := range PriorityMarkets {
		for _, k := range keys {
			_, ok := ByAPIKey(sport, k)
			assert.True(t, ok, "%s: priority market %s missing from enumeration", sport, k)
		}
	}
}

func TestKeyConstruction(t *testing.T) {
	assert.Equal(t, "odds:baseball_mlb:665742:batter_hits", OddsPlayerKey(SportMLB, 665742, "Batter_Hits"))
	assert.Equal(t, "odds:basketball_nba:*:player_points", OddsPattern(SportNBA, "player_points"))
	assert.Equal(t, "ev-3percent:basketball_nba:evt1", EVEventKey(3, SportNBA, "evt1"))
	assert.Equal(t, "ev-all:basketball_nba:evt1", EVEventKey(0, SportNBA, "evt1"))
	assert.Equal(t, "ev:baseball_mlb", EVSportKey(SportMLB))
	assert.Equal(t, "mispriced:featured", MispricedKey("featured"))
}

// Keys must be collision-free across distinct identities.
func TestKeyUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for _, sport := range PrioritySports {
		for _, mk := range APIKeysForSport(sport) {
			for _, id := range []string{"1", "2", "evt"} {
				k := OddsKey(sport, id, mk)
				assert.False(t, seen[k], "duplicate key %s", k)
				seen[k] = true
			}
		}
	}
}
