package market

import (
	"strconv"
	"strings"
)

// Cache-key schema. Every key is a colon-joined tuple with a fixed domain
// prefix, so pattern scans never collide across entry kinds.
//
//	odds:{sport}:{entity}:{market}      one entity's quotes for one market
//	ev-{N}percent:{sport}:{event}       per-event EV records above N%
//	ev:{sport}                          combined per-sport EV snapshot
//	mispriced:{scope}                   cross-sport mispricing snapshot
const (
	oddsPrefix      = "odds"
	evPrefix        = "ev"
	mispricedPrefix = "mispriced"
)

// OddsKey builds the cache key for one player's (or event's) quotes in one
// market. The market key is lowercased so the same market never lands under
// two keys.
func OddsKey(sport, entityID, marketKey string) string {
	return strings.Join([]string{oddsPrefix, sport, entityID, strings.ToLower(marketKey)}, ":")
}

// OddsPlayerKey builds the odds key for a player-prop entity.
func OddsPlayerKey(sport string, playerID int64, marketKey string) string {
	return OddsKey(sport, strconv.FormatInt(playerID, 10), marketKey)
}

// OddsPattern is the scan pattern matching every entity's entry for one
// market in one sport.
func OddsPattern(sport, marketKey string) string {
	return strings.Join([]string{oddsPrefix, sport, "*", strings.ToLower(marketKey)}, ":")
}

// EVEventKey builds the per-event aggregate key for EV records at or above
// the given percentage threshold. Threshold 0 stores the unfiltered set.
func EVEventKey(thresholdPct int, sport, eventID string) string {
	bucket := "ev-all"
	if thresholdPct > 0 {
		bucket = evPrefix + "-" + strconv.Itoa(thresholdPct) + "percent"
	}
	return strings.Join([]string{bucket, sport, eventID}, ":")
}

// EVSportKey builds the combined per-sport snapshot key.
func EVSportKey(sport string) string {
	return evPrefix + ":" + sport
}

// MispricedKey builds the published mispricing snapshot key for a scope
// (e.g. "featured" for the cross-sport homepage set).
func MispricedKey(scope string) string {
	return mispricedPrefix + ":" + scope
}
