// Package market defines the canonical market enumeration per sport and the
// deterministic cache-key schema. Display labels, provider API keys, and
// canonical values map through tables built once at init; nothing in the
// pipeline branches on raw display strings.
package market

import "strings"

// Market is one canonical betting market for a sport.
type Market struct {
	Value        string // canonical identifier, e.g. "Points"
	Label        string // display label, e.g. "Points"
	APIKey       string // provider market key, e.g. "player_points"
	AlternateKey string // provider key for alternate lines, if any
	FetchBoth    bool   // fetch standard and alternate keys together
}

// HasAlternate reports whether the market offers alternate lines.
func (m Market) HasAlternate() bool { return m.AlternateKey != "" }

// Sport identifiers in provider convention.
const (
	SportNBA = "basketball_nba"
	SportMLB = "baseball_mlb"
	SportNHL = "icehockey_nhl"
	SportNFL = "americanfootball_nfl"
)

var nbaMarkets = []Market{
	{Value: "Moneyline", Label: "Moneyline", APIKey: "h2h"},
	{Value: "Spread", Label: "Point Spread", APIKey: "spreads"},
	{Value: "Total", Label: "Total Points", APIKey: "totals"},
	{Value: "Points", Label: "Points", APIKey: "player_points", AlternateKey: "player_points_alternate", FetchBoth: true},
	{Value: "Rebounds", Label: "Rebounds", APIKey: "player_rebounds", AlternateKey: "player_rebounds_alternate", FetchBoth: true},
	{Value: "Assists", Label: "Assists", APIKey: "player_assists", AlternateKey: "player_assists_alternate", FetchBoth: true},
	{Value: "Threes", Label: "Threes", APIKey: "player_threes", AlternateKey: "player_threes_alternate", FetchBoth: true},
	{Value: "PRA", Label: "Pts+Reb+Ast", APIKey: "player_points_rebounds_assists", AlternateKey: "player_points_rebounds_assists_alternate", FetchBoth: true},
	{Value: "Points_Rebounds", Label: "Pts+Reb", APIKey: "player_points_rebounds"},
	{Value: "Points_Assists", Label: "Pts+Ast", APIKey: "player_points_assists"},
	{Value: "Rebounds_Assists", Label: "Reb+Ast", APIKey: "player_rebounds_assists"},
	{Value: "Blocks", Label: "Blocks", APIKey: "player_blocks"},
	{Value: "Steals", Label: "Steals", APIKey: "player_steals"},
	{Value: "Double_Double", Label: "Double Double", APIKey: "player_double_double"},
}

var mlbMarkets = []Market{
	{Value: "Moneyline", Label: "Moneyline", APIKey: "h2h"},
	{Value: "Spread", Label: "Run Line", APIKey: "spreads"},
	{Value: "Total", Label: "Total Runs", APIKey: "totals"},
	{Value: "Home_Runs", Label: "Home Runs", APIKey: "batter_home_runs", AlternateKey: "batter_home_runs_alternate", FetchBoth: true},
	{Value: "Hits", Label: "Hits", APIKey: "batter_hits", AlternateKey: "batter_hits_alternate", FetchBoth: true},
	{Value: "Total_Bases", Label: "Total Bases", APIKey: "batter_total_bases", AlternateKey: "batter_total_bases_alternate", FetchBoth: true},
	{Value: "RBIs", Label: "RBIs", APIKey: "batter_rbis"},
	{Value: "Runs", Label: "Runs Scored", APIKey: "batter_runs"},
	{Value: "Strikeouts", Label: "Strikeouts", APIKey: "pitcher_strikeouts", AlternateKey: "pitcher_strikeouts_alternate", FetchBoth: true},
	{Value: "Hits_Allowed", Label: "Hits Allowed", APIKey: "pitcher_hits_allowed"},
	{Value: "Walks", Label: "Walks", APIKey: "batter_walks"},
}

var nhlMarkets = []Market{
	{Value: "Moneyline", Label: "Moneyline", APIKey: "h2h"},
	{Value: "Spread", Label: "Puck Line", APIKey: "spreads"},
	{Value: "Total", Label: "Total Goals", APIKey: "totals"},
	{Value: "Shots", Label: "Shots on Goal", APIKey: "player_shots_on_goal"},
	{Value: "Goals", Label: "Goals", APIKey: "player_goals"},
	{Value: "Power_Play_Points", Label: "Power Play Points", APIKey: "player_power_play_points"},
	{Value: "Blocked_Shots", Label: "Blocked Shots", APIKey: "player_blocked_shots"},
	{Value: "Saves", Label: "Saves", APIKey: "player_total_saves"},
}

var nflMarkets = []Market{
	{Value: "Moneyline", Label: "Moneyline", APIKey: "h2h"},
	{Value: "Spread", Label: "Point Spread", APIKey: "spreads"},
	{Value: "Total", Label: "Total Points", APIKey: "totals"},
	{Value: "Pass_Yards", Label: "Passing Yards", APIKey: "player_pass_yds", AlternateKey: "player_pass_yds_alternate", FetchBoth: true},
	{Value: "Rush_Yards", Label: "Rushing Yards", APIKey: "player_rush_yds", AlternateKey: "player_rush_yds_alternate", FetchBoth: true},
	{Value: "Receptions", Label: "Receptions", APIKey: "player_receptions"},
	{Value: "Receiving_Yards", Label: "Receiving Yards", APIKey: "player_reception_yds"},
}

// bySport holds the canonical market list per sport.
var bySport = map[string][]Market{
	SportNBA: nbaMarkets,
	SportMLB: mlbMarkets,
	SportNHL: nhlMarkets,
	SportNFL: nflMarkets,
}

// PrioritySports is the scan order for cross-sport jobs.
var PrioritySports = []string{SportNBA, SportMLB, SportNHL, SportNFL}

// PriorityMarkets is the per-sport market scan order for the mispricing job.
// Earlier entries are higher-liquidity player markets.
var PriorityMarkets = map[string][]string{
	SportNBA: {"player_points", "player_rebounds", "player_assists", "player_threes"},
	SportMLB: {"batter_hits", "batter_total_bases", "batter_home_runs", "pitcher_strikeouts"},
	SportNHL: {"player_shots_on_goal", "player_goals", "player_total_saves"},
	SportNFL: {"player_pass_yds", "player_rush_yds", "player_receptions"},
}

// Lookup tables built once at init. Keyed per sport so the same canonical
// value can map to different API keys across sports.
var (
	byAPIKey map[string]map[string]Market // sport -> apiKey -> Market
	byValue  map[string]map[string]Market // sport -> canonical value -> Market
)

func init() {
	byAPIKey = make(map[string]map[string]Market, len(bySport))
	byValue = make(map[string]map[string]Market, len(bySport))
	for sport, markets := range bySport {
		byAPIKey[sport] = make(map[string]Market, len(markets)*2)
		byValue[sport] = make(map[string]Market, len(markets))
		for _, m := range markets {
			byAPIKey[sport][m.APIKey] = m
			if m.AlternateKey != "" {
				byAPIKey[sport][m.AlternateKey] = m
			}
			byValue[sport][m.Value] = m
		}
	}
}

// ForSport returns the canonical market list for a sport. Unknown sports
// return nil.
func ForSport(sport string) []Market {
	return bySport[sport]
}

// ByAPIKey resolves a provider market key (standard or alternate) to its
// canonical Market.
func ByAPIKey(sport, apiKey string) (Market, bool) {
	m, ok := byAPIKey[sport][apiKey]
	return m, ok
}

// ByValue resolves a canonical value to its Market.
func ByValue(sport, value string) (Market, bool) {
	m, ok := byValue[sport][value]
	return m, ok
}

// validPrefixes is the allow-list of known provider market-key prefixes.
// Keys outside this list are filtered before querying upstream to avoid
// provider errors on invalid markets.
var validPrefixes = []string{
	"h2h", "spreads", "totals",
	"player_points", "player_rebounds", "player_assists", "player_threes",
	"player_blocks", "player_steals", "player_double_double",
	"player_shots_on_goal", "player_goals", "player_power_play_points",
	"player_blocked_shots", "player_total_saves",
	"player_pass_yds", "player_rush_yds", "player_receptions",
	"player_reception_yds",
	"batter_home_runs", "batter_hits", "batter_total_bases", "batter_rbis",
	"batter_runs", "batter_walks",
	"pitcher_strikeouts", "pitcher_hits_allowed", "pitcher_walks",
}

// ValidKeys filters a list of provider market keys down to those matching
// the allow-list of known prefixes.
func ValidKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if IsValidKey(k) {
			out = append(out, k)
		}
	}
	return out
}

// IsValidKey reports whether a provider market key matches a known prefix.
func IsValidKey(key string) bool {
	for _, p := range validPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// APIKeysForSport returns every provider key to request for a sport,
// including alternate-line keys for markets flagged FetchBoth.
func APIKeysForSport(sport string) []string {
	markets := bySport[sport]
	keys := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		keys = append(keys, m.APIKey)
		if m.FetchBoth && m.AlternateKey != "" {
			keys = append(keys, m.AlternateKey)
		}
	}
	return keys
}
