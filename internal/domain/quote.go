package domain

import (
	"strconv"
	"time"
)

// Side identifies which side of a market a quote prices.
type Side string

const (
	SideOver      Side = "over"
	SideUnder     Side = "under"
	SideMoneyline Side = "moneyline"
	SideSpread    Side = "spread"
)

// Opposite returns the other side of a two-way market. Sides without a
// natural complement return themselves.
func (s Side) Opposite() Side {
	switch s {
	case SideOver:
		return SideUnder
	case SideUnder:
		return SideOver
	default:
		return s
	}
}

// Quote is one sportsbook's price for one (selection, line, side).
// Price is a nonzero integer in American-odds convention; the sign encodes
// favorite (negative) vs underdog (positive).
type Quote struct {
	Price     int       `json:"price"`
	Link      string    `json:"link,omitempty"`
	SID       string    `json:"sid,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// BookQuote holds one book's two-sided quotes for a single line. Either side
// may be nil when the book does not price it.
type BookQuote struct {
	Over  *Quote `json:"over,omitempty"`
	Under *Quote `json:"under,omitempty"`
}

// Side returns the quote for the requested side, or nil.
func (b BookQuote) Side(s Side) *Quote {
	if s == SideUnder {
		return b.Under
	}
	return b.Over
}

// LineQuotes maps book ID to that book's two-sided quotes for one line.
type LineQuotes map[string]BookQuote

// Selection is an identifiable bettable proposition. (Sport, EventID,
// MarketKey, Line) is the stable identity used for cache keys and dedup;
// player props additionally carry PlayerID.
type Selection struct {
	Sport        string    `json:"sport"`
	EventID      string    `json:"event_id"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	PlayerID     int64     `json:"player_id,omitempty"`
	PlayerName   string    `json:"player_name,omitempty"`
	Team         string    `json:"team,omitempty"`
	MarketKey    string    `json:"market"`
	Line         float64   `json:"line"`
}

// Matchup renders the standard "Home vs Away" display string.
func (s Selection) Matchup() string {
	return s.HomeTeam + " vs " + s.AwayTeam
}

// OddsEntry is the cached unit for one (player or event, market): every
// quoted line with every book's prices. Entries expire on a short TTL;
// a missing or expired entry must be treated as unknown, never as zero.
type OddsEntry struct {
	Sport        string                `json:"sport"`
	EventID      string                `json:"event_id"`
	CommenceTime time.Time             `json:"commence_time"`
	HomeTeam     string                `json:"home_team"`
	AwayTeam     string                `json:"away_team"`
	PlayerID     int64                 `json:"player_id,omitempty"`
	PlayerName   string                `json:"description,omitempty"`
	Team         string                `json:"team,omitempty"`
	MarketKey    string                `json:"market"`
	Lines        map[string]LineQuotes `json:"lines"`
	UpdatedAt    time.Time             `json:"last_updated"`
}

// Selection builds the Selection identity for one of the entry's lines.
func (e OddsEntry) Selection(line float64) Selection {
	return Selection{
		Sport:        e.Sport,
		EventID:      e.EventID,
		CommenceTime: e.CommenceTime,
		HomeTeam:     e.HomeTeam,
		AwayTeam:     e.AwayTeam,
		PlayerID:     e.PlayerID,
		PlayerName:   e.PlayerName,
		Team:         e.Team,
		MarketKey:    e.MarketKey,
		Line:         line,
	}
}

// FormatLine renders a line value the way it is keyed in OddsEntry.Lines
// ("27.5", "1.5", "220"). Trailing zeros are trimmed so the key is stable
// regardless of how the float was produced.
func FormatLine(line float64) string {
	return strconv.FormatFloat(line, 'f', -1, 64)
}

// ParseLine is the inverse of FormatLine. Malformed input returns 0 and
// false.
func ParseLine(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
