package provider

import (
	"strings"
	"time"

	"github.com/oddsight/oddsight/internal/domain"
)

// Event is one upcoming game returned by the events endpoint.
type Event struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

// EventOdds is the normalized odds payload for one event: every requested
// bookmaker with every requested market and its outcomes.
type EventOdds struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one sportsbook's markets within an event payload.
type Bookmaker struct {
	Key     string           `json:"key"`
	Title   string           `json:"title"`
	Markets []BookmakerMarket `json:"markets"`
}

// BookmakerMarket is one market's outcomes as priced by one book.
type BookmakerMarket struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is a single priced side. For player props, Description carries the
// player name and Point the line; for game lines, Name carries the team or
// Over/Under and Point the spread/total.
type Outcome struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       int     `json:"price"`
	Point       float64 `json:"point,omitempty"`
	Link        string  `json:"link,omitempty"`
	SID         string  `json:"sid,omitempty"`
}

// OddsEntries regroups the bookmaker-major payload into cache-shaped
// entries: one per (entity, market), holding every line and every book's
// two-sided prices. The returned map is keyed by entity ID — the slugged
// player name for props, the event ID for game lines.
func (eo EventOdds) OddsEntries() map[string]domain.OddsEntry {
	entries := make(map[string]domain.OddsEntry)

	for _, bm := range eo.Bookmakers {
		for _, mkt := range bm.Markets {
			for _, out := range mkt.Outcomes {
				entity := eo.ID
				player := ""
				if out.Description != "" {
					player = out.Description
					entity = Slug(out.Description)
				}

				entryKey := entity + "|" + mkt.Key
				entry, ok := entries[entryKey]
				if !ok {
					entry = domain.OddsEntry{
						Sport:        eo.SportKey,
						EventID:      eo.ID,
						CommenceTime: eo.CommenceTime,
						HomeTeam:     eo.HomeTeam,
						AwayTeam:     eo.AwayTeam,
						PlayerName:   player,
						MarketKey:    mkt.Key,
						Lines:        make(map[string]domain.LineQuotes),
					}
				}

				lineKey := domain.FormatLine(out.Point)
				lq, ok := entry.Lines[lineKey]
				if !ok {
					lq = make(domain.LineQuotes)
				}
				bq := lq[bm.Key]

				quote := &domain.Quote{
					Price:     out.Price,
					Link:      out.Link,
					SID:       out.SID,
					UpdatedAt: mkt.LastUpdate,
				}
				if sideOf(out.Name) == domain.SideUnder {
					bq.Under = quote
				} else {
					bq.Over = quote
				}

				lq[bm.Key] = bq
				entry.Lines[lineKey] = lq
				if mkt.LastUpdate.After(entry.UpdatedAt) {
					entry.UpdatedAt = mkt.LastUpdate
				}
				entries[entryKey] = entry
			}
		}
	}

	return entries
}

// EntityID extracts the entity part of an entry key produced by OddsEntries.
func EntityID(entryKey string) string {
	if i := strings.IndexByte(entryKey, '|'); i >= 0 {
		return entryKey[:i]
	}
	return entryKey
}

// sideOf maps an outcome name to a side. Anything that is not an Under is
// stored on the over/primary slot.
func sideOf(name string) domain.Side {
	if strings.Contains(strings.ToLower(name), "under") {
		return domain.SideUnder
	}
	return domain.SideOver
}

// Slug lowercases a display name into a stable cache-key segment.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
