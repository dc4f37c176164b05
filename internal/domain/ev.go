package domain

import "time"

// Confidence grades how much signal backs a fair-value estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// FairValueResult is the fair-probability estimate for one side of a
// selection. It is recomputed on every request and never cached on its own;
// only the EVRecord derived from it is published.
type FairValueResult struct {
	FairProbability float64
	BooksUsed       int
	ReferenceUsed   bool
	NoVigLineUsed   bool
	Confidence      Confidence
}

// EVRecord is one scored betting opportunity. Records are written into a
// TTL'd aggregate bucket and fully replaced each aggregation cycle.
type EVRecord struct {
	Selection
	Side            Side       `json:"side"`
	EVPercent       float64    `json:"ev_percent"`
	EVDollars       float64    `json:"ev_dollars"`
	BestBook        string     `json:"best_book"`
	BestOdds        int        `json:"best_odds"`
	FairProbability float64    `json:"fair_probability"`
	Confidence      Confidence `json:"confidence"`
	BooksUsed       int        `json:"books_used"`
	NoVigLineUsed   bool       `json:"no_vig_line_used"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MispricedSelection flags one book's price diverging from the market
// average on a line. Computed fresh each scan cycle; the prior cached
// snapshot is replaced atomically.
type MispricedSelection struct {
	Selection
	Side           Side      `json:"side"`
	BestBook       string    `json:"best_book"`
	BestOdds       int       `json:"best_odds"`
	AverageOdds    float64   `json:"average_odds"`
	PercentDiff    float64   `json:"percent_diff"`
	BookCount      int       `json:"book_count"`
	ValueScore     float64   `json:"value_score"`
	LastUpdated    time.Time `json:"last_updated"`
}

// EVSnapshot is the published aggregate for one scan cycle of a sport.
// Readers only ever observe a complete snapshot (single overwrite).
type EVSnapshot struct {
	Sport       string     `json:"sport"`
	RunID       string     `json:"run_id"`
	Records     []EVRecord `json:"records"`
	EventsSeen  int        `json:"events_seen"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// MispricedSnapshot is the published cross-sport mispricing aggregate.
type MispricedSnapshot struct {
	Selections    []MispricedSelection `json:"selections"`
	SportsScanned []string             `json:"sports_scanned"`
	RunID         string               `json:"run_id"`
	GeneratedAt   time.Time            `json:"generated_at"`
}
