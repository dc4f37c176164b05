package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
)

func q(price int) *domain.Quote { return &domain.Quote{Price: price} }

func sel() domain.Selection {
	return domain.Selection{
		Sport:     "baseball_mlb",
		EventID:   "evt1",
		MarketKey: "batter_hits",
		Line:      1.5,
	}
}

func TestFewerThanThreeBooksNeverFlagged(t *testing.T) {
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(400)},
		"draftkings": {Over: q(-110)},
	}
	_, ok := AnalyzeLine(DefaultConfig(), sel(), quotes)
	assert.False(t, ok)
}

func TestTightMarketNotFlagged(t *testing.T) {
	// Five books clustered around -110; the best at -105 sits well within
	// 10% of the average.
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(-110)},
		"draftkings": {Over: q(-108)},
		"betmgm":     {Over: q(-112)},
		"caesars":    {Over: q(-115)},
		"bet365":     {Over: q(-105)},
	}
	_, ok := AnalyzeLine(DefaultConfig(), sel(), quotes)
	assert.False(t, ok)
}

func TestOutlierPriceFlagged(t *testing.T) {
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(150)},
		"draftkings": {Over: q(105)},
		"betmgm":     {Over: q(100)},
		"caesars":    {Over: q(110)},
	}
	flagged, ok := AnalyzeLine(DefaultConfig(), sel(), quotes)
	require.True(t, ok)

	assert.Equal(t, domain.SideOver, flagged.Side)
	assert.Equal(t, "fanduel", flagged.BestBook)
	assert.Equal(t, 150, flagged.BestOdds)
	assert.InDelta(t, 116.25, flagged.AverageOdds, 1e-9)
	assert.Equal(t, 4, flagged.BookCount)
	assert.Greater(t, flagged.PercentDiff, 10.0)
	assert.Greater(t, flagged.ValueScore, 0.0)
}

func TestPicksLargerDivergenceSide(t *testing.T) {
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(-110), Under: q(200)},
		"draftkings": {Over: q(-112), Under: q(110)},
		"betmgm":     {Over: q(-108), Under: q(105)},
	}
	flagged, ok := AnalyzeLine(DefaultConfig(), sel(), quotes)
	require.True(t, ok)
	assert.Equal(t, domain.SideUnder, flagged.Side)
	assert.Equal(t, "fanduel", flagged.BestBook)
}

func TestValueScore(t *testing.T) {
	c := DefaultConfig()

	// 20% divergence, 5 books, short odds: 20 * 1.0 * 1.2 = 24.
	assert.InDelta(t, 24, ValueScore(c, 120, 100, 5), 1e-9)

	// Liquidity factor caps at 1 regardless of book count.
	assert.InDelta(t, ValueScore(c, 120, 100, 5), ValueScore(c, 120, 100, 9), 1e-9)

	// Long odds lose the short-odds bonus.
	long := ValueScore(c, 300, 250, 5)
	assert.InDelta(t, 20, long, 1e-9)

	// Fewer books scale the score down.
	assert.Less(t, ValueScore(c, 120, 100, 3), ValueScore(c, 120, 100, 5))

	// Degenerate average never divides by zero.
	assert.Zero(t, ValueScore(c, 120, 0, 5))
}

func TestAnalyzeEntryPicksBestLine(t *testing.T) {
	entry := domain.OddsEntry{
		Sport:     "baseball_mlb",
		EventID:   "evt1",
		MarketKey: "batter_hits",
		Lines: map[string]domain.LineQuotes{
			"0.5": {
				"fanduel":    {Over: q(-200)},
				"draftkings": {Over: q(-205)},
				"betmgm":     {Over: q(-210)},
			},
			"1.5": {
				"fanduel":    {Over: q(210)},
				"draftkings": {Over: q(150)},
				"betmgm":     {Over: q(145)},
			},
		},
		UpdatedAt: time.Now(),
	}

	flagged, ok := AnalyzeEntry(DefaultConfig(), entry)
	require.True(t, ok)
	assert.Equal(t, 1.5, flagged.Line)
	assert.Equal(t, "fanduel", flagged.BestBook)
}

func TestAnalyzeEntrySkipsMalformedLineKeys(t *testing.T) {
	entry := domain.OddsEntry{
		Lines: map[string]domain.LineQuotes{
			"not-a-line": {
				"fanduel":    {Over: q(210)},
				"draftkings": {Over: q(150)},
				"betmgm":     {Over: q(145)},
			},
		},
	}
	_, ok := AnalyzeEntry(DefaultConfig(), entry)
	assert.False(t, ok)
}

func TestRankSortsAndTruncates(t *testing.T) {
	c := DefaultConfig()
	c.MaxTotal = 2

	in := []domain.MispricedSelection{
		{ValueScore: 5},
		{ValueScore: 30},
		{ValueScore: 12},
	}
	out := Rank(c, in)

	require.Len(t, out, 2)
	assert.Equal(t, 30.0, out[0].ValueScore)
	assert.Equal(t, 12.0, out[1].ValueScore)
}
