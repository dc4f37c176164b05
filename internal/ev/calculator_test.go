package ev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/odds"
)

func q(price int) *domain.Quote { return &domain.Quote{Price: price} }

func TestNoVigFairLineFromReferencePair(t *testing.T) {
	quotes := domain.LineQuotes{
		"pinnacle": {Over: q(-110), Under: q(-110)},
		"fanduel":  {Over: q(-112), Under: q(-108)},
		"draftkings": {Over: q(-115), Under: q(-105)},
		"betmgm":   {Over: q(-108), Under: q(-112)},
	}

	res := Calculate(DefaultConfig(), quotes, domain.SideOver)

	assert.InDelta(t, 0.5, res.FairProbability, 1e-12)
	assert.True(t, res.NoVigLineUsed)
	assert.True(t, res.ReferenceUsed)
	assert.Equal(t, 4, res.BooksUsed)
	assert.Equal(t, domain.ConfidenceHigh, res.Confidence)
	// Reference book must not win the best-price search against its own line.
	assert.NotEqual(t, "pinnacle", res.BestBook)
}

func TestPositiveEVAgainstSoftBook(t *testing.T) {
	// Reference prices the market dead even; one book hangs +105. On a $100
	// stake that is a $2.50 edge. The spread floor is lowered so the small
	// but real edge is not suppressed.
	cfg := DefaultConfig()
	cfg.MinProbSpread = 0.01

	quotes := domain.LineQuotes{
		"pinnacle":   {Over: q(-110), Under: q(-110)},
		"fanduel":    {Over: q(105)},
		"draftkings": {Over: q(-112)},
		"betmgm":     {Over: q(-110)},
	}

	res := Calculate(cfg, quotes, domain.SideOver)

	require.Equal(t, "fanduel", res.BestBook)
	assert.Equal(t, 105, res.BestOdds)
	assert.InDelta(t, 2.5, res.EVDollars, 0.01)
	assert.InDelta(t, 2.5, res.EVPercent, 0.01)
}

func TestEVSignConsistency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinProbSpread = 0

	quotes := domain.LineQuotes{
		"pinnacle":   {Over: q(-130), Under: q(110)},
		"fanduel":    {Over: q(100)},
		"draftkings": {Over: q(-120)},
		"betmgm":     {Over: q(-125)},
	}

	res := Calculate(cfg, quotes, domain.SideOver)
	require.NotZero(t, res.BestOdds)

	bestImplied := odds.AmericanToImplied(res.BestOdds)
	if res.FairProbability > bestImplied {
		assert.Greater(t, res.EVPercent, 0.0)
	} else {
		assert.LessOrEqual(t, res.EVPercent, 0.0)
	}
}

func TestTwoBooksDegradesToZero(t *testing.T) {
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(-110), Under: q(-110)},
		"draftkings": {Over: q(105)},
	}

	res := Calculate(DefaultConfig(), quotes, domain.SideOver)

	assert.Zero(t, res.EVPercent)
	assert.Zero(t, res.EVDollars)
	assert.Equal(t, domain.ConfidenceLow, res.Confidence)
	assert.Empty(t, res.BestBook)
	assert.Zero(t, res.BestOdds)
}

func TestWeightedAverageFallback(t *testing.T) {
	// Reference quotes only one side, so the no-vig strategy cannot run and
	// the weighted average takes over with the reference at 10x weight.
	quotes := domain.LineQuotes{
		"pinnacle":   {Over: q(-120)},
		"fanduel":    {Over: q(-105)},
		"draftkings": {Over: q(-110)},
		"betmgm":     {Over: q(-108)},
		"caesars":    {Over: q(-112)},
	}

	res := Calculate(DefaultConfig(), quotes, domain.SideOver)

	assert.False(t, res.NoVigLineUsed)
	assert.True(t, res.ReferenceUsed)
	assert.Equal(t, 5, res.BooksUsed)
	assert.Equal(t, domain.ConfidenceMedium, res.Confidence)

	// The heavy reference weight should pull the fair probability toward
	// the reference's implied probability.
	refImplied := odds.AmericanToImplied(-120)
	plainAvg := (odds.AmericanToImplied(-105) + odds.AmericanToImplied(-110) +
		odds.AmericanToImplied(-108) + odds.AmericanToImplied(-112)) / 4
	assert.Less(t, res.FairProbability-plainAvg, refImplied-plainAvg)
	assert.Greater(t, res.FairProbability, plainAvg)
}

func TestFallbackWithoutReferenceRejected(t *testing.T) {
	quotes := domain.LineQuotes{
		"fanduel":    {Over: q(-105)},
		"draftkings": {Over: q(-110)},
		"betmgm":     {Over: q(-108)},
		"caesars":    {Over: q(-112)},
	}

	res := Calculate(DefaultConfig(), quotes, domain.SideOver)

	assert.Zero(t, res.EVPercent)
	assert.Equal(t, domain.ConfidenceLow, res.Confidence)
	assert.Empty(t, res.BestBook)

	// Relaxing the policy lets the same quotes through.
	cfg := DefaultConfig()
	cfg.RequireReference = false
	res = Calculate(cfg, quotes, domain.SideOver)
	assert.NotEmpty(t, res.BestBook)
}

func TestSpreadFloorZeroesNoise(t *testing.T) {
	// All books within a tick of each other: any "edge" is noise. The EV is
	// zeroed but diagnostics are preserved.
	quotes := domain.LineQuotes{
		"pinnacle":   {Over: q(-110), Under: q(-110)},
		"fanduel":    {Over: q(-109)},
		"draftkings": {Over: q(-110)},
		"betmgm":     {Over: q(-111)},
	}

	res := Calculate(DefaultConfig(), quotes, domain.SideOver)

	assert.Zero(t, res.EVPercent)
	assert.Zero(t, res.EVDollars)
	assert.NotEmpty(t, res.BestBook)
	assert.InDelta(t, 0.5, res.FairProbability, 1e-12)
}

// Adding books at or above the minimum must never lower the confidence tier.
func TestConfidenceMonotonicity(t *testing.T) {
	rank := map[domain.Confidence]int{
		domain.ConfidenceLow:    0,
		domain.ConfidenceMedium: 1,
		domain.ConfidenceHigh:   2,
	}

	books := []string{"fanduel", "draftkings", "betmgm", "caesars", "bet365", "espnbet"}
	prev := -1
	for n := 1; n <= len(books); n++ {
		quotes := domain.LineQuotes{
			"pinnacle": {Over: q(-110), Under: q(-110)},
		}
		for _, b := range books[:n] {
			quotes[b] = domain.BookQuote{Over: q(-110)}
		}

		res := Calculate(DefaultConfig(), quotes, domain.SideOver)
		cur := rank[res.Confidence]
		assert.GreaterOrEqual(t, cur, prev, "confidence dropped at %d books", n)
		prev = cur
	}
}

func TestUnderSideIsComplement(t *testing.T) {
	quotes := domain.LineQuotes{
		"pinnacle":   {Over: q(-135), Under: q(115)},
		"fanduel":    {Over: q(-130), Under: q(110)},
		"draftkings": {Over: q(-132), Under: q(112)},
		"betmgm":     {Over: q(-128), Under: q(108)},
	}

	over := Calculate(DefaultConfig(), quotes, domain.SideOver)
	under := Calculate(DefaultConfig(), quotes, domain.SideUnder)

	assert.InDelta(t, 1.0, over.FairProbability+under.FairProbability, 1e-9)
}

func TestEmptyQuotesNeverPanics(t *testing.T) {
	res := Calculate(DefaultConfig(), domain.LineQuotes{}, domain.SideOver)
	assert.Zero(t, res.EVPercent)
	assert.Equal(t, domain.ConfidenceLow, res.Confidence)
}
