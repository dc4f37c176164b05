// Package ev computes fair-value probabilities and expected-value scores for
// a selection from its per-book quotes. Insufficient data always degrades to
// a zero-EV, low-confidence result; nothing here returns an error for
// missing quotes, since "no edge" is the normal steady state.
package ev

import (
	"math"
	"strings"

	"github.com/oddsight/oddsight/internal/domain"
	"github.com/oddsight/oddsight/internal/odds"
)

// Config consolidates every EV threshold in one place. The values are
// deliberately the single authoritative copy; callers must not hardcode
// their own.
type Config struct {
	// Stake is the notional dollar stake EV figures are quoted against.
	Stake float64
	// MinProbSpread is the floor on |fair - implied| below which an edge is
	// treated as noise and zeroed out.
	MinProbSpread float64
	// MinBooks is the minimum number of books that must quote the side.
	MinBooks int
	// ReferenceBook is the sharp book whose two-sided line anchors the fair
	// value (matched as a substring of the book ID, case-insensitive).
	ReferenceBook string
	// ReferenceWeight is the weight the reference book receives in the
	// weighted-average fallback.
	ReferenceWeight float64
	// RequireReference rejects fallback estimates that never saw the
	// reference book.
	RequireReference bool
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Stake:            100,
		MinProbSpread:    0.02,
		MinBooks:         4,
		ReferenceBook:    "pinnacle",
		ReferenceWeight:  10,
		RequireReference: true,
	}
}

// Result is the EVRecord-shaping output for one (selection, side).
type Result struct {
	EVPercent       float64
	EVDollars       float64
	FairProbability float64
	BestOdds        int
	BestBook        string
	Confidence      domain.Confidence
	BooksUsed       int
	ReferenceUsed   bool
	NoVigLineUsed   bool
}

// fairValue is one fair-probability estimate plus its provenance.
type fairValue struct {
	probability   float64
	booksUsed     int
	referenceUsed bool
	noVigLineUsed bool
}

// strategy attempts one fair-value resolution. It returns false when its
// preconditions are not met, letting the next strategy in order try.
type strategy func(c Config, quotes domain.LineQuotes, side domain.Side) (fairValue, bool)

// strategies is the ordered fallback chain: reference-book no-vig first,
// confidence-weighted average second.
var strategies = []strategy{referenceNoVig, weightedAverage}

// Calculate scores one side of a selection from its per-book quotes.
func Calculate(c Config, quotes domain.LineQuotes, side domain.Side) Result {
	var fv fairValue
	for _, s := range strategies {
		if v, ok := s(c, quotes, side); ok {
			fv = v
			break
		}
	}

	res := Result{
		FairProbability: fv.probability,
		BooksUsed:       fv.booksUsed,
		ReferenceUsed:   fv.referenceUsed,
		NoVigLineUsed:   fv.noVigLineUsed,
		Confidence:      confidence(c, fv),
	}

	// When the fair line came from the reference book's own two-sided
	// market, exclude that book from the best-price search so the edge is
	// never measured against itself.
	var exclude []string
	if fv.noVigLineUsed {
		exclude = []string{c.ReferenceBook}
	}
	bestOdds, bestBook := bestPrice(quotes, side, exclude)

	reject := bestBook == "" ||
		fv.booksUsed < c.MinBooks ||
		(!fv.noVigLineUsed && c.RequireReference && !fv.referenceUsed)
	if reject {
		res.Confidence = domain.ConfidenceLow
		return res
	}

	res.BestOdds = bestOdds
	res.BestBook = bestBook

	bestDecimal := odds.AmericanToDecimal(bestOdds)
	profitIfWin := (bestDecimal - 1) * c.Stake
	evDollars := fv.probability*profitIfWin - (1-fv.probability)*c.Stake
	evPercent := evDollars / c.Stake * 100

	// An edge below the probability-spread floor is noise: zero the EV but
	// keep the diagnostic fields.
	spread := math.Abs(fv.probability - odds.DecimalToImplied(bestDecimal))
	if spread >= c.MinProbSpread {
		res.EVDollars = round2(evDollars)
		res.EVPercent = round2(evPercent)
	}

	return res
}

// referenceNoVig derives the fair probability from the reference book's own
// two-sided market, stripping the vig. Requires both sides quoted.
func referenceNoVig(c Config, quotes domain.LineQuotes, side domain.Side) (fairValue, bool) {
	bq, ok := findReference(c, quotes)
	if !ok || bq.Over == nil || bq.Under == nil || bq.Over.Price == 0 || bq.Under.Price == 0 {
		return fairValue{}, false
	}

	overProb, underProb := odds.NoVigProbability(bq.Over.Price, bq.Under.Price)
	prob := overProb
	if side == domain.SideUnder {
		prob = underProb
	}

	return fairValue{
		probability:   prob,
		booksUsed:     countQuoting(quotes, side),
		referenceUsed: true,
		noVigLineUsed: true,
	}, true
}

// weightedAverage blends every book's implied probability for the side,
// giving the reference book extra weight when present.
func weightedAverage(c Config, quotes domain.LineQuotes, side domain.Side) (fairValue, bool) {
	var weightedSum, totalWeight float64
	var books int
	var sawReference bool

	for bookID, bq := range quotes {
		q := bq.Side(side)
		if q == nil || q.Price == 0 {
			continue
		}
		books++

		weight := 1.0
		if isReference(c, bookID) {
			sawReference = true
			weight = c.ReferenceWeight
		}
		weightedSum += odds.AmericanToImplied(q.Price) * weight
		totalWeight += weight
	}

	var prob float64
	if totalWeight > 0 {
		prob = weightedSum / totalWeight
	}

	return fairValue{
		probability:   prob,
		booksUsed:     books,
		referenceUsed: sawReference,
	}, true
}

// bestPrice finds the highest American price for the side, skipping books
// whose ID contains any excluded substring.
func bestPrice(quotes domain.LineQuotes, side domain.Side, exclude []string) (int, string) {
	bestOdds := math.MinInt
	bestBook := ""
	for bookID, bq := range quotes {
		if excluded(bookID, exclude) {
			continue
		}
		q := bq.Side(side)
		if q == nil || q.Price == 0 {
			continue
		}
		if q.Price > bestOdds {
			bestOdds = q.Price
			bestBook = bookID
		}
	}
	if bestBook == "" {
		return 0, ""
	}
	return bestOdds, bestBook
}

func confidence(c Config, fv fairValue) domain.Confidence {
	switch {
	case fv.noVigLineUsed && fv.booksUsed >= 4:
		return domain.ConfidenceHigh
	case fv.referenceUsed && fv.booksUsed >= 5:
		return domain.ConfidenceMedium
	case fv.booksUsed >= c.MinBooks:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func findReference(c Config, quotes domain.LineQuotes) (domain.BookQuote, bool) {
	for bookID, bq := range quotes {
		if isReference(c, bookID) {
			return bq, true
		}
	}
	return domain.BookQuote{}, false
}

func isReference(c Config, bookID string) bool {
	return c.ReferenceBook != "" &&
		strings.Contains(strings.ToLower(bookID), strings.ToLower(c.ReferenceBook))
}

func countQuoting(quotes domain.LineQuotes, side domain.Side) int {
	n := 0
	for _, bq := range quotes {
		if q := bq.Side(side); q != nil && q.Price != 0 {
			n++
		}
	}
	return n
}

func excluded(bookID string, exclude []string) bool {
	for _, e := range exclude {
		if strings.Contains(strings.ToLower(bookID), strings.ToLower(e)) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
