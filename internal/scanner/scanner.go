// Package scanner detects cross-book mispricing: lines where one book's
// price diverges from the market average far enough to matter. It is pure
// computation over fetched quote sets; fetching and publishing live in the
// pipeline package.
package scanner

import (
	"math"
	"sort"

	"github.com/oddsight/oddsight/internal/domain"
)

// Config holds the mispricing thresholds and caps.
type Config struct {
	// MinBooks is the minimum distinct books that must quote a line.
	MinBooks int
	// MinPercentDiff is the divergence (percent of the side average) below
	// which a line is not flagged.
	MinPercentDiff float64
	// MaxPerSport caps flagged selections per sport per run.
	MaxPerSport int
	// MaxTotal caps the published cross-sport list.
	MaxTotal int
	// ShortOddsCutoff is the |price| below which the odds factor rewards a
	// shorter, more reliable price.
	ShortOddsCutoff int
}

// DefaultConfig returns the production scan thresholds.
func DefaultConfig() Config {
	return Config{
		MinBooks:        3,
		MinPercentDiff:  10,
		MaxPerSport:     2,
		MaxTotal:        12,
		ShortOddsCutoff: 200,
	}
}

// ValueScore computes the composite ranking score for a flagged price:
// the raw divergence, scaled by a capped liquidity factor (more independent
// quotes, better) and a slight preference for shorter odds.
func ValueScore(c Config, bestOdds int, avgOdds float64, bookCount int) float64 {
	if avgOdds == 0 {
		return 0
	}
	percentDiff := math.Abs(float64(bestOdds)-avgOdds) / math.Abs(avgOdds) * 100
	liquidityFactor := math.Min(float64(bookCount)/5, 1)
	oddsFactor := 1.0
	if math.Abs(float64(bestOdds)) < float64(c.ShortOddsCutoff) {
		oddsFactor = 1.2
	}
	return percentDiff * liquidityFactor * oddsFactor
}

// AnalyzeLine inspects one line's per-book quotes and returns a flagged
// selection when the best price on either side diverges from that side's
// American average by at least the threshold. Lines quoted by fewer than
// MinBooks distinct books are never flagged.
func AnalyzeLine(c Config, sel domain.Selection, quotes domain.LineQuotes) (domain.MispricedSelection, bool) {
	if len(quotes) < c.MinBooks {
		return domain.MispricedSelection{}, false
	}

	var overPrices, underPrices []int
	bestOver, bestUnder := math.MinInt, math.MinInt
	var bestOverBook, bestUnderBook string
	var latest domain.MispricedSelection

	for book, bq := range quotes {
		if bq.Over != nil && bq.Over.Price != 0 {
			overPrices = append(overPrices, bq.Over.Price)
			if bq.Over.Price > bestOver {
				bestOver = bq.Over.Price
				bestOverBook = book
			}
			if bq.Over.UpdatedAt.After(latest.LastUpdated) {
				latest.LastUpdated = bq.Over.UpdatedAt
			}
		}
		if bq.Under != nil && bq.Under.Price != 0 {
			underPrices = append(underPrices, bq.Under.Price)
			if bq.Under.Price > bestUnder {
				bestUnder = bq.Under.Price
				bestUnderBook = book
			}
			if bq.Under.UpdatedAt.After(latest.LastUpdated) {
				latest.LastUpdated = bq.Under.UpdatedAt
			}
		}
	}

	if len(overPrices) == 0 && len(underPrices) == 0 {
		return domain.MispricedSelection{}, false
	}

	avgOver := average(overPrices)
	avgUnder := average(underPrices)
	overDiff := percentDiff(bestOver, avgOver, len(overPrices))
	underDiff := percentDiff(bestUnder, avgUnder, len(underPrices))

	// Flag the side with the larger divergence, if it clears the threshold.
	side := domain.SideOver
	diff, best, bestBook, avg := overDiff, bestOver, bestOverBook, avgOver
	if underDiff > overDiff {
		side = domain.SideUnder
		diff, best, bestBook, avg = underDiff, bestUnder, bestUnderBook, avgUnder
	}
	if diff < c.MinPercentDiff || bestBook == "" {
		return domain.MispricedSelection{}, false
	}

	return domain.MispricedSelection{
		Selection:   sel,
		Side:        side,
		BestBook:    bestBook,
		BestOdds:    best,
		AverageOdds: avg,
		PercentDiff: diff,
		BookCount:   len(quotes),
		ValueScore:  ValueScore(c, best, avg, len(quotes)),
		LastUpdated: latest.LastUpdated,
	}, true
}

// AnalyzeEntry walks every line in a cached odds entry and returns at most
// one flagged selection: the line with the highest value score.
func AnalyzeEntry(c Config, entry domain.OddsEntry) (domain.MispricedSelection, bool) {
	var best domain.MispricedSelection
	found := false
	for lineKey, quotes := range entry.Lines {
		line, ok := domain.ParseLine(lineKey)
		if !ok {
			continue
		}
		sel, ok := AnalyzeLine(c, entry.Selection(line), quotes)
		if !ok {
			continue
		}
		if !found || sel.ValueScore > best.ValueScore {
			best = sel
			found = true
		}
	}
	return best, found
}

// Rank sorts selections by value score descending and truncates to the
// global cap.
func Rank(c Config, selections []domain.MispricedSelection) []domain.MispricedSelection {
	sort.SliceStable(selections, func(i, j int) bool {
		return selections[i].ValueScore > selections[j].ValueScore
	})
	if c.MaxTotal > 0 && len(selections) > c.MaxTotal {
		selections = selections[:c.MaxTotal]
	}
	return selections
}

func average(prices []int) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0
	for _, p := range prices {
		sum += p
	}
	return float64(sum) / float64(len(prices))
}

func percentDiff(best int, avg float64, count int) float64 {
	if count == 0 || avg == 0 {
		return 0
	}
	return math.Abs(float64(best)-avg) / math.Abs(avg) * 100
}
