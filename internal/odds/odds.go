// Package odds holds the pure numeric conversions between American odds,
// decimal odds, and implied probability, plus two-sided no-vig extraction.
// All functions are deterministic and never panic; callers are responsible
// for validating that a price is present before converting it.
package odds

import "math"

// AmericanToDecimal converts American odds to decimal odds. Zero is not a
// valid American price; it converts to decimal 1, which signals "no bet"
// (implied probability 1, zero profit).
func AmericanToDecimal(american int) float64 {
	if american == 0 {
		return 1
	}
	if american > 0 {
		return float64(american)/100 + 1
	}
	return 100/math.Abs(float64(american)) + 1
}

// DecimalToAmerican converts decimal odds back to the nearest integer
// American price. Decimal 1 maps to 0 ("no bet").
func DecimalToAmerican(decimal float64) int {
	if decimal == 1 {
		return 0
	}
	if decimal >= 2 {
		return int(math.Round((decimal - 1) * 100))
	}
	return int(math.Round(-100 / (decimal - 1)))
}

// DecimalToImplied converts decimal odds to implied probability.
func DecimalToImplied(decimal float64) float64 {
	if decimal <= 0 {
		return 0
	}
	return 1 / decimal
}

// AmericanToImplied converts an American price straight to implied
// probability.
func AmericanToImplied(american int) float64 {
	return DecimalToImplied(AmericanToDecimal(american))
}

// NoVigProbability extracts the fair "over" probability from one book's
// two-sided quotes by stripping the bookmaker margin. Each side's raw
// implied probability is divided by the vig sum (slightly above 1 for any
// real two-sided market), so the pair always sums to exactly 1. The under
// probability is the complement.
//
// The extraction assumes both prices come from the same market snapshot.
// If either price is missing (zero), the result is 0.
func NoVigProbability(overAmerican, underAmerican int) (overProb, underProb float64) {
	if overAmerican == 0 || underAmerican == 0 {
		return 0, 0
	}
	overImplied := AmericanToImplied(overAmerican)
	underImplied := AmericanToImplied(underAmerican)
	vigSum := overImplied + underImplied
	if vigSum <= 0 {
		return 0, 0
	}
	return overImplied / vigSum, underImplied / vigSum
}
