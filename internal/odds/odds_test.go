package odds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"even money plus", 100, 2.0},
		{"even money minus", -100, 2.0},
		{"underdog", 150, 2.5},
		{"favorite", -110, 1.9090909090909092},
		{"long shot", 400, 5.0},
		{"heavy favorite", -400, 1.25},
		{"zero signals no bet", 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AmericanToDecimal(tt.american), 1e-12)
		})
	}
}

func TestDecimalToAmerican(t *testing.T) {
	assert.Equal(t, 150, DecimalToAmerican(2.5))
	assert.Equal(t, -110, DecimalToAmerican(1.9090909090909092))
	assert.Equal(t, 100, DecimalToAmerican(2.0))
	assert.Equal(t, 0, DecimalToAmerican(1.0))
}

// Round-trip: converting any nonzero American price to decimal and back
// reproduces the original within integer rounding.
func TestRoundTrip(t *testing.T) {
	for _, o := range []int{-10000, -450, -200, -110, -105, -101, 100, 105, 110, 200, 450, 10000} {
		got := DecimalToAmerican(AmericanToDecimal(o))
		assert.Equal(t, o, got, "round trip for %d", o)
	}
}

func TestDecimalToImplied(t *testing.T) {
	assert.InDelta(t, 0.5, DecimalToImplied(2.0), 1e-12)
	assert.Zero(t, DecimalToImplied(0))

	// Implied probability stays inside (0, 1) for any decimal >= 1.01.
	for d := 1.01; d < 50; d += 0.37 {
		p := DecimalToImplied(d)
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
}

func TestNoVigProbability(t *testing.T) {
	// Symmetric -110/-110 market strips to exactly 50/50.
	over, under := NoVigProbability(-110, -110)
	assert.InDelta(t, 0.5, over, 1e-12)
	assert.InDelta(t, 0.5, under, 1e-12)

	// Asymmetric market: probabilities still sum to 1.
	over, under = NoVigProbability(-135, 115)
	require.InDelta(t, 1.0, over+under, 1e-12)
	assert.Greater(t, over, under)

	// Missing side degrades to zero, never panics.
	over, under = NoVigProbability(0, -110)
	assert.Zero(t, over)
	assert.Zero(t, under)
}

func TestNoVigSumInvariant(t *testing.T) {
	pairs := [][2]int{{-110, -110}, {-120, 100}, {-250, 210}, {135, -155}, {105, -125}}
	for _, p := range pairs {
		over, under := NoVigProbability(p[0], p[1])
		assert.InDelta(t, 1.0, over+under, 1e-9, "pair %v", p)
	}
}
