package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMA calculates a simple moving average series over closing prices.
// The first period-1 entries are NaN (insufficient history); go-talib
// returns 0 for the warm-up region, which we normalize to NaN so callers
// can distinguish "no value yet" from a legitimate zero.
func SMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	// talib.Sma indexes past the end of the input when the window exceeds
	// the series, so a too-short series is handled here: the whole output is
	// warm-up and the caller just sees no values yet
	if period <= 0 || period > len(closes) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sma := talib.Sma(closes, period)
	for i := range out {
		if i < period-1 || i >= len(sma) {
			out[i] = math.NaN()
		} else {
			out[i] = sma[i]
		}
	}

	return out
}

// isAbove reports whether a[i] is strictly above b[i]. Warm-up bars (NaN on
// either series) count as "not above", so the first defined bar with the
// fast MA already on top registers as a cross - a trend that predates the
// indicator window still produces an entry near the start of the series.
func isAbove(a, b []float64, i int) bool {
	if i < 0 || i >= len(a) || i >= len(b) {
		return false
	}
	if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
		return false
	}
	return a[i] > b[i]
}

// isBelow is the symmetric counterpart of isAbove
func isBelow(a, b []float64, i int) bool {
	if i < 0 || i >= len(a) || i >= len(b) {
		return false
	}
	if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
		return false
	}
	return a[i] < b[i]
}

// CrossAbove reports whether series a moved from not-above (at-or-below, or
// still in warm-up) to strictly above series b between index i-1 and i.
func CrossAbove(a, b []float64, i int) bool {
	if i < 1 {
		return false
	}
	return isAbove(a, b, i) && !isAbove(a, b, i-1)
}

// CrossBelow is the symmetric opposite of CrossAbove.
func CrossBelow(a, b []float64, i int) bool {
	if i < 1 {
		return false
	}
	return isBelow(a, b, i) && !isBelow(a, b, i-1)
}
