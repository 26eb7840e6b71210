package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharpeRatio_ZeroVariance(t *testing.T) {
	// A constant return series has zero variance; Sharpe must come back as
	// NaN, never as a division error or infinity
	returns := []float64{0.01, 0.01, 0.01, 0.01, 0.01}

	sharpe := SharpeRatio(returns)

	assert.True(t, math.IsNaN(sharpe), "expected NaN for zero-variance returns, got %f", sharpe)
}

func TestSharpeRatio_InsufficientData(t *testing.T) {
	assert.True(t, math.IsNaN(SharpeRatio(nil)))
	assert.True(t, math.IsNaN(SharpeRatio([]float64{0.01})))
}

func TestSharpeRatio_PositiveDrift(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.003, -0.001, 0.015}

	sharpe := SharpeRatio(returns)

	assert.False(t, math.IsNaN(sharpe))
	assert.Greater(t, sharpe, 0.0)

	// Spot-check against the definition
	expected := Mean(returns) / StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, sharpe, 1e-12)
}

func TestMaxDrawdown_Bounds(t *testing.T) {
	testCases := []struct {
		name   string
		equity []float64
	}{
		{name: "Monotonic rise", equity: []float64{100, 110, 120, 130}},
		{name: "Single dip", equity: []float64{100, 120, 90, 125}},
		{name: "Crash", equity: []float64{100, 50, 25, 10}},
		{name: "Flat", equity: []float64{100, 100, 100}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dd := MaxDrawdown(tc.equity)
			assert.LessOrEqual(t, dd, 0.0)
			assert.GreaterOrEqual(t, dd, -1.0)
		})
	}
}

func TestMaxDrawdown_KnownValue(t *testing.T) {
	// Peak at 120, trough at 90: drawdown = 90/120 - 1 = -0.25
	equity := []float64{100, 120, 90, 125}

	assert.InDelta(t, -0.25, MaxDrawdown(equity), 1e-12)
}

func TestMaxDrawdown_MonotonicRiseIsZero(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 101, 102, 103}))
}

func TestCalmarApprox(t *testing.T) {
	// Exact proxy formula: sharpe × annVol / |maxDD|
	assert.InDelta(t, 1.5*0.2/0.25, CalmarApprox(1.5, 0.2, -0.25), 1e-12)

	// Zero drawdown means undefined, not +Inf
	assert.True(t, math.IsNaN(CalmarApprox(1.5, 0.2, 0)))
}

func TestSortinoApprox_ReturnsSharpeVerbatim(t *testing.T) {
	// The panel reports Sharpe under the Sortino label on purpose
	assert.Equal(t, 1.234, SortinoApprox(1.234))
	assert.True(t, math.IsNaN(SortinoApprox(math.NaN())))
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, -0.005}

	assert.InDelta(t, StdDev(returns)*math.Sqrt(252), AnnualizedVolatility(returns), 1e-12)
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)
}

func TestSMA_WarmupIsNaN(t *testing.T) {
	closes := []float64{10, 12, 14, 16, 18}

	sma := SMA(closes, 3)

	assert.Len(t, sma, 5)
	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 12.0, sma[2], 1e-12)
	assert.InDelta(t, 14.0, sma[3], 1e-12)
	assert.InDelta(t, 16.0, sma[4], 1e-12)
}

func TestSMA_WindowLongerThanSeries(t *testing.T) {
	// A window the series cannot fill yet must yield all warm-up values,
	// never index past the input
	sma := SMA([]float64{10, 11, 12}, 10)

	require.Len(t, sma, 3)
	for i, v := range sma {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}

	assert.Empty(t, SMA(nil, 5))
}

func TestCrossAbove_DetectsTransition(t *testing.T) {
	fast := []float64{math.NaN(), 9, 11, 12}
	slow := []float64{math.NaN(), 10, 10, 10}

	assert.False(t, CrossAbove(fast, slow, 1))
	assert.True(t, CrossAbove(fast, slow, 2))
	// Already above: no repeated signal
	assert.False(t, CrossAbove(fast, slow, 3))
}

func TestCrossAbove_FiresAtEndOfWarmup(t *testing.T) {
	// A trend predating the indicator window produces an entry on the first
	// bar both averages are defined
	fast := []float64{math.NaN(), math.NaN(), 12, 13}
	slow := []float64{math.NaN(), math.NaN(), 10, 10}

	assert.True(t, CrossAbove(fast, slow, 2))
	assert.False(t, CrossAbove(fast, slow, 3))
}

func TestCrossBelow_DetectsTransition(t *testing.T) {
	fast := []float64{11, 11, 9, 8}
	slow := []float64{10, 10, 10, 10}

	assert.False(t, CrossBelow(fast, slow, 1))
	assert.True(t, CrossBelow(fast, slow, 2))
	assert.False(t, CrossBelow(fast, slow, 3))
}
