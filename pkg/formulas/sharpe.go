package formulas

import (
	"math"
)

// epsilon guards Sharpe and Calmar denominators against division by ~0.
const epsilon = 1e-9

// SharpeRatio calculates the annualized Sharpe ratio of a daily return
// series, assuming a zero risk-free rate:
//
//	Sharpe = mean(r) / std(r) × sqrt(252)
//
// Returns NaN when the series is degenerate (fewer than two observations or
// near-zero variance). Callers treat NaN as "undefined", never as an error.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}

	stdDev := StdDev(returns)
	if stdDev < epsilon {
		return math.NaN()
	}

	return Mean(returns) / stdDev * math.Sqrt(TradingDaysPerYear)
}

// CalmarApprox calculates the Calmar proxy used throughout Stratlab:
//
//	Calmar ≈ Sharpe × AnnualizedVolatility / |MaxDrawdown|
//
// This is intentionally not the canonical Calmar ratio (which divides
// annualized return by max drawdown). The proxy is kept for parity with the
// historical report format; downstream consumers depend on it. Returns NaN
// when max drawdown is zero.
func CalmarApprox(sharpe, annVol, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return math.NaN()
	}

	return sharpe * annVol / math.Max(epsilon, math.Abs(maxDrawdown))
}

// SortinoApprox returns the Sharpe ratio unchanged.
//
// The historical risk panel never computed downside deviation; it reported
// Sharpe under the Sortino label. We reproduce that shortcut verbatim so
// panel values stay comparable across versions. A true Sortino (downside
// deviation only) would differ whenever the return distribution is skewed.
func SortinoApprox(sharpe float64) float64 {
	return sharpe
}
