package formulas

// MaxDrawdown calculates the worst peak-to-trough decline of an equity curve.
//
// Drawdown Formula:
//
//	Drawdown_t = Equity_t / RunningMax(Equity)_t - 1
//	Max Drawdown = minimum over all t
//
// The result is expressed as a negative fraction (-0.25 = 25% loss from
// peak). For a strictly positive equity series the result is always in
// [-1, 0]. Returns 0 for series shorter than two points.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := equity[0]

	for _, value := range equity {
		if value > peak {
			peak = value
		}

		if peak > 0 {
			drawdown := value/peak - 1
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// DrawdownSeries returns the per-point drawdown from the running peak.
// Same convention as MaxDrawdown: zero at peaks, negative below them.
func DrawdownSeries(equity []float64) []float64 {
	out := make([]float64, len(equity))
	if len(equity) == 0 {
		return out
	}

	peak := equity[0]
	for i, value := range equity {
		if value > peak {
			peak = value
		}
		if peak > 0 {
			out[i] = value/peak - 1
		}
	}

	return out
}
