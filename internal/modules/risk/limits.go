package risk

import (
	"github.com/aristath/stratlab/internal/clients/forecast"
)

// Position-size caps applied from the downside quantile forecast. The
// thresholds mirror the historical rule exactly: a 5th-percentile predicted
// return at or below -2% is treated as high risk.
const (
	LimitHighRisk = 0.05
	LimitNeutral  = 0.10
	LimitUpbeat   = 0.20
)

// LimitFromQuantiles returns the recommended per-trade position cap (0-1)
// from a quantile forecast table.
//
// The rule reads the 0.05 quantile, falling back to 0.10 and finally to 0.0
// when neither is present:
//   - q05 ≤ -2%:      cap 5%
//   - q05 in (-2%,0]: cap 10%
//   - q05 > 0:        cap 20%
func LimitFromQuantiles(predictions []forecast.QuantilePrediction) float64 {
	byQuantile := make(map[float64]float64, len(predictions))
	for _, p := range predictions {
		byQuantile[p.Quantile] = p.Prediction
	}

	q05, ok := byQuantile[0.05]
	if !ok {
		q05, ok = byQuantile[0.10]
	}
	if !ok {
		q05 = 0.0
	}

	switch {
	case q05 <= -0.02:
		return LimitHighRisk
	case q05 <= 0.0:
		return LimitNeutral
	default:
		return LimitUpbeat
	}
}
