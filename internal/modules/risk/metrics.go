// Package risk derives the risk panel from finished equity curves and
// applies the quantile-forecast position-limit rule.
package risk

import (
	"github.com/aristath/stratlab/pkg/formulas"
)

// Panel is the derived risk record for one finished run. It is a pure
// function output, computed on demand and never stored as mutable state.
// Degenerate inputs produce NaN fields rather than errors; the reporting
// layer decides how to render those.
type Panel struct {
	AnnualizedVolatility float64 `json:"ann_vol"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	Sharpe               float64 `json:"sharpe"`
	Calmar               float64 `json:"calmar"`
	Sortino              float64 `json:"sortino_approx"`
}

// PanelFromEquity computes the risk panel from an equity curve.
//
// Calmar here is the historical proxy sharpe×vol/|mdd|, and Sortino is
// reported as Sharpe (no downside deviation). Both deviations from the
// canonical formulas are deliberate; see pkg/formulas.
func PanelFromEquity(equity []float64) Panel {
	returns := formulas.CalculateReturns(equity)
	return PanelFromReturns(returns, formulas.MaxDrawdown(equity))
}

// PanelFromReturns computes the risk panel from an already-derived return
// series plus the max drawdown of the underlying equity curve.
func PanelFromReturns(returns []float64, maxDrawdown float64) Panel {
	annVol := formulas.AnnualizedVolatility(returns)
	sharpe := formulas.SharpeRatio(returns)

	return Panel{
		AnnualizedVolatility: annVol,
		MaxDrawdown:          maxDrawdown,
		Sharpe:               sharpe,
		Calmar:               formulas.CalmarApprox(sharpe, annVol, maxDrawdown),
		Sortino:              formulas.SortinoApprox(sharpe),
	}
}
