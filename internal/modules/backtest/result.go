// Package backtest runs the event-driven SMA-crossover simulations: a
// single-instrument engine and a portfolio engine sharing one broker
// account across instruments.
package backtest

import (
	"time"

	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/pkg/formulas"
)

// EquityPoint is one row of the simulated equity curve, appended once per
// bar in bar order and never mutated afterward. Positions carries the
// per-symbol position size snapshot for portfolio runs; it is nil for
// single-instrument runs.
type EquityPoint struct {
	Date      time.Time        `json:"date"`
	Equity    float64          `json:"equity"`
	Positions map[string]int64 `json:"positions,omitempty"`
}

// Result is the complete output of one simulation run
type Result struct {
	RunID         string            `json:"run_id"`
	Kind          string            `json:"kind"` // "single" or "portfolio"
	Symbols       []string          `json:"symbols"`
	FastPeriod    int               `json:"fast_period"`
	SlowPeriod    int               `json:"slow_period"`
	InitialCash   float64           `json:"initial_cash"`
	FinalEquity   float64           `json:"final_equity"`
	Trades        []broker.Trade    `json:"trades"`
	OpenPositions []broker.Position `json:"open_positions"`
	Equity        []EquityPoint     `json:"equity"`
}

// EquityValues returns the raw equity curve values in bar order
func (r *Result) EquityValues() []float64 {
	values := make([]float64, len(r.Equity))
	for i, point := range r.Equity {
		values[i] = point.Equity
	}
	return values
}

// Returns derives the simple per-bar return series from the equity curve
func (r *Result) Returns() []float64 {
	return formulas.CalculateReturns(r.EquityValues())
}

// Summary holds the headline numbers of a run for the textual report
type Summary struct {
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TradeCount  int     `json:"trade_count"`
	OpenCount   int     `json:"open_count"`
	FinalEquity float64 `json:"final_equity"`
}

// Summarize computes the run summary. Sharpe is NaN for degenerate equity
// curves (e.g. a run that never traded); reporting layers decide how to
// display that.
func (r *Result) Summarize() Summary {
	equity := r.EquityValues()
	return Summary{
		Sharpe:      formulas.SharpeRatio(formulas.CalculateReturns(equity)),
		MaxDrawdown: formulas.MaxDrawdown(equity),
		TradeCount:  len(r.Trades),
		OpenCount:   len(r.OpenPositions),
		FinalEquity: r.FinalEquity,
	}
}
