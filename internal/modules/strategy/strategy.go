// Package strategy implements the SMA-crossover trading signal used by both
// the single-instrument and portfolio backtest engines. The signal logic
// lives here exactly once; the engines differ only in how they route orders
// to the shared broker account.
package strategy

import (
	"fmt"

	"github.com/aristath/stratlab/pkg/formulas"
)

// Signal is the per-bar output of a strategy evaluation
type Signal int

const (
	// SignalNone - no state transition requested for this bar
	SignalNone Signal = iota
	// SignalBuy - fast MA crossed above slow MA, enter long if flat
	SignalBuy
	// SignalSell - fast MA crossed below slow MA, exit if long
	SignalSell
)

// String returns a human-readable signal name
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "none"
	}
}

// Params holds the crossover window lengths
type Params struct {
	FastPeriod int `json:"fast_period"`
	SlowPeriod int `json:"slow_period"`
}

// Validate enforces the crossover preconditions. A fast window that is not
// strictly shorter than the slow window can never cross meaningfully.
func (p Params) Validate() error {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 {
		return fmt.Errorf("periods must be positive (fast=%d slow=%d)", p.FastPeriod, p.SlowPeriod)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("fast period %d must be less than slow period %d", p.FastPeriod, p.SlowPeriod)
	}
	return nil
}

// SMACross evaluates fast/slow simple-moving-average crossovers over one
// instrument's closing prices. The MA series are computed once up front;
// evaluation per bar is then an index lookup, which keeps the engines'
// bar loops trivially cheap.
type SMACross struct {
	params Params
	fast   []float64 // NaN during warm-up
	slow   []float64
}

// NewSMACross precomputes the indicator series for one instrument
func NewSMACross(closes []float64, params Params) (*SMACross, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &SMACross{
		params: params,
		fast:   formulas.SMA(closes, params.FastPeriod),
		slow:   formulas.SMA(closes, params.SlowPeriod),
	}, nil
}

// Evaluate returns the signal for bar index i. Bars inside the warm-up
// window (either MA still NaN) never produce a signal; the simulation just
// proceeds flat.
func (s *SMACross) Evaluate(i int) Signal {
	if formulas.CrossAbove(s.fast, s.slow, i) {
		return SignalBuy
	}
	if formulas.CrossBelow(s.fast, s.slow, i) {
		return SignalSell
	}
	return SignalNone
}

// FastMA returns the fast moving-average series (NaN during warm-up).
// Exposed for the visualization collaborator; rendering stays out of core.
func (s *SMACross) FastMA() []float64 {
	return s.fast
}

// SlowMA returns the slow moving-average series (NaN during warm-up)
func (s *SMACross) SlowMA() []float64 {
	return s.slow
}

// Params returns the window lengths this strategy was built with
func (s *SMACross) Params() Params {
	return s.params
}
