// Package series provides the validated daily price series model shared by
// the backtest engines, the parameter scanner, and the risk calculations.
package series

import (
	"fmt"
	"time"
)

// Bar represents a single daily OHLCV price bar. Bars are immutable once
// loaded; strategies and engines only ever read them.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is an ordered daily price history for one instrument, identified by
// its normalized symbol. It is constructed by the data-loading collaborator
// (or the Repository) and read-only for the rest of the system.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// New creates a validated Series
func New(symbol string, bars []Bar) (*Series, error) {
	s := &Series{Symbol: symbol, Bars: bars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the series invariants: non-empty, strictly increasing
// dates, and strictly positive prices. Malformed data is rejected here so
// the engines never have to re-check it bar by bar.
func (s *Series) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("series has no symbol")
	}
	if len(s.Bars) == 0 {
		return fmt.Errorf("series %s is empty", s.Symbol)
	}

	for i, bar := range s.Bars {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return fmt.Errorf("series %s: non-positive price at %s", s.Symbol, bar.Date.Format("2006-01-02"))
		}
		if i > 0 && !bar.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("series %s: dates not strictly increasing at %s", s.Symbol, bar.Date.Format("2006-01-02"))
		}
	}

	return nil
}

// Len returns the number of bars
func (s *Series) Len() int {
	return len(s.Bars)
}

// Closes returns the closing prices in bar order
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}
	return closes
}

// Dates returns the bar dates in order
func (s *Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Bars))
	for i, bar := range s.Bars {
		dates[i] = bar.Date
	}
	return dates
}

// Aligned reports whether every supplied series shares this series' exact
// date axis. The portfolio engine requires pre-aligned inputs; misalignment
// is a precondition violation, not something the engine repairs.
func (s *Series) Aligned(others ...*Series) error {
	for _, other := range others {
		if other.Len() != s.Len() {
			return fmt.Errorf("series %s and %s have different lengths (%d vs %d)",
				s.Symbol, other.Symbol, s.Len(), other.Len())
		}
		for i := range s.Bars {
			if !s.Bars[i].Date.Equal(other.Bars[i].Date) {
				return fmt.Errorf("series %s and %s diverge at index %d (%s vs %s)",
					s.Symbol, other.Symbol, i,
					s.Bars[i].Date.Format("2006-01-02"),
					other.Bars[i].Date.Format("2006-01-02"))
			}
		}
	}
	return nil
}
