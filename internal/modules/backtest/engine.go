package backtest

import (
	"fmt"

	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/internal/modules/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine runs the single-instrument SMA-crossover simulation. A fresh
// broker account is constructed inside every Run, so an Engine value can be
// shared and called concurrently; no simulation state outlives a Run call.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a single-instrument backtest engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("engine", "single").Logger(),
	}
}

// Run simulates the crossover strategy over one price series.
//
// The state machine has two states, flat and long, and strictly alternates:
// an up-cross buys when flat, a down-cross sells when long, nothing else
// ever trades. One equity point is recorded per bar whether or not a
// transition happened. A position still open at the last bar is left open -
// the equity curve reflects its mark-to-market value but no closing trade is
// recorded. That asymmetry is intentional and matches the historical report
// semantics.
func (e *Engine) Run(s *series.Series, params strategy.Params, brokerCfg broker.Config) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price series: %w", err)
	}

	cross, err := strategy.NewSMACross(s.Closes(), params)
	if err != nil {
		return nil, fmt.Errorf("invalid strategy parameters: %w", err)
	}

	account := broker.NewAccount(brokerCfg, e.log)
	result := &Result{
		RunID:       uuid.New().String(),
		Kind:        "single",
		Symbols:     []string{s.Symbol},
		FastPeriod:  params.FastPeriod,
		SlowPeriod:  params.SlowPeriod,
		InitialCash: brokerCfg.Cash,
		Equity:      make([]EquityPoint, 0, s.Len()),
	}

	prices := map[string]float64{}

	for i, bar := range s.Bars {
		prices[s.Symbol] = bar.Close

		switch cross.Evaluate(i) {
		case strategy.SignalBuy:
			if account.Position(s.Symbol) == nil {
				account.Buy(s.Symbol, bar.Close, bar.Date, account.Cash())
			}
		case strategy.SignalSell:
			if trade := account.Sell(s.Symbol, bar.Close, bar.Date); trade != nil {
				result.Trades = append(result.Trades, *trade)
			}
		}

		result.Equity = append(result.Equity, EquityPoint{
			Date:   bar.Date,
			Equity: account.MarkToMarket(prices),
		})
	}

	result.OpenPositions = account.OpenPositions()
	result.FinalEquity = result.Equity[len(result.Equity)-1].Equity

	e.log.Info().
		Str("run_id", result.RunID).
		Str("symbol", s.Symbol).
		Int("bars", s.Len()).
		Int("trades", len(result.Trades)).
		Float64("final_equity", result.FinalEquity).
		Msg("Backtest complete")

	return result, nil
}
