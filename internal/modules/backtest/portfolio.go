package backtest

import (
	"fmt"
	"sort"

	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/internal/modules/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Portfolio runs the crossover strategy independently per instrument against
// one shared broker account. Instruments compete for the same cash pool:
// each buy sizes against total account equity at that moment, not a
// per-instrument sub-allocation.
type Portfolio struct {
	log zerolog.Logger
}

// NewPortfolio creates a portfolio backtest engine
func NewPortfolio(log zerolog.Logger) *Portfolio {
	return &Portfolio{
		log: log.With().Str("engine", "portfolio").Logger(),
	}
}

// Run simulates all instruments bar by bar.
//
// Preconditions: at least one series, and every series aligned to a common
// date axis (same length, identical dates). Misalignment is rejected before
// the first bar; the engine never attempts to repair date axes.
//
// Per bar, instruments are processed in stable lexical symbol order, each
// evaluating its own crossover signal and issuing at most one order. One
// aggregate equity point with a per-symbol position-size snapshot is
// recorded after all instruments have been processed for that bar.
func (p *Portfolio) Run(seriesBySymbol map[string]*series.Series, params strategy.Params, brokerCfg broker.Config) (*Result, error) {
	if len(seriesBySymbol) == 0 {
		return nil, fmt.Errorf("no price series supplied")
	}

	// Stable instrument order: map iteration order must never influence
	// which instrument gets capital first
	symbols := make([]string, 0, len(seriesBySymbol))
	for symbol := range seriesBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	first := seriesBySymbol[symbols[0]]
	if err := first.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price series: %w", err)
	}
	rest := make([]*series.Series, 0, len(symbols)-1)
	for _, symbol := range symbols[1:] {
		s := seriesBySymbol[symbol]
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid price series: %w", err)
		}
		rest = append(rest, s)
	}
	if err := first.Aligned(rest...); err != nil {
		return nil, fmt.Errorf("misaligned series: %w", err)
	}

	strategies := make(map[string]*strategy.SMACross, len(symbols))
	for _, symbol := range symbols {
		cross, err := strategy.NewSMACross(seriesBySymbol[symbol].Closes(), params)
		if err != nil {
			return nil, fmt.Errorf("invalid strategy parameters: %w", err)
		}
		strategies[symbol] = cross
	}

	account := broker.NewAccount(brokerCfg, p.log)
	result := &Result{
		RunID:       uuid.New().String(),
		Kind:        "portfolio",
		Symbols:     symbols,
		FastPeriod:  params.FastPeriod,
		SlowPeriod:  params.SlowPeriod,
		InitialCash: brokerCfg.Cash,
		Equity:      make([]EquityPoint, 0, first.Len()),
	}

	numBars := first.Len()
	prices := make(map[string]float64, len(symbols))

	for i := 0; i < numBars; i++ {
		for _, symbol := range symbols {
			prices[symbol] = seriesBySymbol[symbol].Bars[i].Close
		}

		for _, symbol := range symbols {
			bar := seriesBySymbol[symbol].Bars[i]

			switch strategies[symbol].Evaluate(i) {
			case strategy.SignalBuy:
				if account.Position(symbol) == nil {
					// Size against total equity: instruments share one pool
					account.Buy(symbol, bar.Close, bar.Date, account.MarkToMarket(prices))
				}
			case strategy.SignalSell:
				if trade := account.Sell(symbol, bar.Close, bar.Date); trade != nil {
					result.Trades = append(result.Trades, *trade)
				}
			}
		}

		snapshot := make(map[string]int64, len(symbols))
		for _, symbol := range symbols {
			if pos := account.Position(symbol); pos != nil {
				snapshot[symbol] = pos.Size
			} else {
				snapshot[symbol] = 0
			}
		}

		result.Equity = append(result.Equity, EquityPoint{
			Date:      first.Bars[i].Date,
			Equity:    account.MarkToMarket(prices),
			Positions: snapshot,
		})
	}

	result.OpenPositions = account.OpenPositions()
	result.FinalEquity = result.Equity[len(result.Equity)-1].Equity

	p.log.Info().
		Str("run_id", result.RunID).
		Strs("symbols", symbols).
		Int("bars", numBars).
		Int("trades", len(result.Trades)).
		Float64("final_equity", result.FinalEquity).
		Msg("Portfolio backtest complete")

	return result, nil
}
