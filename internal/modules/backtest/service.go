package backtest

import (
	"fmt"

	"github.com/aristath/stratlab/internal/config"
	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/internal/modules/risk"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/internal/modules/strategy"
	"github.com/rs/zerolog"
)

// SeriesSource provides validated price series. Implemented by the series
// repository; an interface here keeps the engines testable without a
// database.
type SeriesSource interface {
	GetSeries(symbol string) (*series.Series, error)
}

// RunSink persists finished results. Implemented by the ledger repository.
type RunSink interface {
	Create(result *Result) error
}

// Reporter writes the durable report artifacts for a finished run
type Reporter interface {
	WriteBacktestSummary(symbol string, summary Summary) (string, error)
	WriteRiskPanel(symbol string, panel risk.Panel) (string, error)
	WriteTrades(symbol string, result *Result) (string, error)
	WritePortfolioEquity(result *Result) (string, error)
	WritePortfolioPositions(result *Result) (string, error)
}

// RunParams are the per-request simulation parameters. Zero values fall
// back to the configured defaults.
type RunParams struct {
	FastPeriod  int     `json:"fast"`
	SlowPeriod  int     `json:"slow"`
	Cash        float64 `json:"cash"`
	Commission  float64 `json:"commission"`
	SlippageBPS int     `json:"slippage_bps"`
	SizingPct   float64 `json:"sizing_pct"`
}

// Service orchestrates simulations: resolve symbols, load series, run the
// engine, persist the result, and write report artifacts.
type Service struct {
	source    SeriesSource
	sink      RunSink
	reporter  Reporter
	defaults  config.BrokerDefaults
	engine    *Engine
	portfolio *Portfolio
	log       zerolog.Logger
}

// NewService creates a backtest service
func NewService(source SeriesSource, sink RunSink, reporter Reporter, defaults config.BrokerDefaults, log zerolog.Logger) *Service {
	return &Service{
		source:    source,
		sink:      sink,
		reporter:  reporter,
		defaults:  defaults,
		engine:    NewEngine(log),
		portfolio: NewPortfolio(log),
		log:       log.With().Str("service", "backtest").Logger(),
	}
}

// resolve fills defaults into request parameters
func (s *Service) resolve(params RunParams) (strategy.Params, broker.Config) {
	if params.FastPeriod == 0 {
		params.FastPeriod = 10
	}
	if params.SlowPeriod == 0 {
		params.SlowPeriod = 30
	}
	if params.Cash == 0 {
		params.Cash = s.defaults.InitialCash
	}
	if params.Commission == 0 {
		params.Commission = s.defaults.Commission
	}
	if params.SlippageBPS == 0 {
		params.SlippageBPS = s.defaults.SlippageBPS
	}
	if params.SizingPct == 0 {
		params.SizingPct = s.defaults.SizingPct
	}

	return strategy.Params{FastPeriod: params.FastPeriod, SlowPeriod: params.SlowPeriod},
		broker.Config{
			Cash:        params.Cash,
			Commission:  params.Commission,
			SlippageBPS: params.SlippageBPS,
			SizingPct:   params.SizingPct,
		}
}

// RunSingle executes a single-instrument backtest end to end
func (s *Service) RunSingle(rawSymbol string, params RunParams) (*Result, error) {
	symbol, err := series.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	priceSeries, err := s.source.GetSeries(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load series: %w", err)
	}

	strategyParams, brokerCfg := s.resolve(params)
	result, err := s.engine.Run(priceSeries, strategyParams, brokerCfg)
	if err != nil {
		return nil, err
	}

	if err := s.sink.Create(result); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	// Report artifacts are best-effort: a full disk should not discard an
	// already-persisted simulation
	if _, err := s.reporter.WriteBacktestSummary(symbol, result.Summarize()); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write summary report")
	}
	if _, err := s.reporter.WriteRiskPanel(symbol, risk.PanelFromEquity(result.EquityValues())); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write risk panel report")
	}
	if _, err := s.reporter.WriteTrades(symbol, result); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write trade report")
	}

	return result, nil
}

// RunPortfolio executes a multi-instrument portfolio backtest end to end
func (s *Service) RunPortfolio(rawSymbols []string, params RunParams) (*Result, error) {
	if len(rawSymbols) < 2 {
		return nil, fmt.Errorf("portfolio run needs at least two symbols")
	}

	seriesBySymbol := make(map[string]*series.Series, len(rawSymbols))
	for _, raw := range rawSymbols {
		symbol, err := series.NormalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seriesBySymbol[symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s", symbol)
		}

		priceSeries, err := s.source.GetSeries(symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to load series: %w", err)
		}
		seriesBySymbol[symbol] = priceSeries
	}

	strategyParams, brokerCfg := s.resolve(params)
	result, err := s.portfolio.Run(seriesBySymbol, strategyParams, brokerCfg)
	if err != nil {
		return nil, err
	}

	if err := s.sink.Create(result); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	if _, err := s.reporter.WritePortfolioEquity(result); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write portfolio equity report")
	}
	if _, err := s.reporter.WritePortfolioPositions(result); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write portfolio positions report")
	}

	return result, nil
}
