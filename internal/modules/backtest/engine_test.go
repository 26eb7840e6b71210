package backtest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/internal/modules/strategy"
)

func testSeries(t *testing.T, symbol string, closes ...float64) *series.Series {
	t.Helper()
	bars := make([]series.Bar, len(closes))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = series.Bar{
			Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	s, err := series.New(symbol, bars)
	require.NoError(t, err)
	return s
}

// frictionlessCfg trades without commission or slippage so the arithmetic in
// the assertions stays exact
func frictionlessCfg() broker.Config {
	return broker.Config{Cash: 100000, Commission: 0, SlippageBPS: 0, SizingPct: 0.10}
}

func TestEngineRun_RoundTrip(t *testing.T) {
	// One up-cross at close 12, one down-cross at close 8
	s := testSeries(t, "0700.HK", 10, 10, 10, 12, 12, 8, 8)

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Run(s, strategy.Params{FastPeriod: 2, SlowPeriod: 3}, frictionlessCfg())

	require.NoError(t, err)
	assert.Equal(t, "single", result.Kind)
	assert.Equal(t, []string{"0700.HK"}, result.Symbols)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, 12.0, trade.EntryPrice)
	assert.Equal(t, 8.0, trade.ExitPrice)
	assert.InDelta(t, 8.0/12.0-1, trade.PnLPct, 1e-12)

	// floor(100000 * 0.10 / 12) = 833 units; loss = 833 * 4
	assert.Empty(t, result.OpenPositions)
	assert.InDelta(t, 100000-833*4.0, result.FinalEquity, 1e-9)

	// One equity point per bar, flat bars sit at initial cash
	require.Len(t, result.Equity, s.Len())
	assert.Equal(t, 100000.0, result.Equity[0].Equity)
	assert.Equal(t, 100000.0, result.Equity[2].Equity)
	// Long bars mark the position to the close
	assert.InDelta(t, 100000.0, result.Equity[3].Equity, 1e-9)
	assert.InDelta(t, result.FinalEquity, result.Equity[6].Equity, 1e-9)
}

func TestEngineRun_UptrendLeavesPositionOpen(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := testSeries(t, "0700.HK", closes...)

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Run(s, strategy.Params{FastPeriod: 2, SlowPeriod: 3}, frictionlessCfg())

	require.NoError(t, err)

	// A monotonic uptrend produces exactly one entry near the start and no
	// exit; the final position is deliberately left open
	assert.Empty(t, result.Trades)
	require.Len(t, result.OpenPositions, 1)
	assert.Equal(t, "0700.HK", result.OpenPositions[0].Symbol)
	assert.Greater(t, result.FinalEquity, result.InitialCash)

	// Equity curve never loses the accounting identity: flat bars equal
	// cash, long bars equal cash plus marked position
	assert.Equal(t, 100000.0, result.Equity[0].Equity)
	for i := 1; i < len(result.Equity); i++ {
		assert.GreaterOrEqual(t, result.Equity[i].Equity, result.Equity[i-1].Equity, "bar %d", i)
	}
}

func TestEngineRun_CommissionReducesEquity(t *testing.T) {
	s := testSeries(t, "0700.HK", 10, 10, 10, 12, 12, 8, 8)
	cfg := frictionlessCfg()
	cfg.Commission = 5

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Run(s, strategy.Params{FastPeriod: 2, SlowPeriod: 3}, cfg)

	require.NoError(t, err)
	// Same trade as the frictionless run, minus two commission legs
	assert.InDelta(t, 100000-833*4.0-2*5, result.FinalEquity, 1e-9)
}

func TestEngineRun_RejectsBadInput(t *testing.T) {
	s := testSeries(t, "0700.HK", 10, 11, 12)
	engine := NewEngine(zerolog.Nop())

	_, err := engine.Run(s, strategy.Params{FastPeriod: 30, SlowPeriod: 10}, frictionlessCfg())
	assert.Error(t, err)

	bad := &series.Series{Symbol: "0700.HK"}
	_, err = engine.Run(bad, strategy.Params{FastPeriod: 2, SlowPeriod: 3}, frictionlessCfg())
	assert.Error(t, err)
}

func TestEngineRun_SeriesShorterThanSlowWindow(t *testing.T) {
	// Five bars against a 30-bar slow window: everything is warm-up. The run
	// completes flat instead of failing on the missing indicator values.
	s := testSeries(t, "0700.HK", 10, 11, 12, 13, 14)

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Run(s, strategy.Params{FastPeriod: 10, SlowPeriod: 30}, frictionlessCfg())

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Empty(t, result.OpenPositions)
	require.Len(t, result.Equity, 5)
	for _, point := range result.Equity {
		assert.Equal(t, 100000.0, point.Equity)
	}
}

func TestEngineRun_NoSignalsMeansFlatCurve(t *testing.T) {
	// Constant prices never cross; the run holds cash throughout
	s := testSeries(t, "0700.HK", 50, 50, 50, 50, 50, 50)

	engine := NewEngine(zerolog.Nop())
	result, err := engine.Run(s, strategy.Params{FastPeriod: 2, SlowPeriod: 3}, frictionlessCfg())

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Empty(t, result.OpenPositions)
	for _, point := range result.Equity {
		assert.Equal(t, 100000.0, point.Equity)
	}
}
