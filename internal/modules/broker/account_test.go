package broker

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func newTestAccount(cfg Config) *Account {
	return NewAccount(cfg, zerolog.Nop())
}

func TestNewAccount_ClampsSizing(t *testing.T) {
	testCases := []struct {
		name     string
		sizing   float64
		expected float64
	}{
		{name: "Below floor", sizing: 0.001, expected: 0.01},
		{name: "At floor", sizing: 0.01, expected: 0.01},
		{name: "Normal", sizing: 0.10, expected: 0.10},
		{name: "Above cap", sizing: 1.5, expected: 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			account := newTestAccount(Config{Cash: 100000, SizingPct: tc.sizing})
			assert.Equal(t, tc.expected, account.SizingPct())
		})
	}
}

func TestBuy_OpensPositionAndDebitsCash(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, Commission: 5, SizingPct: 0.10})

	position := account.Buy("0700.HK", 12.0, testDate, account.Cash())

	require.NotNil(t, position)
	// floor(100000 * 0.10 / 12) = 833 units
	assert.Equal(t, int64(833), position.Size)
	assert.Equal(t, 12.0, position.EntryPrice)
	// Accounting identity: cash + size*price stays constant up to commission
	assert.InDelta(t, 100000-833*12.0-5, account.Cash(), 1e-9)
	assert.InDelta(t, 100000-5, account.Cash()+float64(position.Size)*12.0, 1e-9)
}

func TestBuy_NoOpWhenAlreadyLong(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, SizingPct: 0.10})

	first := account.Buy("0700.HK", 10.0, testDate, account.Cash())
	require.NotNil(t, first)
	cashAfterFirst := account.Cash()

	second := account.Buy("0700.HK", 11.0, testDate.AddDate(0, 0, 1), account.Cash())

	assert.Nil(t, second)
	assert.Equal(t, cashAfterFirst, account.Cash())
	assert.Equal(t, first, account.Position("0700.HK"))
}

func TestBuy_ZeroSizeIsNoOp(t *testing.T) {
	// 1% of 100 cash cannot afford a single 500-priced unit
	account := newTestAccount(Config{Cash: 100, SizingPct: 0.01})

	position := account.Buy("0700.HK", 500.0, testDate, account.Cash())

	assert.Nil(t, position)
	assert.Equal(t, 100.0, account.Cash())
	assert.Nil(t, account.Position("0700.HK"))
}

func TestBuy_AppliesSlippage(t *testing.T) {
	// 50 bps: effective fill = 10 * 1.005 = 10.05
	account := newTestAccount(Config{Cash: 100000, SlippageBPS: 50, SizingPct: 0.10})

	position := account.Buy("0700.HK", 10.0, testDate, account.Cash())

	require.NotNil(t, position)
	assert.InDelta(t, 10.05, position.EntryPrice, 1e-9)
	// floor(10000 / 10.05) = 995
	assert.Equal(t, int64(995), position.Size)
}

func TestBuy_NegativeCashAllowed(t *testing.T) {
	// Sizing against a basis larger than available cash (the portfolio case)
	// is allowed to drive cash below zero
	account := newTestAccount(Config{Cash: 1000, SizingPct: 1.0})

	position := account.Buy("0700.HK", 10.0, testDate, 50000)

	require.NotNil(t, position)
	assert.Equal(t, int64(5000), position.Size)
	assert.Less(t, account.Cash(), 0.0)
}

func TestSell_ClosesPositionAndComputesPnL(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, SizingPct: 0.10})

	position := account.Buy("0700.HK", 12.0, testDate, account.Cash())
	require.NotNil(t, position)

	exitDate := testDate.AddDate(0, 0, 5)
	trade := account.Sell("0700.HK", 8.0, exitDate)

	require.NotNil(t, trade)
	assert.Equal(t, "0700.HK", trade.Symbol)
	assert.Equal(t, testDate, trade.EntryDate)
	assert.Equal(t, exitDate, trade.ExitDate)
	assert.InDelta(t, 8.0/12.0-1, trade.PnLPct, 1e-12)
	assert.Nil(t, account.Position("0700.HK"))

	// Frictionless round trip: cash reflects exactly the realized loss
	assert.InDelta(t, 100000+float64(position.Size)*(8.0-12.0), account.Cash(), 1e-9)
}

func TestSell_PnLUsesFillPrices(t *testing.T) {
	// 100 bps slippage on both legs: entry fills at 10.10, exit at 10.89
	account := newTestAccount(Config{Cash: 100000, SlippageBPS: 100, SizingPct: 0.10})

	position := account.Buy("0700.HK", 10.0, testDate, account.Cash())
	require.NotNil(t, position)
	trade := account.Sell("0700.HK", 11.0, testDate.AddDate(0, 0, 1))

	require.NotNil(t, trade)
	assert.InDelta(t, 10.10, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 11.0*0.99, trade.ExitPrice, 1e-9)
	assert.InDelta(t, trade.ExitPrice/trade.EntryPrice-1, trade.PnLPct, 1e-12)
}

func TestSell_NoOpWhenFlat(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, SizingPct: 0.10})

	trade := account.Sell("0700.HK", 10.0, testDate)

	assert.Nil(t, trade)
	assert.Equal(t, 100000.0, account.Cash())
}

func TestMarkToMarket(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, SizingPct: 0.10})

	position := account.Buy("0700.HK", 10.0, testDate, account.Cash())
	require.NotNil(t, position)

	equity := account.MarkToMarket(map[string]float64{"0700.HK": 12.0})

	assert.InDelta(t, account.Cash()+float64(position.Size)*12.0, equity, 1e-9)

	// Pure read: repeated calls see the same state
	assert.Equal(t, equity, account.MarkToMarket(map[string]float64{"0700.HK": 12.0}))
}

func TestOpenPositions(t *testing.T) {
	account := newTestAccount(Config{Cash: 100000, SizingPct: 0.10})
	assert.Empty(t, account.OpenPositions())

	account.Buy("0700.HK", 10.0, testDate, account.Cash())
	account.Buy("0005.HK", 60.0, testDate, account.Cash())

	open := account.OpenPositions()
	assert.Len(t, open, 2)
}
