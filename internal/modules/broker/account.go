// Package broker simulates a cash account holding at most one long position
// per instrument, with commission and slippage frictions and
// percentage-of-equity position sizing.
package broker

import (
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the simulation parameters for one account. It is immutable
// after construction so concurrent runs can share a Config value safely.
type Config struct {
	Cash        float64 // Starting cash
	Commission  float64 // Flat commission charged on each order leg
	SlippageBPS int     // Adverse fill slippage in basis points
	SizingPct   float64 // Fraction of current equity committed per buy (clamped to [0.01, 1.0])
}

// clampSizing applies the historical sizing bounds: anything below 1% is
// raised to 1%, anything above 100% lowered to 100%. Out-of-range values are
// clamped rather than rejected.
func clampSizing(pct float64) float64 {
	return math.Max(0.01, math.Min(1.0, pct))
}

// Position represents one open long position
type Position struct {
	Symbol     string    `json:"symbol"`
	Size       int64     `json:"size"` // Whole units; zero means flat
	EntryPrice float64   `json:"entry_price"`
	EntryDate  time.Time `json:"entry_date"`
}

// Trade is a completed long round trip, created when a position goes flat.
// Immutable once returned by Sell.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitDate   time.Time `json:"exit_date"`
	ExitPrice  float64   `json:"exit_price"`
	PnLPct     float64   `json:"pnl_pct"` // exit/entry - 1, computed on fill prices
}

// Account is the cash and position ledger for a single simulation run.
// Each run owns exactly one Account; sharing an Account across concurrent
// simulations is not supported.
type Account struct {
	cash      float64
	config    Config
	positions map[string]*Position
	log       zerolog.Logger
}

// NewAccount creates an account from the given configuration. The sizing
// percentage is clamped here, once, so every later Buy sees a valid value.
func NewAccount(cfg Config, log zerolog.Logger) *Account {
	cfg.SizingPct = clampSizing(cfg.SizingPct)
	return &Account{
		cash:      cfg.Cash,
		config:    cfg,
		positions: make(map[string]*Position),
		log:       log.With().Str("component", "broker").Logger(),
	}
}

// Cash returns the current cash balance. It can be negative: percentage
// sizing against total equity can commit more than available cash, and the
// account deliberately does not enforce a floor. The condition is logged,
// never repaired.
func (a *Account) Cash() float64 {
	return a.cash
}

// Position returns the open position for a symbol, or nil when flat
func (a *Account) Position(symbol string) *Position {
	return a.positions[symbol]
}

// slippage converts the configured basis points into a rate
func (a *Account) slippage() float64 {
	return float64(a.config.SlippageBPS) / 10000.0
}

// Buy opens a long position. No-op when a position is already open (the
// state machine only enters when flat) or when the computed order size
// rounds down to zero, which happens for tiny accounts or very expensive
// instruments. Returns the opened position, or nil when nothing happened.
//
// sizingBasis is the capital base the percentage sizer is applied to: the
// single-instrument engine passes available cash, the portfolio engine
// passes total account equity (instruments compete for one pool). The order
// commits SizingPct of that basis at the slippage-adjusted fill price; the
// commission is charged on top.
func (a *Account) Buy(symbol string, price float64, date time.Time, sizingBasis float64) *Position {
	if pos := a.positions[symbol]; pos != nil && pos.Size != 0 {
		return nil
	}

	effectivePrice := price * (1 + a.slippage())
	size := int64(math.Floor(sizingBasis * a.config.SizingPct / effectivePrice))
	if size <= 0 {
		a.log.Debug().
			Str("symbol", symbol).
			Float64("price", price).
			Float64("basis", sizingBasis).
			Msg("Order size rounded to zero, skipping buy")
		return nil
	}

	cost := float64(size)*effectivePrice + a.config.Commission
	a.cash -= cost

	position := &Position{
		Symbol:     symbol,
		Size:       size,
		EntryPrice: effectivePrice,
		EntryDate:  date,
	}
	a.positions[symbol] = position

	if a.cash < 0 {
		a.log.Debug().
			Str("symbol", symbol).
			Float64("cash", a.cash).
			Msg("Cash went negative after buy (no floor enforced)")
	}

	return position
}

// Sell closes the open position at the slippage-adjusted fill price and
// returns the completed Trade. No-op (nil) when the instrument is flat.
func (a *Account) Sell(symbol string, price float64, date time.Time) *Trade {
	position := a.positions[symbol]
	if position == nil || position.Size == 0 {
		return nil
	}

	effectivePrice := price * (1 - a.slippage())
	proceeds := float64(position.Size)*effectivePrice - a.config.Commission
	a.cash += proceeds

	trade := &Trade{
		Symbol:     symbol,
		EntryDate:  position.EntryDate,
		EntryPrice: position.EntryPrice,
		ExitDate:   date,
		ExitPrice:  effectivePrice,
		PnLPct:     effectivePrice/position.EntryPrice - 1,
	}

	delete(a.positions, symbol)
	return trade
}

// MarkToMarket returns current equity given closing prices per symbol.
// Pure read; no state is mutated. Positions without a supplied price
// contribute at their entry price, which only happens on precondition
// violations upstream.
func (a *Account) MarkToMarket(prices map[string]float64) float64 {
	equity := a.cash
	for symbol, position := range a.positions {
		price, ok := prices[symbol]
		if !ok {
			price = position.EntryPrice
		}
		equity += float64(position.Size) * price
	}
	return equity
}

// OpenPositions returns a snapshot of currently open positions
func (a *Account) OpenPositions() []Position {
	out := make([]Position, 0, len(a.positions))
	for _, position := range a.positions {
		out = append(out, *position)
	}
	return out
}

// SizingPct returns the clamped sizing percentage in effect
func (a *Account) SizingPct() float64 {
	return a.config.SizingPct
}
