package database

// schemas maps database names to their embedded schema SQL. Each database
// has a single owning schema; modules never ALTER tables at runtime.
var schemas = map[string]string{
	"history": historySchema,
	"ledger":  ledgerSchema,
	"cache":   cacheSchema,
}

// historySchema holds the daily OHLCV price cache seeded by the external
// data-loading collaborator.
const historySchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol     TEXT    NOT NULL,
    date       INTEGER NOT NULL, -- Unix timestamp (UTC midnight)
    open       REAL    NOT NULL CHECK(open > 0),
    high       REAL    NOT NULL CHECK(high > 0),
    low        REAL    NOT NULL CHECK(low > 0),
    close      REAL    NOT NULL CHECK(close > 0),
    volume     INTEGER,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (symbol, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date
    ON daily_prices(symbol, date);
`

// ledgerSchema holds completed backtest runs and their closed trades.
// Rows are append-only; the maintenance job prunes by age.
const ledgerSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT    PRIMARY KEY,
    kind         TEXT    NOT NULL CHECK(kind IN ('single', 'portfolio')),
    symbols      TEXT    NOT NULL,
    fast_period  INTEGER NOT NULL,
    slow_period  INTEGER NOT NULL,
    initial_cash REAL    NOT NULL,
    final_equity REAL    NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    symbol      TEXT    NOT NULL,
    entry_date  INTEGER NOT NULL,
    entry_price REAL    NOT NULL CHECK(entry_price > 0),
    exit_date   INTEGER NOT NULL,
    exit_price  REAL    NOT NULL CHECK(exit_price > 0),
    pnl_pct     REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS run_equity (
    run_id TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    date   INTEGER NOT NULL,
    equity REAL    NOT NULL,
    PRIMARY KEY (run_id, date)
);

CREATE INDEX IF NOT EXISTS idx_run_trades_run_id ON run_trades(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// cacheSchema holds ephemeral msgpack-encoded computation results.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS computation_cache (
    cache_key  TEXT    PRIMARY KEY,
    kind       TEXT    NOT NULL,
    payload    BLOB    NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_computation_cache_kind
    ON computation_cache(kind, created_at);
`
