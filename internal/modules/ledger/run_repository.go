// Package ledger persists completed backtest runs and their trade ledgers.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stratlab/internal/modules/backtest"
	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/rs/zerolog"
)

// ErrRunNotFound is returned when a run id does not exist
var ErrRunNotFound = errors.New("run not found")

// Run is the stored header row for one completed simulation
type Run struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Symbols     []string  `json:"symbols"`
	FastPeriod  int       `json:"fast_period"`
	SlowPeriod  int       `json:"slow_period"`
	InitialCash float64   `json:"initial_cash"`
	FinalEquity float64   `json:"final_equity"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunRepository handles run and trade persistence on ledger.db
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

// Create stores a finished result: the run header, every closed trade, and
// the equity curve, in one transaction. Results are append-only; a run is
// never updated after creation.
func (r *RunRepository) Create(result *backtest.Result) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, kind, symbols, fast_period, slow_period, initial_cash, final_equity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.Kind,
		strings.Join(result.Symbols, ","),
		result.FastPeriod,
		result.SlowPeriod,
		result.InitialCash,
		result.FinalEquity,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	tradeStmt, err := tx.Prepare(`
		INSERT INTO run_trades (run_id, symbol, entry_date, entry_price, exit_date, exit_price, pnl_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trade insert: %w", err)
	}
	defer tradeStmt.Close()

	for _, trade := range result.Trades {
		_, err := tradeStmt.Exec(
			result.RunID,
			trade.Symbol,
			trade.EntryDate.Unix(),
			trade.EntryPrice,
			trade.ExitDate.Unix(),
			trade.ExitPrice,
			trade.PnLPct,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	equityStmt, err := tx.Prepare(`
		INSERT INTO run_equity (run_id, date, equity) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare equity insert: %w", err)
	}
	defer equityStmt.Close()

	for _, point := range result.Equity {
		if _, err := equityStmt.Exec(result.RunID, point.Date.Unix(), point.Equity); err != nil {
			return fmt.Errorf("failed to insert equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	r.log.Info().
		Str("run_id", result.RunID).
		Str("kind", result.Kind).
		Int("trades", len(result.Trades)).
		Msg("Run persisted")

	return nil
}

// GetRun fetches a run header by id
func (r *RunRepository) GetRun(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, kind, symbols, fast_period, slow_period, initial_cash, final_equity, created_at
		FROM runs WHERE id = ?
	`, id)

	var run Run
	var symbols string
	var createdAt int64
	err := row.Scan(&run.ID, &run.Kind, &symbols, &run.FastPeriod, &run.SlowPeriod,
		&run.InitialCash, &run.FinalEquity, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Symbols = strings.Split(symbols, ",")
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, nil
}

// ListTrades returns the closed trades of a run, entry date ascending
func (r *RunRepository) ListTrades(runID string) ([]broker.Trade, error) {
	rows, err := r.db.Query(`
		SELECT symbol, entry_date, entry_price, exit_date, exit_price, pnl_pct
		FROM run_trades WHERE run_id = ?
		ORDER BY entry_date ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []broker.Trade
	for rows.Next() {
		var trade broker.Trade
		var entryDate, exitDate int64
		if err := rows.Scan(&trade.Symbol, &entryDate, &trade.EntryPrice, &exitDate, &trade.ExitPrice, &trade.PnLPct); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trade.EntryDate = time.Unix(entryDate, 0).UTC()
		trade.ExitDate = time.Unix(exitDate, 0).UTC()
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}

// GetEquityCurve returns the stored equity curve of a run in date order
func (r *RunRepository) GetEquityCurve(runID string) ([]backtest.EquityPoint, error) {
	rows, err := r.db.Query(`
		SELECT date, equity FROM run_equity WHERE run_id = ? ORDER BY date ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var points []backtest.EquityPoint
	for rows.Next() {
		var point backtest.EquityPoint
		var date int64
		if err := rows.Scan(&date, &point.Equity); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		point.Date = time.Unix(date, 0).UTC()
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(points) == 0 {
		return nil, ErrRunNotFound
	}
	return points, nil
}

// DeleteOlderThan prunes runs (and, via foreign keys, their trades and
// equity curves) created before the cutoff. Returns the number of runs
// removed.
func (r *RunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}
