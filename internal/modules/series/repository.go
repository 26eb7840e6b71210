package series

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository provides access to the daily price cache (history.db). The
// external data-loading collaborator writes bars through SaveBars; everything
// else in the system only reads.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "series").Logger(),
	}
}

// GetSeries loads the full validated price series for a symbol, oldest bar
// first. Returns an error when no bars exist or the stored data violates the
// series invariants.
func (r *Repository) GetSeries(symbol string) (*Series, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var bar Bar
		var dateUnix int64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		bar.Date = time.Unix(dateUnix, 0).UTC()
		if volume.Valid {
			bar.Volume = volume.Int64
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s", symbol)
	}

	return New(symbol, bars)
}

// GetSeriesSince loads bars on or after the given date
func (r *Repository) GetSeriesSince(symbol string, since time.Time) (*Series, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, symbol, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var bar Bar
		var dateUnix int64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &bar.Open, &bar.High, &bar.Low, &bar.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		bar.Date = time.Unix(dateUnix, 0).UTC()
		if volume.Valid {
			bar.Volume = volume.Int64
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s since %s", symbol, since.Format("2006-01-02"))
	}

	return New(symbol, bars)
}

// SaveBars upserts bars for a symbol. Used by the data-loading collaborator
// and by tests to seed the cache. Bars are validated as a batch before any
// row is written.
func (r *Repository) SaveBars(symbol string, bars []Bar) error {
	candidate := &Series{Symbol: symbol, Bars: bars}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid bars: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, open, high, low, close, volume, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, bar := range bars {
		if _, err := stmt.Exec(symbol, bar.Date.Unix(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, now); err != nil {
			return fmt.Errorf("failed to insert bar for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars: %w", err)
	}

	r.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Saved price bars")
	return nil
}

// ListSymbols returns the distinct symbols present in the price cache
func (r *Repository) ListSymbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}
