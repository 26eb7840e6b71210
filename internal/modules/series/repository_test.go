package series

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE daily_prices (
			symbol     TEXT    NOT NULL,
			date       INTEGER NOT NULL,
			open       REAL    NOT NULL CHECK(open > 0),
			high       REAL    NOT NULL CHECK(high > 0),
			low        REAL    NOT NULL CHECK(low > 0),
			close      REAL    NOT NULL CHECK(close > 0),
			volume     INTEGER,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	require.NoError(t, err)

	return db
}

func TestSaveAndGetSeries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	bars := makeBars(100, 101, 102, 103)
	require.NoError(t, repo.SaveBars("0700.HK", bars))

	loaded, err := repo.GetSeries("0700.HK")
	require.NoError(t, err)

	assert.Equal(t, "0700.HK", loaded.Symbol)
	require.Equal(t, 4, loaded.Len())
	assert.Equal(t, []float64{100, 101, 102, 103}, loaded.Closes())
	assert.True(t, loaded.Bars[0].Date.Equal(bars[0].Date))
}

func TestSaveBars_UpsertsOnConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.SaveBars("0700.HK", makeBars(100, 101)))

	// Re-save the same dates with corrected closes
	revised := makeBars(105, 106)
	require.NoError(t, repo.SaveBars("0700.HK", revised))

	loaded, err := repo.GetSeries("0700.HK")
	require.NoError(t, err)
	assert.Equal(t, []float64{105, 106}, loaded.Closes())
}

func TestSaveBars_RejectsInvalidBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	bars := makeBars(100, 101)
	bars[1].Close = -5

	assert.Error(t, repo.SaveBars("0700.HK", bars))

	// Nothing was written: the batch is validated before the transaction
	_, err := repo.GetSeries("0700.HK")
	assert.Error(t, err)
}

func TestGetSeries_UnknownSymbol(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	_, err := repo.GetSeries("9999.HK")
	assert.Error(t, err)
}

func TestGetSeriesSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.SaveBars("0700.HK", makeBars(100, 101, 102, 103, 104)))

	loaded, err := repo.GetSeriesSince("0700.HK", day(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103, 104}, loaded.Closes())

	_, err = repo.GetSeriesSince("0700.HK", day(10))
	assert.Error(t, err)
}

func TestListSymbols(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	symbols, err := repo.ListSymbols()
	require.NoError(t, err)
	assert.Empty(t, symbols)

	require.NoError(t, repo.SaveBars("0700.HK", makeBars(100)))
	require.NoError(t, repo.SaveBars("0005.HK", makeBars(60)))

	symbols, err = repo.ListSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"0005.HK", "0700.HK"}, symbols)
}

func TestGetSeries_TimesComeBackUTC(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.SaveBars("0700.HK", makeBars(100)))

	loaded, err := repo.GetSeries("0700.HK")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loaded.Bars[0].Date.Location())
}
