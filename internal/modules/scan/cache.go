package scan

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheKind tags scan rows in the shared computation cache table
const cacheKind = "sma_grid"

// Cache memoizes grid-scan results in cache.db. Grid scans are pure
// functions of (series content, grid, commission), so the key hashes the
// grid parameters plus the last bar date; a new trading day invalidates
// naturally.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a scan result cache with the given freshness window
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "scan_cache").Logger(),
	}
}

// cacheKey builds a deterministic key for one scan. Grids are sorted so the
// key is independent of the order the caller supplied them in.
func cacheKey(s *series.Series, req Request) string {
	fast := append([]int(nil), req.FastGrid...)
	slow := append([]int(nil), req.SlowGrid...)
	sort.Ints(fast)
	sort.Ints(slow)

	var b strings.Builder
	b.WriteString(s.Symbol)
	b.WriteString("|")
	b.WriteString(s.Bars[len(s.Bars)-1].Date.Format("2006-01-02"))
	b.WriteString(fmt.Sprintf("|n=%d|c=%.6f|f=%v|s=%v", s.Len(), req.Commission, fast, slow))

	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:16]) // First 16 bytes (32 hex chars) is plenty
}

// Get returns cached rows for a scan, or nil on a miss. Cache errors are
// logged and treated as misses; the scan just recomputes.
func (c *Cache) Get(s *series.Series, req Request) []Row {
	key := cacheKey(s, req)
	cutoff := time.Now().Add(-c.ttl).Unix()

	var payload []byte
	err := c.db.QueryRow(
		`SELECT payload FROM computation_cache WHERE cache_key = ? AND kind = ? AND created_at >= ?`,
		key, cacheKind, cutoff,
	).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn().Err(err).Msg("Cache lookup failed")
		}
		return nil
	}

	var rows []Row
	if err := msgpack.Unmarshal(payload, &rows); err != nil {
		c.log.Warn().Err(err).Msg("Failed to decode cached scan rows")
		return nil
	}

	c.log.Debug().Str("symbol", s.Symbol).Int("rows", len(rows)).Msg("Scan cache hit")
	return rows
}

// Put stores scan rows. Failures are logged and ignored: the cache is an
// optimization, never a correctness dependency.
func (c *Cache) Put(s *series.Series, req Request, rows []Row) {
	payload, err := msgpack.Marshal(rows)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode scan rows")
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO computation_cache (cache_key, kind, payload, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		cacheKey(s, req), cacheKind, payload, time.Now().Unix(),
	)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to store scan rows")
	}
}

// Expire deletes cache entries older than the freshness window. Called by
// the nightly maintenance job.
func (c *Cache) Expire() (int64, error) {
	cutoff := time.Now().Add(-c.ttl).Unix()
	result, err := c.db.Exec(`DELETE FROM computation_cache WHERE kind = ? AND created_at < ?`, cacheKind, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire scan cache: %w", err)
	}
	return result.RowsAffected()
}
