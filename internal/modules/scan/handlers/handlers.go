// Package handlers provides HTTP handlers for parameter scan operations.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/aristath/stratlab/internal/modules/scan"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/rs/zerolog"
)

// Reporter writes the scan CSV artifact
type Reporter interface {
	WriteScan(symbol string, rows []scan.Row) (string, error)
}

// Handler handles scan HTTP requests
type Handler struct {
	scanner    *scan.Scanner
	cache      *scan.Cache
	seriesRepo *series.Repository
	reporter   Reporter
	log        zerolog.Logger
}

// NewHandler creates a new scan handler
func NewHandler(scanner *scan.Scanner, cache *scan.Cache, seriesRepo *series.Repository, reporter Reporter, log zerolog.Logger) *Handler {
	return &Handler{
		scanner:    scanner,
		cache:      cache,
		seriesRepo: seriesRepo,
		reporter:   reporter,
		log:        log.With().Str("handler", "scan").Logger(),
	}
}

// scanRequest is the request body for POST /api/scan
type scanRequest struct {
	Symbol     string  `json:"symbol"`
	FastGrid   []int   `json:"fast_grid"`
	SlowGrid   []int   `json:"slow_grid"`
	Commission float64 `json:"commission"`
}

// defaultGrids mirror the historical UI's scan ranges
var (
	defaultFastGrid = []int{5, 10, 15, 20}
	defaultSlowGrid = []int{20, 30, 40, 60, 90}
)

// HandleScan handles POST /api/scan
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol, err := series.NormalizeSymbol(req.Symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.FastGrid) == 0 {
		req.FastGrid = defaultFastGrid
	}
	if len(req.SlowGrid) == 0 {
		req.SlowGrid = defaultSlowGrid
	}
	if req.Commission == 0 {
		req.Commission = 0.001
	}

	priceSeries, err := h.seriesRepo.GetSeries(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load series")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	scanReq := scan.Request{
		FastGrid:   req.FastGrid,
		SlowGrid:   req.SlowGrid,
		Commission: req.Commission,
	}

	cached := true
	rows := h.cache.Get(priceSeries, scanReq)
	if rows == nil {
		cached = false
		rows, err = h.scanner.Scan(priceSeries, scanReq)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Scan failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.cache.Put(priceSeries, scanReq, rows)
	}

	scan.SortBySharpe(rows)

	if _, err := h.reporter.WriteScan(symbol, rows); err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write scan report")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":      symbol,
			"rows":        rowsJSON(rows),
			"recommended": recommendedJSON(rows),
		},
		"metadata": map[string]interface{}{
			"cached":    cached,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// recommendedJSON returns the best row, or nil when the scan produced none
func recommendedJSON(rows []scan.Row) interface{} {
	if len(rows) == 0 {
		return nil
	}
	return rowJSON(rows[0])
}

// rowsJSON renders rows NaN-safe for JSON encoding
func rowsJSON(rows []scan.Row) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = rowJSON(row)
	}
	return out
}

func rowJSON(row scan.Row) map[string]interface{} {
	return map[string]interface{}{
		"fast":   row.Fast,
		"slow":   row.Slow,
		"sharpe": nanSafe(row.Sharpe),
		"max_dd": nanSafe(row.MaxDrawdown),
	}
}

func nanSafe(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
