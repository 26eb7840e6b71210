// Package handlers provides HTTP handlers for backtest operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/stratlab/internal/modules/backtest"
	"github.com/aristath/stratlab/internal/modules/broker"
	"github.com/aristath/stratlab/internal/modules/ledger"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Handler handles backtest HTTP requests
type Handler struct {
	service *backtest.Service
	runs    *ledger.RunRepository
	log     zerolog.Logger
}

// NewHandler creates a new backtest handler
func NewHandler(service *backtest.Service, runs *ledger.RunRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		runs:    runs,
		log:     log.With().Str("handler", "backtest").Logger(),
	}
}

// runRequest is the request body for both run endpoints
type runRequest struct {
	Symbol  string   `json:"symbol"`
	Symbols []string `json:"symbols"`
	backtest.RunParams
}

// HandleRunSingle handles POST /api/backtest
func (h *Handler) HandleRunSingle(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.RunSingle(req.Symbol, req.RunParams)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Backtest failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":  result.RunID,
			"summary": result.Summarize(),
			"trades":  result.Trades,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRunPortfolio handles POST /api/backtest/portfolio
func (h *Handler) HandleRunPortfolio(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Symbols) == 0 {
		http.Error(w, "symbols is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.RunPortfolio(req.Symbols, req.RunParams)
	if err != nil {
		h.log.Error().Err(err).Strs("symbols", req.Symbols).Msg("Portfolio backtest failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"run_id":  result.RunID,
			"summary": result.Summarize(),
			"equity":  result.Equity,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runs.GetRun(runID)
	if errors.Is(err, ledger.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": run})
}

// HandleGetTrades handles GET /api/runs/{id}/trades
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request, runID string) {
	if _, err := h.runs.GetRun(runID); errors.Is(err, ledger.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	trades, err := h.runs.ListTrades(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load trades")
		http.Error(w, "Failed to load trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []broker.Trade{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": trades})
}

// equityFrame is one websocket playback message
type equityFrame struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
	Index  int     `json:"index"`
	Total  int     `json:"total"`
}

// HandleStreamEquity handles GET /api/runs/{id}/equity/stream. It upgrades
// to a websocket and plays the stored equity curve back point by point, so
// the UI collaborator can animate the curve without holding the whole run
// in memory.
func (h *Handler) HandleStreamEquity(w http.ResponseWriter, r *http.Request, runID string) {
	points, err := h.runs.GetEquityCurve(runID)
	if errors.Is(err, ledger.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load equity curve")
		http.Error(w, "Failed to load equity curve", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The browser UI runs on a different origin in development
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	for i, point := range points {
		frame := equityFrame{
			Date:   point.Date.Format("2006-01-02"),
			Equity: point.Equity,
			Index:  i,
			Total:  len(points),
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			h.log.Debug().Err(err).Str("run_id", runID).Msg("Equity stream closed by peer")
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
