// Package handlers provides HTTP handlers for risk metrics operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/stratlab/internal/clients/forecast"
	"github.com/aristath/stratlab/internal/modules/ledger"
	"github.com/aristath/stratlab/internal/modules/risk"
	"github.com/aristath/stratlab/internal/modules/series"
	"github.com/aristath/stratlab/pkg/formulas"
	"github.com/rs/zerolog"
)

// Handler handles risk HTTP requests
type Handler struct {
	runs       *ledger.RunRepository
	seriesRepo *series.Repository
	forecaster *forecast.Client
	log        zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(runs *ledger.RunRepository, seriesRepo *series.Repository, forecaster *forecast.Client, log zerolog.Logger) *Handler {
	return &Handler{
		runs:       runs,
		seriesRepo: seriesRepo,
		forecaster: forecaster,
		log:        log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetRunPanel handles GET /api/risk/runs/{id}/panel. The panel is
// recomputed from the stored equity curve on every request; it is cheap and
// storing it would just duplicate derivable state.
func (h *Handler) HandleGetRunPanel(w http.ResponseWriter, r *http.Request, runID string) {
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

	equity := make([]float64, len(points))
	for i, point := range points {
		equity[i] = point.Equity
	}

	panel := risk.PanelFromEquity(equity)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": panelJSON(panel),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// limitRequest is the request body for the position-limit endpoint
type limitRequest struct {
	Symbol       string `json:"symbol"`
	LookbackDays int    `json:"lookback_days"`
}

// HandlePositionLimit handles POST /api/risk/limit: fetches next-day return
// quantiles from the forecasting service and applies the deterministic
// position-cap rule.
func (h *Handler) HandlePositionLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	symbol, err := series.NormalizeSymbol(req.Symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lookback := req.LookbackDays
	if lookback <= 0 {
		lookback = 365
	}

	priceSeries, err := h.seriesRepo.GetSeriesSince(symbol, time.Now().AddDate(0, 0, -lookback))
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load series")
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	predictions, err := h.forecaster.PredictNextDay(r.Context(), symbol, formulas.CalculateReturns(priceSeries.Closes()))
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Forecast request failed")
		http.Error(w, "Forecast service unavailable", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":         symbol,
			"position_limit": risk.LimitFromQuantiles(predictions),
			"quantiles":      predictions,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// panelJSON renders a risk panel with NaN-safe values: encoding/json cannot
// represent NaN, so undefined metrics become null
func panelJSON(panel risk.Panel) map[string]interface{} {
	return map[string]interface{}{
		"ann_vol":        nanSafe(panel.AnnualizedVolatility),
		"max_drawdown":   nanSafe(panel.MaxDrawdown),
		"sharpe":         nanSafe(panel.Sharpe),
		"calmar":         nanSafe(panel.Calmar),
		"sortino_approx": nanSafe(panel.Sortino),
	}
}

func nanSafe(v float64) interface{} {
	if v != v {
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
