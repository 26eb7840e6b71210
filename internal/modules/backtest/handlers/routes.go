package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all backtest routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/backtest", h.HandleRunSingle)
	r.Post("/backtest/portfolio", h.HandleRunPortfolio)

	r.Route("/runs/{id}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRun(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/trades", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetTrades(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/equity/stream", func(w http.ResponseWriter, r *http.Request) {
			h.HandleStreamEquity(w, r, chi.URLParam(r, "id"))
		})
	})
}
