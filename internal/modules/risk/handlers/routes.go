package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/runs/{id}/panel", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRunPanel(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/limit", h.HandlePositionLimit)
	})
}
