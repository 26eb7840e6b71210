package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/health", h.HandleHealth)
}

// HandleHealth handles GET /api/system/health. CPU and memory readings are
// best-effort: a sampling failure degrades the response, it never fails it.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"data_dir":       h.dataDir,
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory_used_pct"] = vm.UsedPercent
	} else {
		h.log.Debug().Err(err).Msg("Failed to sample memory")
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["cpu_pct"] = percents[0]
	} else if err != nil {
		h.log.Debug().Err(err).Msg("Failed to sample CPU")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode health response")
	}
}
