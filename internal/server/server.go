// Package server provides the HTTP server and routing for Stratlab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stratlab/internal/clients/forecast"
	"github.com/aristath/stratlab/internal/config"
	"github.com/aristath/stratlab/internal/database"
	"github.com/aristath/stratlab/internal/modules/backtest"
	backtesthandlers "github.com/aristath/stratlab/internal/modules/backtest/handlers"
	"github.com/aristath/stratlab/internal/modules/ledger"
	"github.com/aristath/stratlab/internal/modules/reports"
	riskhandlers "github.com/aristath/stratlab/internal/modules/risk/handlers"
	"github.com/aristath/stratlab/internal/modules/scan"
	scanhandlers "github.com/aristath/stratlab/internal/modules/scan/handlers"
	"github.com/aristath/stratlab/internal/modules/series"
)

// scanCacheTTL is how long scan results stay fresh. One day: the cache key
// already includes the last bar date, the TTL just bounds growth between
// maintenance runs.
const scanCacheTTL = 24 * time.Hour

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	HistoryDB *database.DB
	LedgerDB  *database.DB
	CacheDB   *database.DB
	Config    *config.Config
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	// Shared module instances, exposed for the maintenance scheduler
	RunRepo   *ledger.RunRepository
	ScanCache *scan.Cache
}

// New creates a new server with all module routes wired
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(120 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Repositories and services
	seriesRepo := series.NewRepository(cfg.HistoryDB.Conn(), cfg.Log)
	runRepo := ledger.NewRunRepository(cfg.LedgerDB.Conn(), cfg.Log)
	reportService := reports.NewService(cfg.Config.OutputsDir(), cfg.Log)
	backtestService := backtest.NewService(seriesRepo, runRepo, reportService, cfg.Config.Broker, cfg.Log)
	scanner := scan.NewScanner(cfg.Log)
	scanCache := scan.NewCache(cfg.CacheDB.Conn(), scanCacheTTL, cfg.Log)
	forecastClient := forecast.NewClient(cfg.Config.ForecastServiceURL, cfg.Log)

	// Handlers
	backtestHandler := backtesthandlers.NewHandler(backtestService, runRepo, cfg.Log)
	scanHandler := scanhandlers.NewHandler(scanner, scanCache, seriesRepo, reportService, cfg.Log)
	riskHandler := riskhandlers.NewHandler(runRepo, seriesRepo, forecastClient, cfg.Log)
	systemHandler := NewSystemHandlers(cfg.Config.DataDir, cfg.Log)

	router.Route("/api", func(r chi.Router) {
		backtestHandler.RegisterRoutes(r)
		scanHandler.RegisterRoutes(r)
		riskHandler.RegisterRoutes(r)
		systemHandler.RegisterRoutes(r)
	})

	return &Server{
		router: router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log:       log,
		RunRepo:   runRepo,
		ScanCache: scanCache,
	}
}

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router for tests
func (s *Server) Router() http.Handler {
	return s.router
}
