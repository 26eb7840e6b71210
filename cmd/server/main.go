// Package main is the entry point for the Stratlab backtesting service.
// It wires configuration, the three SQLite databases (price history, run
// ledger, computation cache), the HTTP API, and the nightly maintenance
// scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stratlab/internal/config"
	"github.com/aristath/stratlab/internal/database"
	"github.com/aristath/stratlab/internal/scheduler"
	"github.com/aristath/stratlab/internal/server"
	"github.com/aristath/stratlab/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Stratlab")

	// Three-database layout:
	// - history.db: daily OHLCV prices seeded by the data-loading collaborator
	// - ledger.db: completed runs, their trades and equity curves
	// - cache.db: ephemeral computation cache (parameter scans)
	historyDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("history"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("ledger"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("cache"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{historyDB, ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Migration failed")
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		HistoryDB: historyDB,
		LedgerDB:  ledgerDB,
		CacheDB:   cacheDB,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	maintenance := scheduler.NewMaintenance(
		srv.RunRepo,
		srv.ScanCache,
		[]*database.DB{historyDB, ledgerDB, cacheDB},
		log,
	)
	if err := maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped with error")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	maintenance.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stratlab stopped")
}
