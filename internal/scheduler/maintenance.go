// Package scheduler runs periodic maintenance: pruning old runs, expiring
// the scan cache, and checkpointing the SQLite WAL files.
package scheduler

import (
	"time"

	"github.com/aristath/stratlab/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// runRetention is how long completed runs stay in the ledger before the
// nightly job prunes them
const runRetention = 90 * 24 * time.Hour

// RunPruner deletes old runs. Implemented by the ledger run repository.
type RunPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CacheExpirer removes stale cache entries. Implemented by the scan cache.
type CacheExpirer interface {
	Expire() (int64, error)
}

// Maintenance owns the cron scheduler and the nightly job
type Maintenance struct {
	cron      *cron.Cron
	runs      RunPruner
	cache     CacheExpirer
	databases []*database.DB
	log       zerolog.Logger
}

// NewMaintenance creates the maintenance scheduler
func NewMaintenance(runs RunPruner, cache CacheExpirer, databases []*database.DB, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		cron:      cron.New(),
		runs:      runs,
		cache:     cache,
		databases: databases,
		log:       log.With().Str("component", "maintenance").Logger(),
	}
}

// Start schedules the nightly job (03:30 local, after any overnight data
// refresh the loading collaborator performs) and starts the cron loop.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("30 3 * * *", m.RunOnce); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running job to finish
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info().Msg("Maintenance scheduler stopped")
}

// RunOnce executes one maintenance pass. Failures are logged per step; a
// failing step never blocks the remaining ones.
func (m *Maintenance) RunOnce() {
	cutoff := time.Now().Add(-runRetention)
	if pruned, err := m.runs.DeleteOlderThan(cutoff); err != nil {
		m.log.Error().Err(err).Msg("Failed to prune old runs")
	} else if pruned > 0 {
		m.log.Info().Int64("runs", pruned).Msg("Pruned old runs")
	}

	if expired, err := m.cache.Expire(); err != nil {
		m.log.Error().Err(err).Msg("Failed to expire scan cache")
	} else if expired > 0 {
		m.log.Info().Int64("entries", expired).Msg("Expired scan cache entries")
	}

	for _, db := range m.databases {
		if err := db.CheckpointWAL(); err != nil {
			m.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}
}
