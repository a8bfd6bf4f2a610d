package maintenance

import (
	"context"
	"time"

	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/internal/watch"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

const (
	// refreshInterval spaces registry refreshes.
	refreshInterval = time.Hour
	// cleanupInterval spaces retention purges.
	cleanupInterval = 24 * time.Hour
)

// Worker handles periodic maintenance: hourly registry refresh and daily
// retention cleanup of old arrival and ledger rows.
type Worker struct {
	db          database.Client
	discovery   *watch.GuildDiscovery
	retention   time.Duration
	logger      *zap.Logger
	lastCleanup time.Time
}

// New creates a maintenance worker.
func New(
	db database.Client, discovery *watch.GuildDiscovery, monitoring *config.Monitoring, logger *zap.Logger,
) *Worker {
	return &Worker{
		db:        db,
		discovery: discovery,
		retention: time.Duration(monitoring.RetentionDays) * 24 * time.Hour,
		logger:    logger.Named("maintenance"),
	}
}

// Start begins the maintenance loop and blocks until the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Maintenance worker started",
		zap.Duration("refreshInterval", refreshInterval),
		zap.Duration("retention", w.retention))

	// First cleanup runs a full interval after startup.
	w.lastCleanup = time.Now().UTC()

	for {
		if utils.ContextGuardWithLog(ctx, w.logger, "Context cancelled, stopping maintenance worker") {
			return
		}

		w.refreshRegistry(ctx)

		if time.Since(w.lastCleanup) >= cleanupInterval {
			w.cleanup(ctx)
			w.lastCleanup = time.Now().UTC()
		}

		if utils.ContextSleep(ctx, refreshInterval) == utils.SleepCancelled {
			w.logger.Info("Context cancelled, stopping maintenance worker")
			return
		}
	}
}

// refreshRegistry syncs the community registry with the reachable set.
func (w *Worker) refreshRegistry(ctx context.Context) {
	count, err := w.discovery.Refresh(ctx)
	if err != nil {
		w.logger.Error("Registry refresh failed", zap.Error(err))
		return
	}

	w.logger.Debug("Registry refresh completed", zap.Int("communities", count))
}

// cleanup purges rows past the retention window. The notification ledger
// keeps the same retention as the arrival log; both far exceed the dedup
// window, so purging never re-opens a suppressed pair.
func (w *Worker) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.retention)

	arrivals, err := w.db.Model().Arrival().PurgeOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("Failed to purge old arrivals", zap.Error(err))
	}

	records, err := w.db.Model().Notification().PurgeOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("Failed to purge old notification records", zap.Error(err))
	}

	w.logger.Info("Retention cleanup completed",
		zap.Time("cutoff", cutoff),
		zap.Int64("arrivalsPurged", arrivals),
		zap.Int64("recordsPurged", records))
}
