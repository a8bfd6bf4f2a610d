package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/doorbell/internal/database/dbretry"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ArrivalModel handles database operations for the append-only arrival log.
type ArrivalModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewArrival creates a new arrival model instance.
func NewArrival(db *bun.DB, logger *zap.Logger) *ArrivalModel {
	return &ArrivalModel{
		db:     db,
		logger: logger.Named("db_arrival"),
	}
}

// Insert stores an arrival candidate and returns its row ID.
func (m *ArrivalModel) Insert(ctx context.Context, arrival *types.Arrival) (int64, error) {
	id, err := dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		_, err := m.db.NewInsert().Model(arrival).Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to insert arrival: %w", err)
		}

		return arrival.ID, nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Debug("Recorded arrival",
		zap.Int64("arrivalID", id),
		zap.Uint64("participantID", arrival.ParticipantID),
		zap.Uint64("communityID", arrival.CommunityID),
		zap.String("source", arrival.SourceTag))

	return id, nil
}

// Get retrieves a single arrival row by ID.
func (m *ArrivalModel) Get(ctx context.Context, arrivalID int64) (*types.Arrival, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Arrival, error) {
		arrival := new(types.Arrival)

		err := m.db.NewSelect().
			Model(arrival).
			Where("id = ?", arrivalID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get arrival %d: %w", arrivalID, err)
		}

		return arrival, nil
	})
}

// SetNotified flips the notified flag on an arrival row.
func (m *ArrivalModel) SetNotified(ctx context.Context, arrivalID int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Arrival)(nil)).
			Set("notified = ?", true).
			Where("id = ?", arrivalID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set notified flag on arrival %d: %w", arrivalID, err)
		}

		return nil
	})
}

// HasNotifiedInWindow reports whether a notified arrival row exists for the
// pair inside the window. This is the defensive fallback behind the
// notification records table; partial legacy writes may have flipped the flag
// without creating a record.
func (m *ArrivalModel) HasNotifiedInWindow(
	ctx context.Context, participantID, communityID uint64, since time.Time,
) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.Arrival)(nil)).
			Where("participant_id = ?", participantID).
			Where("community_id = ?", communityID).
			Where("notified = ?", true).
			Where("observed_at >= ?", since).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check notified arrivals: %w", err)
		}

		return exists, nil
	})
}

// GetRecent returns arrivals observed after the given time, newest first.
func (m *ArrivalModel) GetRecent(ctx context.Context, since time.Time, limit int) ([]*types.Arrival, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Arrival, error) {
		var arrivals []*types.Arrival

		err := m.db.NewSelect().
			Model(&arrivals).
			Where("observed_at >= ?", since).
			Order("observed_at DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent arrivals: %w", err)
		}

		return arrivals, nil
	})
}

// CountSince returns the number of arrival rows observed after the given time.
func (m *ArrivalModel) CountSince(ctx context.Context, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Arrival)(nil)).
			Where("observed_at >= ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count arrivals: %w", err)
		}

		return count, nil
	})
}

// PurgeOlderThan deletes arrival rows observed before the cutoff and returns
// the number of rows removed.
func (m *ArrivalModel) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		res, err := m.db.NewDelete().
			Model((*types.Arrival)(nil)).
			Where("observed_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to purge old arrivals: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read purge result: %w", err)
		}

		return rows, nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		m.logger.Debug("Purged old arrivals", zap.Int64("deleted", deleted))
	}

	return deleted, nil
}
