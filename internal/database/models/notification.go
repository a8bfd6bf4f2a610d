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

// NotificationModel handles database operations for the notification ledger.
type NotificationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewNotification creates a new notification model instance.
func NewNotification(db *bun.DB, logger *zap.Logger) *NotificationModel {
	return &NotificationModel{
		db:     db,
		logger: logger.Named("db_notification"),
	}
}

// Upsert writes the notification record for a pair. A second write for the
// same pair replaces sent_at and arrival_id rather than failing, so a
// re-notification after the dedup window keeps a single live row.
func (m *NotificationModel) Upsert(ctx context.Context, record *types.NotificationRecord) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(record).
			On("CONFLICT (participant_id, community_id) DO UPDATE").
			Set("sent_at = EXCLUDED.sent_at").
			Set("arrival_id = EXCLUDED.arrival_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert notification record: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Stored notification record",
		zap.Uint64("participantID", record.ParticipantID),
		zap.Uint64("communityID", record.CommunityID))

	return nil
}

// SentInWindow reports whether a notification record exists for the pair
// with sent_at inside the window.
func (m *NotificationModel) SentInWindow(
	ctx context.Context, participantID, communityID uint64, since time.Time,
) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := m.db.NewSelect().
			Model((*types.NotificationRecord)(nil)).
			Where("participant_id = ?", participantID).
			Where("community_id = ?", communityID).
			Where("sent_at >= ?", since).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check notification records: %w", err)
		}

		return exists, nil
	})
}

// PurgeOlderThan deletes notification records sent before the cutoff and
// returns the number of rows removed.
func (m *NotificationModel) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		res, err := m.db.NewDelete().
			Model((*types.NotificationRecord)(nil)).
			Where("sent_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to purge old notification records: %w", err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read purge result: %w", err)
		}

		return rows, nil
	})
}
