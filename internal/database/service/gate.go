package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/doorbell/internal/database/dbretry"
	"github.com/robalyx/doorbell/internal/database/models"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GateService implements the dedup gate over the arrival log and the
// notification ledger. It is the only place that decides whether a detected
// pair has already been reported inside the dedup window.
type GateService struct {
	db            *bun.DB
	arrivals      *models.ArrivalModel
	notifications *models.NotificationModel
	logger        *zap.Logger
}

// NewGate creates a new gate service instance.
func NewGate(
	db *bun.DB, arrivals *models.ArrivalModel, notifications *models.NotificationModel, logger *zap.Logger,
) *GateService {
	return &GateService{
		db:            db,
		arrivals:      arrivals,
		notifications: notifications,
		logger:        logger.Named("gate"),
	}
}

// RecordArrival durably stores an arrival candidate before any filtering or
// dedup decision runs, so the log always outlives the notification decision.
// Returns the arrival row ID.
func (s *GateService) RecordArrival(ctx context.Context, arrival *types.Arrival) (int64, error) {
	if arrival.ObservedAt.IsZero() {
		arrival.ObservedAt = time.Now().UTC()
	}

	return s.arrivals.Insert(ctx, arrival)
}

// IsAlreadyNotified reports whether the pair was already notified inside the
// window. The notification ledger is authoritative; the arrival log's
// notified flag is checked as a fallback against partial legacy writes.
// Short-circuits on the first positive answer.
func (s *GateService) IsAlreadyNotified(
	ctx context.Context, participantID, communityID uint64, window time.Duration,
) (bool, error) {
	since := time.Now().UTC().Add(-window)

	sent, err := s.notifications.SentInWindow(ctx, participantID, communityID, since)
	if err != nil {
		return false, err
	}

	if sent {
		return true, nil
	}

	return s.arrivals.HasNotifiedInWindow(ctx, participantID, communityID, since)
}

// MarkNotified flips the arrival's notified flag and upserts the notification
// record in a single transaction. Callers must only invoke this after the
// delivery channel confirmed success.
func (s *GateService) MarkNotified(ctx context.Context, arrivalID int64) error {
	err := dbretry.Transaction(ctx, s.db, func(ctx context.Context, tx bun.Tx) error {
		arrival := new(types.Arrival)

		err := tx.NewSelect().
			Model(arrival).
			Where("id = ?", arrivalID).
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to load arrival %d: %w", arrivalID, err)
		}

		_, err = tx.NewUpdate().
			Model((*types.Arrival)(nil)).
			Set("notified = ?", true).
			Where("id = ?", arrivalID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to flag arrival %d: %w", arrivalID, err)
		}

		record := &types.NotificationRecord{
			ParticipantID: arrival.ParticipantID,
			CommunityID:   arrival.CommunityID,
			SentAt:        time.Now().UTC(),
			ArrivalID:     arrivalID,
		}

		_, err = tx.NewInsert().
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

	s.logger.Debug("Marked arrival notified", zap.Int64("arrivalID", arrivalID))

	return nil
}
