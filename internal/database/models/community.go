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

// CommunityModel handles database operations for the community registry.
type CommunityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCommunity creates a new community model instance.
func NewCommunity(db *bun.DB, logger *zap.Logger) *CommunityModel {
	return &CommunityModel{
		db:     db,
		logger: logger.Named("db_community"),
	}
}

// Upsert creates or refreshes a community registry row. An existing row keeps
// its first_seen value; everything else is refreshed and the row is
// reactivated.
func (m *CommunityModel) Upsert(ctx context.Context, community *types.Community) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(community).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("member_count = EXCLUDED.member_count").
			Set("last_updated = EXCLUDED.last_updated").
			Set("is_active = ?", true).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert community %d: %w", community.ID, err)
		}

		return nil
	})
}

// Deactivate marks a community as no longer reachable.
func (m *CommunityModel) Deactivate(ctx context.Context, communityID uint64) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Community)(nil)).
			Set("is_active = ?", false).
			Set("last_updated = ?", time.Now().UTC()).
			Where("id = ?", communityID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate community %d: %w", communityID, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Deactivated community", zap.Uint64("communityID", communityID))

	return nil
}

// GetActive returns all active community rows ordered by name.
func (m *CommunityModel) GetActive(ctx context.Context) ([]*types.Community, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Community, error) {
		var communities []*types.Community

		err := m.db.NewSelect().
			Model(&communities).
			Where("is_active = ?", true).
			Order("name").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active communities: %w", err)
		}

		return communities, nil
	})
}

// CountActive returns the number of active community rows.
func (m *CommunityModel) CountActive(ctx context.Context) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.Community)(nil)).
			Where("is_active = ?", true).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count active communities: %w", err)
		}

		return count, nil
	})
}
