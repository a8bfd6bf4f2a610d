package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Community)(nil),
			(*types.Arrival)(nil),
			(*types.NotificationRecord)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		indexes := []struct {
			name    string
			model   any
			columns []string
		}{
			{"idx_arrivals_participant", (*types.Arrival)(nil), []string{"participant_id"}},
			{"idx_arrivals_community", (*types.Arrival)(nil), []string{"community_id"}},
			{"idx_arrivals_observed_at", (*types.Arrival)(nil), []string{"observed_at"}},
			{"idx_notification_records_sent_at", (*types.NotificationRecord)(nil), []string{"sent_at"}},
			{"idx_communities_active", (*types.Community)(nil), []string{"is_active"}},
		}

		for _, idx := range indexes {
			if _, err := db.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.NotificationRecord)(nil),
			(*types.Arrival)(nil),
			(*types.Community)(nil),
		}

		for _, model := range models {
			if _, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
