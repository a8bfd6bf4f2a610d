package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"go.uber.org/zap"
)

// GuildDiscovery enumerates the communities reachable by the ordinary
// credential and keeps the registry table in sync with what it sees.
type GuildDiscovery struct {
	client platform.Client
	db     database.Client
	logger *zap.Logger
}

// NewGuildDiscovery creates a discovery instance.
func NewGuildDiscovery(client platform.Client, db database.Client, logger *zap.Logger) *GuildDiscovery {
	return &GuildDiscovery{
		client: client,
		db:     db,
		logger: logger.Named("discovery"),
	}
}

// Communities lists the communities currently reachable by the credential
// without touching the registry.
func (d *GuildDiscovery) Communities(ctx context.Context) ([]discord.Guild, error) {
	guilds, err := d.client.CurrentGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}

	return guilds, nil
}

// Refresh syncs the registry with the reachable community set: reachable
// communities are upserted and previously active rows that vanished are
// deactivated. Returns the number of reachable communities.
func (d *GuildDiscovery) Refresh(ctx context.Context) (int, error) {
	guilds, err := d.Communities(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	reachable := make(map[uint64]struct{}, len(guilds))

	for _, guild := range guilds {
		id := uint64(guild.ID)
		reachable[id] = struct{}{}

		// The guild listing never carries approximate counts; only the
		// per-community fetch does. A failed count fetch still refreshes
		// the registry row.
		memberCount := 0

		if counts, err := d.client.GuildWithCounts(ctx, guild.ID); err == nil {
			memberCount = int(counts.ApproximateMembers)
		} else {
			d.logger.Debug("Failed to fetch community counts",
				zap.Uint64("communityID", id),
				zap.Error(err))
		}

		community := &types.Community{
			ID:          id,
			Name:        guild.Name,
			MemberCount: memberCount,
			FirstSeen:   now,
			LastUpdated: now,
			IsActive:    true,
		}

		if err := d.db.Model().Community().Upsert(ctx, community); err != nil {
			d.logger.Error("Failed to upsert community",
				zap.Uint64("communityID", id),
				zap.Error(err))
		}
	}

	active, err := d.db.Model().Community().GetActive(ctx)
	if err != nil {
		return len(guilds), fmt.Errorf("failed to load registry: %w", err)
	}

	for _, community := range active {
		if _, ok := reachable[community.ID]; ok {
			continue
		}

		if err := d.db.Model().Community().Deactivate(ctx, community.ID); err != nil {
			d.logger.Error("Failed to deactivate community",
				zap.Uint64("communityID", community.ID),
				zap.Error(err))

			continue
		}

		d.logger.Info("Community no longer reachable",
			zap.Uint64("communityID", community.ID),
			zap.String("name", community.Name))
	}

	d.logger.Debug("Registry refreshed", zap.Int("reachable", len(guilds)))

	return len(guilds), nil
}
