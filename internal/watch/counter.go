package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

const (
	enrichmentChannelLimit = 5
	enrichmentMessageLimit = 20
	// enrichmentImmediateWindow accepts an author of unknown freshness if
	// their message is this recent.
	enrichmentImmediateWindow = time.Minute
)

// MemberCountCollector compares the cached approximate member count against
// the current value. A positive delta of any size yields exactly one event;
// the event is synthetic unless the enrichment scan finds a plausible real
// author to attach.
type MemberCountCollector struct {
	client platform.Client
	logger *zap.Logger
}

// NewMemberCountCollector creates a member count collector.
func NewMemberCountCollector(client platform.Client, logger *zap.Logger) *MemberCountCollector {
	return &MemberCountCollector{
		client: client,
		logger: logger.Named("collector_member_count"),
	}
}

func (c *MemberCountCollector) Name() string { return types.SourceMemberCount }

func (c *MemberCountCollector) Tier() Tier { return TierFallback }

func (c *MemberCountCollector) Collect(ctx context.Context, target *Target) ([]*types.Arrival, error) {
	guild, err := c.client.GuildWithCounts(ctx, discord.GuildID(target.CommunityID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch community counts: %w", err)
	}

	current := int(guild.ApproximateMembers)
	state := target.State

	if !state.MemberCountSeen {
		state.MemberCountSeen = true
		state.LastMemberCount = current

		return nil, nil
	}

	previous := state.LastMemberCount
	state.LastMemberCount = current

	delta := current - previous
	if delta <= 0 {
		return nil, nil
	}

	c.logger.Debug("Member count increased",
		zap.String("community", target.CommunityName),
		zap.Int("previous", previous),
		zap.Int("current", current))

	event := counterEvent(ctx, c.client, c.logger, target, types.SourceMemberCount, delta)

	return []*types.Arrival{event}, nil
}

// PresenceCollector tracks the approximate presence count the same way the
// member count collector tracks membership. A presence rise is weaker
// evidence, so its events carry their own source tag for the operator.
type PresenceCollector struct {
	client platform.Client
	logger *zap.Logger
}

// NewPresenceCollector creates a presence collector.
func NewPresenceCollector(client platform.Client, logger *zap.Logger) *PresenceCollector {
	return &PresenceCollector{
		client: client,
		logger: logger.Named("collector_presence"),
	}
}

func (c *PresenceCollector) Name() string { return types.SourcePresence }

func (c *PresenceCollector) Tier() Tier { return TierFallback }

func (c *PresenceCollector) Collect(ctx context.Context, target *Target) ([]*types.Arrival, error) {
	guild, err := c.client.GuildWithCounts(ctx, discord.GuildID(target.CommunityID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch community presences: %w", err)
	}

	current := int(guild.ApproximatePresences)
	state := target.State

	if !state.PresenceSeen {
		state.PresenceSeen = true
		state.LastPresenceCount = current

		return nil, nil
	}

	previous := state.LastPresenceCount
	state.LastPresenceCount = current

	delta := current - previous
	if delta <= 0 {
		return nil, nil
	}

	event := counterEvent(ctx, c.client, c.logger, target, types.SourcePresence, delta)

	return []*types.Arrival{event}, nil
}

// counterEvent builds the single event for a counter delta, attempting
// identity enrichment first and falling back to a synthetic placeholder.
func counterEvent(
	ctx context.Context,
	client platform.Client,
	logger *zap.Logger,
	target *Target,
	sourceTag string,
	delta int,
) *types.Arrival {
	now := time.Now().UTC()

	if enriched := scanForLikelyArrival(ctx, client, target, now); enriched != nil {
		enriched.SourceTag = sourceTag
		enriched.Evidence["counter_delta"] = delta
		enriched.Evidence["enriched"] = true

		logger.Debug("Enriched counter event with real identity",
			zap.String("community", target.CommunityName),
			zap.String("username", enriched.Username),
			zap.Int("delta", delta))

		return enriched
	}

	return &types.Arrival{
		Username:       fmt.Sprintf("New Member(s) Online (+%d)", delta),
		DisplayName:    fmt.Sprintf("New Member(s) Online (+%d)", delta),
		CommunityID:    target.CommunityID,
		CommunityName:  target.CommunityName,
		ObservedAt:     now,
		AccountAgeDays: utils.AgeUnknown,
		IsSynthetic:    true,
		SourceTag:      sourceTag,
		Evidence: map[string]any{
			"counter_delta": delta,
		},
	}
}

// scanForLikelyArrival looks for a very recent non-bot author in the
// channels most likely to carry first posts. Returns nil when no plausible
// candidate exists.
func scanForLikelyArrival(
	ctx context.Context, client platform.Client, target *Target, now time.Time,
) *types.Arrival {
	channels := prioritizeChannels(target.Channels, enrichmentChannelKeywords)
	if len(channels) > enrichmentChannelLimit {
		channels = channels[:enrichmentChannelLimit]
	}

	for _, channel := range channels {
		messages, err := client.RecentMessages(ctx, channel.ID, enrichmentMessageLimit)
		if err != nil {
			continue
		}

		for i := range messages {
			msg := &messages[i]

			if msg.Author.Bot || !msg.Author.ID.IsValid() {
				continue
			}

			age := now.Sub(msg.Timestamp.Time())
			if age >= recentActivityWindow {
				continue
			}

			accountAge := utils.AccountAgeDays(snowflake.ID(msg.Author.ID), now)
			if accountAge >= 0 && accountAge < enrichmentMaxAccountAgeDays {
				return arrivalFromMessage(target, msg, types.SourceMemberCount, now)
			}

			if age < enrichmentImmediateWindow {
				return arrivalFromMessage(target, msg, types.SourceMemberCount, now)
			}
		}
	}

	return nil
}
