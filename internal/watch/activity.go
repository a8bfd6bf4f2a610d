package watch

import (
	"context"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"go.uber.org/zap"
)

const activityMessageLimit = 20

// ActivityCollector walks recent messages across a bounded set of channels
// looking for join markers and first-post activity. First qualifying message
// wins; the real author becomes the event identity.
type ActivityCollector struct {
	client platform.Client
	logger *zap.Logger
}

// NewActivityCollector creates a channel activity collector.
func NewActivityCollector(client platform.Client, logger *zap.Logger) *ActivityCollector {
	return &ActivityCollector{
		client: client,
		logger: logger.Named("collector_activity"),
	}
}

func (c *ActivityCollector) Name() string { return types.SourceActivityScan }

func (c *ActivityCollector) Tier() Tier { return TierContent }

func (c *ActivityCollector) Collect(ctx context.Context, target *Target) ([]*types.Arrival, error) {
	channels := prioritizeChannels(target.Channels, priorityChannelKeywords)
	if len(channels) > maxScanChannels {
		channels = channels[:maxScanChannels]
	}

	now := time.Now().UTC()

	for _, channel := range channels {
		messages, err := c.client.RecentMessages(ctx, channel.ID, activityMessageLimit)
		if err != nil {
			c.logger.Debug("Skipping unreadable channel",
				zap.String("channel", channel.Name),
				zap.Error(err))

			continue
		}

		for i := range messages {
			msg := &messages[i]

			if isJoinMarker(msg, now) {
				return []*types.Arrival{c.eventFrom(target, msg, channel, now)}, nil
			}

			if isNewUserActivity(msg, now) {
				return []*types.Arrival{c.eventFrom(target, msg, channel, now)}, nil
			}
		}
	}

	return nil, nil
}

func (c *ActivityCollector) eventFrom(
	target *Target, msg *discord.Message, channel discord.Channel, now time.Time,
) *types.Arrival {
	event := arrivalFromMessage(target, msg, types.SourceActivityScan, now)
	event.Evidence["channel_name"] = channel.Name

	c.logger.Debug("Activity scan matched",
		zap.String("community", target.CommunityName),
		zap.String("channel", channel.Name),
		zap.String("username", event.Username))

	return event
}
