package watch

import (
	"context"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"go.uber.org/zap"
)

const deepScanMessageLimit = 10

// DeepScanCollector looks for any very recent activity across the channel
// set, then re-applies the arrival qualifiers to the freshest message found.
// It catches arrivals whose first post lands in an unexpected channel.
type DeepScanCollector struct {
	client platform.Client
	logger *zap.Logger
}

// NewDeepScanCollector creates a deep scan collector.
func NewDeepScanCollector(client platform.Client, logger *zap.Logger) *DeepScanCollector {
	return &DeepScanCollector{
		client: client,
		logger: logger.Named("collector_deepscan"),
	}
}

func (c *DeepScanCollector) Name() string { return types.SourceDeepScan }

func (c *DeepScanCollector) Tier() Tier { return TierContent }

func (c *DeepScanCollector) Collect(ctx context.Context, target *Target) ([]*types.Arrival, error) {
	channels := prioritizeChannels(target.Channels, priorityChannelKeywords)
	if len(channels) > maxScanChannels {
		channels = channels[:maxScanChannels]
	}

	now := time.Now().UTC()

	var (
		freshest        *discord.Message
		freshestChannel discord.Channel
	)

	for _, channel := range channels {
		messages, err := c.client.RecentMessages(ctx, channel.ID, deepScanMessageLimit)
		if err != nil {
			continue
		}

		for i := range messages {
			msg := &messages[i]

			age := now.Sub(msg.Timestamp.Time())
			if age >= recentActivityWindow {
				continue
			}

			if freshest == nil || msg.Timestamp.Time().After(freshest.Timestamp.Time()) {
				freshest = msg
				freshestChannel = channel
			}
		}
	}

	if freshest == nil || !couldBeArrival(freshest, now) {
		return nil, nil
	}

	event := arrivalFromMessage(target, freshest, types.SourceDeepScan, now)
	event.Evidence["channel_name"] = freshestChannel.Name

	c.logger.Debug("Deep scan matched",
		zap.String("community", target.CommunityName),
		zap.String("channel", freshestChannel.Name),
		zap.String("username", event.Username))

	return []*types.Arrival{event}, nil
}
