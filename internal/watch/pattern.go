package watch

import (
	"context"
	"time"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"go.uber.org/zap"
)

const patternMessageLimit = 30

// PatternCollector analyzes messages in priority channels for introduction
// phrasing. Unlike the activity scan it only considers channels likely to
// host first posts and applies the lexical intro patterns.
type PatternCollector struct {
	client platform.Client
	logger *zap.Logger
}

// NewPatternCollector creates a message pattern collector.
func NewPatternCollector(client platform.Client, logger *zap.Logger) *PatternCollector {
	return &PatternCollector{
		client: client,
		logger: logger.Named("collector_pattern"),
	}
}

func (c *PatternCollector) Name() string { return types.SourcePatternScan }

func (c *PatternCollector) Tier() Tier { return TierContent }

func (c *PatternCollector) Collect(ctx context.Context, target *Target) ([]*types.Arrival, error) {
	now := time.Now().UTC()

	for _, channel := range priorityChannels(target.Channels) {
		messages, err := c.client.RecentMessages(ctx, channel.ID, patternMessageLimit)
		if err != nil {
			c.logger.Debug("Skipping unreadable channel",
				zap.String("channel", channel.Name),
				zap.Error(err))

			continue
		}

		for i := range messages {
			msg := &messages[i]

			if !matchesIntroPattern(msg) {
				continue
			}

			event := arrivalFromMessage(target, msg, types.SourcePatternScan, now)
			event.Evidence["channel_name"] = channel.Name

			c.logger.Debug("Intro pattern matched",
				zap.String("community", target.CommunityName),
				zap.String("channel", channel.Name),
				zap.String("username", event.Username))

			return []*types.Arrival{event}, nil
		}
	}

	return nil, nil
}
