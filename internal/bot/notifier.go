package bot

import (
	"context"
	"fmt"

	botlib "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/doorbell/internal/database/types"
	"go.uber.org/zap"
)

// maxMessageLength is the platform's content limit for a single message.
const maxMessageLength = 2000

// DMNotifier delivers notifications to the single operator over direct
// messages. It is the default delivery channel for the queue and also
// carries operational messages (startup, errors).
type DMNotifier struct {
	client     botlib.Client
	operatorID snowflake.ID
	logger     *zap.Logger
}

// NewDMNotifier creates an operator DM notifier.
func NewDMNotifier(client botlib.Client, operatorID uint64, logger *zap.Logger) *DMNotifier {
	return &DMNotifier{
		client:     client,
		operatorID: snowflake.ID(operatorID),
		logger:     logger.Named("dm_notifier"),
	}
}

// Deliver sends one operator message. A nil event means an operational
// notice; either way the content is already rendered. A permission error
// (operator blocked DMs) is terminal for this item only.
func (n *DMNotifier) Deliver(ctx context.Context, _ *types.Arrival, content string) error {
	return n.send(ctx, content)
}

// StartupNotice renders the monitoring-started message. Operational messages
// go through the notification queue so they share its delivery pacing.
func StartupNotice(communityCount int) string {
	return fmt.Sprintf(
		"Arrival monitoring started.\nWatching %d communities for new members.",
		communityCount)
}

// ErrorNotice renders a pipeline error report for the operator.
func ErrorNotice(errContext string, cause error) string {
	content := fmt.Sprintf("Monitoring error in %s:\n```\n%v\n```", errContext, cause)
	if len(content) > maxMessageLength {
		content = content[:maxMessageLength-4] + "```"
	}

	return content
}

// send creates the DM channel and pushes the content.
func (n *DMNotifier) send(ctx context.Context, content string) error {
	channel, err := n.client.Rest().CreateDMChannel(n.operatorID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open operator DM channel: %w", err)
	}

	if len(content) > maxMessageLength {
		content = content[:maxMessageLength]
	}

	_, err = n.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetContent(content).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send operator DM: %w", err)
	}

	n.logger.Debug("Operator DM sent", zap.Int("length", len(content)))

	return nil
}
