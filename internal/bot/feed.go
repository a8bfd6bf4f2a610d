package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo"
	botlib "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/database/service"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// handlerTimeout bounds the storage work done for a single gateway event.
const handlerTimeout = 30 * time.Second

// Enqueuer hands validated candidates to the delivery pipeline.
type Enqueuer interface {
	Enqueue(arrivalID int64, event *types.Arrival) bool
}

// Feed is the privileged event feed: a gateway connection that receives
// member join events directly for communities where the bot holds
// recognized membership. Events flow through the same record, dedup, and
// queue path as the heuristic collectors.
type Feed struct {
	client     botlib.Client
	db         database.Client
	gate       *service.GateService
	queue      Enqueuer
	monitoring *config.Monitoring
	logger     *zap.Logger

	ctx context.Context
}

// NewFeed creates the gateway feed. The queue is attached with SetQueue
// before Start; the notifier that feeds the queue shares this client.
func NewFeed(
	token string,
	db database.Client,
	gate *service.GateService,
	monitoring *config.Monitoring,
	logger *zap.Logger,
) (*Feed, error) {
	f := &Feed{
		db:         db,
		gate:       gate,
		monitoring: monitoring,
		logger:     logger.Named("feed"),
	}

	client, err := disgo.New(token,
		botlib.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
			),
		),
		botlib.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds),
		),
		botlib.WithEventListeners(&events.ListenerAdapter{
			OnGuildMemberJoin: f.onMemberJoin,
			OnGuildJoin:       f.onGuildJoin,
			OnGuildLeave:      f.onGuildLeave,
		}),
	)
	if err != nil {
		return nil, err
	}

	f.client = client

	return f, nil
}

// Client exposes the underlying gateway client, shared with the operator
// notifier.
func (f *Feed) Client() botlib.Client {
	return f.client
}

// SetQueue attaches the delivery pipeline. Must be called before Start.
func (f *Feed) SetQueue(queue Enqueuer) {
	f.queue = queue
}

// Start opens the gateway connection. Events arrive until Close.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx = ctx

	if err := f.client.OpenGateway(ctx); err != nil {
		return err
	}

	f.logger.Info("Privileged event feed connected")

	return nil
}

// Close shuts down the gateway connection.
func (f *Feed) Close(ctx context.Context) {
	f.client.Close(ctx)
	f.logger.Info("Privileged event feed closed")
}

// onMemberJoin converts a gateway join event into an arrival candidate and
// runs it through the shared pipeline. Join events always carry a real
// identity, so the candidate is never synthetic.
func (f *Feed) onMemberJoin(event *events.GuildMemberJoin) {
	user := event.Member.User
	now := time.Now().UTC()

	communityName := event.GuildID.String()
	if guild, ok := f.client.Caches().Guild(event.GuildID); ok {
		communityName = guild.Name
	}

	arrival := &types.Arrival{
		ParticipantID:    uint64(user.ID),
		Username:         user.Username,
		DisplayName:      user.EffectiveName(),
		CommunityID:      uint64(event.GuildID),
		CommunityName:    communityName,
		ObservedAt:       now,
		AccountCreatedAt: utils.AccountCreatedAt(user.ID),
		AccountAgeDays:   utils.AccountAgeDays(user.ID, now),
		IsBot:            user.Bot,
		IsSystem:         user.System,
		IsVerified:       true,
		SourceTag:        types.SourceMemberEvent,
		Evidence: map[string]any{
			"joined_at": event.Member.JoinedAt.Format(time.RFC3339),
		},
	}

	f.logger.Info("Member join event received",
		zap.String("username", user.Username),
		zap.String("community", communityName))

	ctx, cancel := context.WithTimeout(f.ctx, handlerTimeout)
	defer cancel()

	f.process(ctx, arrival)
}

// process mirrors the poll worker's record, dedup, enqueue sequence.
func (f *Feed) process(ctx context.Context, event *types.Arrival) {
	arrivalID, err := f.gate.RecordArrival(ctx, event)
	if err != nil {
		f.logger.Error("Failed to record arrival from event feed",
			zap.String("community", event.CommunityName),
			zap.Error(err))

		return
	}

	window := time.Duration(f.monitoring.DedupWindowHours) * time.Hour

	notified, err := f.gate.IsAlreadyNotified(ctx, event.ParticipantID, event.CommunityID, window)
	if err != nil {
		f.logger.Error("Failed to check notification state",
			zap.Uint64("participantID", event.ParticipantID),
			zap.Error(err))

		return
	}

	if notified {
		f.logger.Debug("Already notified for pair inside window, skipping",
			zap.Uint64("participantID", event.ParticipantID),
			zap.String("community", event.CommunityName))

		return
	}

	if !f.queue.Enqueue(arrivalID, event) {
		f.logger.Warn("Notification queue full, dropping event",
			zap.String("community", event.CommunityName))
	}
}

// onGuildJoin registers a newly reachable community.
func (f *Feed) onGuildJoin(event *events.GuildJoin) {
	ctx, cancel := context.WithTimeout(f.ctx, handlerTimeout)
	defer cancel()

	now := time.Now().UTC()
	community := &types.Community{
		ID:          uint64(event.Guild.ID),
		Name:        event.Guild.Name,
		FirstSeen:   now,
		LastUpdated: now,
		IsActive:    true,
	}

	if err := f.db.Model().Community().Upsert(ctx, community); err != nil {
		f.logger.Error("Failed to register community",
			zap.Uint64("communityID", community.ID),
			zap.Error(err))

		return
	}

	f.logger.Info("Joined community",
		zap.Uint64("communityID", community.ID),
		zap.String("name", community.Name))
}

// onGuildLeave deactivates a community the bot can no longer reach.
func (f *Feed) onGuildLeave(event *events.GuildLeave) {
	ctx, cancel := context.WithTimeout(f.ctx, handlerTimeout)
	defer cancel()

	communityID := uint64(event.GuildID)

	if err := f.db.Model().Community().Deactivate(ctx, communityID); err != nil {
		f.logger.Error("Failed to deactivate community",
			zap.Uint64("communityID", communityID),
			zap.Error(err))

		return
	}

	f.logger.Info("Left community", zap.Uint64("communityID", communityID))
}
