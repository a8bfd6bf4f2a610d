package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database/service"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/platform"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// errorCooldown spaces retries after a failed poll cycle.
const errorCooldown = 30 * time.Second

// Enqueuer hands validated candidates to the delivery pipeline. Enqueue
// reports false when the queue is full and the event was dropped.
type Enqueuer interface {
	Enqueue(arrivalID int64, event *types.Arrival) bool
}

// Worker runs the heuristic poll loop: every cycle it walks the reachable
// communities, runs the aggregator, records every candidate, and enqueues
// the ones the dedup gate lets through. Collector state is owned by this
// loop alone.
type Worker struct {
	client     platform.Client
	aggregator *Aggregator
	gate       *service.GateService
	queue      Enqueuer
	state      *State
	monitoring *config.Monitoring
	excluded   map[uint64]struct{}
	logger     *zap.Logger
}

// NewWorker creates a poll worker.
func NewWorker(
	client platform.Client,
	aggregator *Aggregator,
	gate *service.GateService,
	queue Enqueuer,
	monitoring *config.Monitoring,
	logger *zap.Logger,
) *Worker {
	excluded := make(map[uint64]struct{}, len(monitoring.ExcludedCommunities))
	for _, id := range monitoring.ExcludedCommunities {
		excluded[id] = struct{}{}
	}

	return &Worker{
		client:     client,
		aggregator: aggregator,
		gate:       gate,
		queue:      queue,
		state:      NewState(),
		monitoring: monitoring,
		excluded:   excluded,
		logger:     logger.Named("poll_worker"),
	}
}

// Start begins the poll loop and blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	interval := time.Duration(w.monitoring.PollInterval) * time.Second

	w.logger.Info("Poll worker started",
		zap.Duration("interval", interval),
		zap.Int("maxCommunities", w.monitoring.MaxCommunities))

	for {
		if utils.ContextGuardWithLog(ctx, w.logger, "Context cancelled, stopping poll worker") {
			return
		}

		if err := w.cycle(ctx); err != nil {
			w.logger.Error("Poll cycle failed", zap.Error(err))

			if !utils.ErrorSleep(ctx, errorCooldown, w.logger, "poll worker") {
				return
			}

			continue
		}

		if utils.ContextSleep(ctx, interval) == utils.SleepCancelled {
			w.logger.Info("Context cancelled, stopping poll worker")
			return
		}
	}
}

// cycle polls every reachable, non-excluded community once.
func (w *Worker) cycle(ctx context.Context) error {
	guilds, err := w.client.CurrentGuilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list communities: %w", err)
	}

	if len(guilds) == 0 {
		w.logger.Warn("No communities reachable this cycle")
		return nil
	}

	start := time.Now()
	polled := 0
	detections := 0
	seen := make(map[uint64]struct{}, len(guilds))

	for _, guild := range guilds {
		if utils.ContextGuard(ctx) {
			return ctx.Err()
		}

		seen[uint64(guild.ID)] = struct{}{}

		if _, skip := w.excluded[uint64(guild.ID)]; skip {
			continue
		}

		if w.monitoring.MaxCommunities > 0 && polled >= w.monitoring.MaxCommunities {
			continue
		}

		polled++
		detections += w.pollCommunity(ctx, guild)
	}

	// Counter caches for communities the credential lost access to would
	// otherwise produce a bogus delta if access ever returns.
	w.state.RetainOnly(seen)

	if detections > 0 {
		w.logger.Info("Poll cycle completed",
			zap.Int("communities", polled),
			zap.Int("detections", detections),
			zap.Duration("took", time.Since(start)))
	}

	return nil
}

// pollCommunity runs one detection cycle for a single community and pushes
// the surviving candidates into the delivery pipeline. Returns the number of
// events that reached the queue.
func (w *Worker) pollCommunity(ctx context.Context, guild discord.Guild) int {
	communityID := uint64(guild.ID)

	channels, err := w.client.Channels(ctx, guild.ID)
	if err != nil {
		// Counter collectors still work without a channel listing.
		w.logger.Debug("Failed to list channels",
			zap.String("community", guild.Name),
			zap.Error(err))
	}

	target := &Target{
		CommunityID:   communityID,
		CommunityName: guild.Name,
		Channels:      channels,
		State:         w.state.Community(communityID),
	}

	queued := 0

	for _, event := range w.aggregator.Collect(ctx, target) {
		if w.process(ctx, event) {
			queued++
		}
	}

	return queued
}

// process records a candidate, consults the dedup gate, and enqueues it.
// Storage failure drops the event for this cycle; a later detection retries
// naturally.
func (w *Worker) process(ctx context.Context, event *types.Arrival) bool {
	arrivalID, err := w.gate.RecordArrival(ctx, event)
	if err != nil {
		w.logger.Error("Failed to record arrival, dropping for this cycle",
			zap.String("community", event.CommunityName),
			zap.String("source", event.SourceTag),
			zap.Error(err))

		return false
	}

	window := time.Duration(w.monitoring.DedupWindowHours) * time.Hour

	notified, err := w.gate.IsAlreadyNotified(ctx, event.ParticipantID, event.CommunityID, window)
	if err != nil {
		w.logger.Error("Failed to check notification state, dropping for this cycle",
			zap.Uint64("participantID", event.ParticipantID),
			zap.Error(err))

		return false
	}

	if notified {
		w.logger.Debug("Already notified for pair inside window, skipping",
			zap.Uint64("participantID", event.ParticipantID),
			zap.String("community", event.CommunityName))

		return false
	}

	if !w.queue.Enqueue(arrivalID, event) {
		w.logger.Warn("Notification queue full, dropping event",
			zap.String("community", event.CommunityName))

		return false
	}

	return true
}
