package watch

import (
	"context"
	"time"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// heartbeatInterval spaces liveness markers for watch-listed communities.
const heartbeatInterval = 5 * time.Minute

// HeartbeatCollector emits a synthetic liveness marker for communities on
// the watch list, at most once per interval. The markers are operational
// only; they are always synthetic and never survive the plausibility filter,
// but they land in the arrival log as proof the community was being polled.
type HeartbeatCollector struct {
	watchlist map[uint64]struct{}
	logger    *zap.Logger
}

// NewHeartbeatCollector creates a heartbeat collector for the given
// watch-listed community IDs.
func NewHeartbeatCollector(watchlist []uint64, logger *zap.Logger) *HeartbeatCollector {
	set := make(map[uint64]struct{}, len(watchlist))
	for _, id := range watchlist {
		set[id] = struct{}{}
	}

	return &HeartbeatCollector{
		watchlist: set,
		logger:    logger.Named("collector_heartbeat"),
	}
}

func (c *HeartbeatCollector) Name() string { return types.SourceHeartbeat }

func (c *HeartbeatCollector) Tier() Tier { return TierFallback }

func (c *HeartbeatCollector) Collect(_ context.Context, target *Target) ([]*types.Arrival, error) {
	if _, watched := c.watchlist[target.CommunityID]; !watched {
		return nil, nil
	}

	now := time.Now().UTC()
	state := target.State

	if state.LastHeartbeat.IsZero() {
		state.LastHeartbeat = now
		return nil, nil
	}

	if now.Sub(state.LastHeartbeat) < heartbeatInterval {
		return nil, nil
	}

	state.LastHeartbeat = now

	c.logger.Debug("Heartbeat marker for watch-listed community",
		zap.String("community", target.CommunityName))

	return []*types.Arrival{{
		Username:       "Monitoring Heartbeat",
		DisplayName:    "Monitoring Heartbeat",
		CommunityID:    target.CommunityID,
		CommunityName:  target.CommunityName,
		ObservedAt:     now,
		AccountAgeDays: utils.AgeUnknown,
		IsSynthetic:    true,
		SourceTag:      types.SourceHeartbeat,
		Evidence: map[string]any{
			"interval": heartbeatInterval.String(),
		},
	}}, nil
}
