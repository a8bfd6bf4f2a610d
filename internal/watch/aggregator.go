package watch

import (
	"context"
	"time"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// defaultCollectorTimeout bounds a single collector call so one slow channel
// scan cannot stall the whole cycle for a community.
const defaultCollectorTimeout = 20 * time.Second

// Aggregator runs collectors in priority tiers per community per cycle.
// Content-tier collectors run concurrently; if their union is non-empty the
// fallback tier is skipped entirely, since counter-based evidence would only
// add non-identifying noise on top of a real identity.
type Aggregator struct {
	content  []Collector
	fallback []Collector
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAggregator creates an aggregator over the given collectors, splitting
// them by tier.
func NewAggregator(collectors []Collector, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = defaultCollectorTimeout
	}

	a := &Aggregator{
		timeout: timeout,
		logger:  logger.Named("aggregator"),
	}

	for _, c := range collectors {
		if c.Tier() == TierContent {
			a.content = append(a.content, c)
		} else {
			a.fallback = append(a.fallback, c)
		}
	}

	return a
}

// Collect runs one detection cycle for a community and returns the merged
// candidate events of the winning tier.
func (a *Aggregator) Collect(ctx context.Context, target *Target) []*types.Arrival {
	events := a.runContentTier(ctx, target)
	if len(events) > 0 {
		return events
	}

	return a.runFallbackTier(ctx, target)
}

// runContentTier runs message-based collectors concurrently. They share no
// mutable state, only the read-only target.
func (a *Aggregator) runContentTier(ctx context.Context, target *Target) []*types.Arrival {
	p := pool.NewWithResults[[]*types.Arrival]()

	for _, collector := range a.content {
		p.Go(func() []*types.Arrival {
			return a.collectOne(ctx, collector, target)
		})
	}

	var merged []*types.Arrival
	for _, events := range p.Wait() {
		merged = append(merged, events...)
	}

	return merged
}

// runFallbackTier runs counter and heartbeat collectors sequentially because
// they mutate the community's collector state, which is single-owner.
func (a *Aggregator) runFallbackTier(ctx context.Context, target *Target) []*types.Arrival {
	var merged []*types.Arrival

	for _, collector := range a.fallback {
		merged = append(merged, a.collectOne(ctx, collector, target)...)
	}

	return merged
}

// collectOne bounds a single collector call with the per-call timeout and
// treats any error as no evidence this cycle.
func (a *Aggregator) collectOne(ctx context.Context, collector Collector, target *Target) []*types.Arrival {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	events, err := collector.Collect(ctx, target)
	if err != nil {
		a.logger.Debug("Collector yielded no evidence",
			zap.String("collector", collector.Name()),
			zap.String("community", target.CommunityName),
			zap.Error(err))

		return nil
	}

	return events
}
