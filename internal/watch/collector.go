package watch

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database/types"
)

// Tier orders collectors by evidence quality. Content-tier collectors carry
// a real participant identity; fallback-tier collectors only infer that
// someone arrived.
type Tier int

const (
	// TierContent collectors derive events from message activity.
	TierContent Tier = iota
	// TierFallback collectors derive events from counters and heartbeats.
	TierFallback
)

// Target is the per-community, per-cycle input shared by all collectors.
// Channels are prefetched once per cycle by the poll worker so the content
// tier does not repeat the listing call three times.
type Target struct {
	CommunityID   uint64
	CommunityName string
	Channels      []discord.Channel
	State         *CommunityState
}

// Collector is one detection method producing candidate arrival events from
// one evidence source. Implementations must treat API errors as "no evidence
// this cycle" internally only when partial results remain useful; otherwise
// they return the error and the aggregator logs and continues.
type Collector interface {
	Name() string
	Tier() Tier
	Collect(ctx context.Context, target *Target) ([]*types.Arrival, error)
}
