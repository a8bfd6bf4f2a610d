package watch

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHeartbeatOnlyForWatchlistedCommunities(t *testing.T) {
	t.Parallel()

	collector := NewHeartbeatCollector([]uint64{2001}, zap.NewNop())

	target := &Target{
		CommunityID: 2002,
		State:       &CommunityState{LastHeartbeat: time.Now().UTC().Add(-time.Hour)},
	}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHeartbeatSpacing(t *testing.T) {
	t.Parallel()

	collector := NewHeartbeatCollector([]uint64{2001}, zap.NewNop())
	state := &CommunityState{}
	target := &Target{CommunityID: 2001, CommunityName: "Axiom", State: state}

	// First call only seeds the timestamp.
	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, state.LastHeartbeat.IsZero())

	// Within the interval nothing is emitted.
	events, err = collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, events)

	// After the interval exactly one synthetic marker appears.
	state.LastHeartbeat = time.Now().UTC().Add(-6 * time.Minute)

	events, err = collector.Collect(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsSynthetic)
	assert.Equal(t, types.SourceHeartbeat, events[0].SourceTag)
}
