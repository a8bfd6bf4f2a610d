package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateRetainOnlyDropsVanishedCommunities(t *testing.T) {
	t.Parallel()

	state := NewState()
	state.Community(100).MemberCountSeen = true
	state.Community(200).LastMemberCount = 50
	state.Community(300)

	state.RetainOnly(map[uint64]struct{}{100: {}, 300: {}})

	assert.True(t, state.Community(100).MemberCountSeen, "retained state survives")
	assert.Zero(t, state.Community(200).LastMemberCount, "vanished community state is reset")
}

func TestStateCommunityLazyCreate(t *testing.T) {
	t.Parallel()

	state := NewState()

	first := state.Community(42)
	second := state.Community(42)

	assert.Same(t, first, second)
	assert.False(t, first.MemberCountSeen)
}
