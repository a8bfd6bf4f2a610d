package watch

import "time"

// CommunityState holds the per-community counter caches and heartbeat
// timestamp used by the fallback-tier collectors. It is owned exclusively by
// the poll loop that created it and must never be shared across tasks.
type CommunityState struct {
	// MemberCountSeen reports whether LastMemberCount holds a real
	// observation. The first observation only seeds the cache and never
	// produces a delta.
	MemberCountSeen   bool
	LastMemberCount   int
	PresenceSeen      bool
	LastPresenceCount int
	LastHeartbeat     time.Time
}

// State tracks collector state for every community a poll loop watches.
// All state is process-local and lost on restart; only the store is durable.
type State struct {
	communities map[uint64]*CommunityState
}

// NewState creates an empty collector state table.
func NewState() *State {
	return &State{communities: make(map[uint64]*CommunityState)}
}

// Community returns the state for a community, creating it on first use.
func (s *State) Community(communityID uint64) *CommunityState {
	state, ok := s.communities[communityID]
	if !ok {
		state = &CommunityState{}
		s.communities[communityID] = state
	}

	return state
}

// RetainOnly drops state for every community not in the given set.
func (s *State) RetainOnly(seen map[uint64]struct{}) {
	for id := range s.communities {
		if _, ok := seen[id]; !ok {
			delete(s.communities, id)
		}
	}
}