package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClient serves canned platform API responses to collectors.
type fakeClient struct {
	guilds   []discord.Guild
	counts   map[discord.GuildID]*discord.Guild
	channels map[discord.GuildID][]discord.Channel
	messages map[discord.ChannelID][]discord.Message
}

func (f *fakeClient) CurrentGuilds(context.Context) ([]discord.Guild, error) {
	return f.guilds, nil
}

func (f *fakeClient) GuildWithCounts(_ context.Context, id discord.GuildID) (*discord.Guild, error) {
	guild, ok := f.counts[id]
	if !ok {
		return nil, errors.New("unknown community")
	}

	return guild, nil
}

func (f *fakeClient) Channels(_ context.Context, id discord.GuildID) ([]discord.Channel, error) {
	return f.channels[id], nil
}

func (f *fakeClient) RecentMessages(
	_ context.Context, id discord.ChannelID, _ uint,
) ([]discord.Message, error) {
	return f.messages[id], nil
}

func (f *fakeClient) User(context.Context, discord.UserID) (*discord.User, error) {
	return nil, errors.New("not implemented")
}

func TestMemberCountFirstObservationOnlySeeds(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, ApproximateMembers: 120},
		},
	}

	collector := NewMemberCountCollector(client, zap.NewNop())
	target := &Target{CommunityID: 2001, CommunityName: "Axiom", State: &CommunityState{}}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.True(t, target.State.MemberCountSeen)
	assert.Equal(t, 120, target.State.LastMemberCount)
}

func TestMemberCountDeltaYieldsExactlyOneSyntheticEvent(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, ApproximateMembers: 135},
		},
	}

	collector := NewMemberCountCollector(client, zap.NewNop())
	target := &Target{
		CommunityID:   2001,
		CommunityName: "Axiom",
		State:         &CommunityState{MemberCountSeen: true, LastMemberCount: 120},
	}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, events, 1, "a +15 delta yields one event, not fifteen")

	event := events[0]
	assert.True(t, event.IsSynthetic)
	assert.Equal(t, uint64(0), event.ParticipantID)
	assert.Equal(t, utils.AgeUnknown, event.AccountAgeDays)
	assert.Equal(t, types.SourceMemberCount, event.SourceTag)
	assert.Contains(t, event.Username, "+15")
	assert.Equal(t, 15, event.Evidence["counter_delta"])
	assert.Equal(t, 135, target.State.LastMemberCount)
}

func TestMemberCountDecreaseYieldsNothing(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, ApproximateMembers: 110},
		},
	}

	collector := NewMemberCountCollector(client, zap.NewNop())
	target := &Target{
		CommunityID: 2001,
		State:       &CommunityState{MemberCountSeen: true, LastMemberCount: 120},
	}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 110, target.State.LastMemberCount, "cache follows decreases silently")
}

func TestMemberCountDeltaEnrichedByRecentAuthor(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	authorID := discord.UserID(discordSnowflakeDaysAgo(now, 3))

	client := &fakeClient{
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, ApproximateMembers: 121},
		},
		messages: map[discord.ChannelID][]discord.Message{
			3001: {{
				ChannelID: 3001,
				Content:   "hello everyone",
				Timestamp: discord.NewTimestamp(now.Add(-time.Minute)),
				Author:    discord.User{ID: authorID, Username: "fresh_face"},
			}},
		},
	}

	collector := NewMemberCountCollector(client, zap.NewNop())
	target := &Target{
		CommunityID:   2001,
		CommunityName: "Axiom",
		Channels:      []discord.Channel{{ID: 3001, Name: "welcome", Type: discord.GuildText}},
		State:         &CommunityState{MemberCountSeen: true, LastMemberCount: 120},
	}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.False(t, event.IsSynthetic, "enrichment replaces the synthetic placeholder")
	assert.Equal(t, "fresh_face", event.Username)
	assert.Equal(t, types.SourceMemberCount, event.SourceTag)
	assert.Equal(t, 1, event.Evidence["counter_delta"])
}

func TestPresenceDeltaYieldsOneEvent(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, ApproximatePresences: 45},
		},
	}

	collector := NewPresenceCollector(client, zap.NewNop())
	target := &Target{
		CommunityID: 2001,
		State:       &CommunityState{PresenceSeen: true, LastPresenceCount: 40},
	}

	events, err := collector.Collect(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.SourcePresence, events[0].SourceTag)
	assert.True(t, events[0].IsSynthetic)
}

// discordSnowflakeDaysAgo builds a snowflake whose embedded creation time is
// the given number of days in the past.
func discordSnowflakeDaysAgo(now time.Time, days int) uint64 {
	const epoch = 1420070400000

	ms := now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	return uint64(ms-epoch) << 22
}
