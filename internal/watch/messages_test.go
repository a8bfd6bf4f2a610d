package watch

import (
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
)

func msgAt(content string, age time.Duration, now time.Time) *discord.Message {
	return &discord.Message{
		Type:      discord.DefaultMessage,
		Content:   content,
		Timestamp: discord.NewTimestamp(now.Add(-age)),
		Author:    discord.User{ID: 1362788254054613055, Username: "newcomer"},
	}
}

func TestIsJoinMarker(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	tests := []struct {
		name string
		msg  *discord.Message
		want bool
	}{
		{
			name: "system join message",
			msg: &discord.Message{
				Type:      discord.GuildMemberJoinMessage,
				Timestamp: discord.NewTimestamp(now),
			},
			want: true,
		},
		{
			name: "announcement text",
			msg:  msgAt("Please welcome Sam to the server!", time.Hour, now),
			want: true,
		},
		{
			name: "short recent greeting",
			msg:  msgAt("hi all, new here", 30*time.Second, now),
			want: true,
		},
		{
			name: "short greeting but stale",
			msg:  msgAt("hi all, new here", 10*time.Minute, now),
			want: false,
		},
		{
			name: "ordinary chatter",
			msg:  msgAt("anyone up for a match later tonight?", time.Minute, now),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isJoinMarker(tt.msg, now))
		})
	}
}

func TestIsNewUserActivity(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	assert.True(t, isNewUserActivity(msgAt("just joined, glad to be here", time.Minute, now), now))
	assert.False(t, isNewUserActivity(msgAt("just joined, glad to be here", 10*time.Minute, now), now),
		"stale messages never qualify")
	assert.False(t, isNewUserActivity(msgAt("debugging the deploy pipeline again", time.Minute, now), now))
}

func TestMatchesIntroPattern(t *testing.T) {
	t.Parallel()

	assert.True(t, matchesIntroPattern(&discord.Message{Content: "where do i start with all this?"}))
	assert.True(t, matchesIntroPattern(&discord.Message{Content: "hey :)"}))
	assert.False(t, matchesIntroPattern(&discord.Message{Content: "the migration finished without errors"}))
}

func TestPriorityChannels(t *testing.T) {
	t.Parallel()

	channels := []discord.Channel{
		{ID: 1, Name: "random", Type: discord.GuildText},
		{ID: 2, Name: "welcome", Type: discord.GuildText},
		{ID: 3, Name: "voice-hangout", Type: discord.GuildVoice},
		{ID: 4, Name: "general", Type: discord.GuildText},
	}

	got := priorityChannels(channels)
	assert.Len(t, got, 2)
	assert.Equal(t, "welcome", got[0].Name)
	assert.Equal(t, "general", got[1].Name)
}

func TestPriorityChannelsFallsBackToFirstFew(t *testing.T) {
	t.Parallel()

	channels := make([]discord.Channel, 0, 8)
	for i := range 8 {
		channels = append(channels, discord.Channel{
			ID:   discord.ChannelID(i + 1),
			Name: "topic",
			Type: discord.GuildText,
		})
	}

	got := priorityChannels(channels)
	assert.Len(t, got, maxPriorityChannels)
}

func TestArrivalFromMessageDerivesAge(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	target := &Target{CommunityID: 2001, CommunityName: "Axiom"}

	msg := msgAt("hello!", time.Minute, now)
	event := arrivalFromMessage(target, msg, "activity_scan", now)

	assert.Equal(t, uint64(1362788254054613055), event.ParticipantID)
	assert.Equal(t, "newcomer", event.Username)
	assert.Equal(t, "Axiom", event.CommunityName)
	assert.False(t, event.IsSynthetic)
	assert.GreaterOrEqual(t, event.AccountAgeDays, 0)
	assert.False(t, event.AccountCreatedAt.IsZero())
}
