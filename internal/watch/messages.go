package watch

import (
	"sort"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/pkg/utils"
)

const (
	// maxScanChannels bounds how many channels a single collector pass
	// touches per community per cycle.
	maxScanChannels = 15
	// maxPriorityChannels bounds the channel set of the pattern scan.
	maxPriorityChannels = 5

	// recentActivityWindow is the age limit for "very recent" messages in
	// the deep scan and the counter enrichment scan.
	recentActivityWindow = 5 * time.Minute
	// joinMarkerWindow is the age limit for greeting-based join detection.
	joinMarkerWindow = 2 * time.Minute
	// greetingWindow is the age limit for new-user greeting activity.
	greetingWindow = 3 * time.Minute

	// freshAccountAge marks an account as brand new regardless of what it
	// posted.
	freshAccountAge = 24 * time.Hour
	// enrichmentMaxAccountAgeDays bounds how old an account may be for the
	// counter enrichment scan to treat it as the likely arrival.
	enrichmentMaxAccountAgeDays = 30
)

// priorityChannelKeywords rank channels where arrival activity is most
// likely to surface.
var priorityChannelKeywords = []string{"welcome", "general", "chat", "main", "lobby"}

// enrichmentChannelKeywords extend the priority set for the counter
// enrichment scan.
var enrichmentChannelKeywords = append([]string{"join", "new", "member"}, priorityChannelKeywords...)

// joinIndicators appear in system or bot announcements about an arrival.
var joinIndicators = []string{
	"joined the server", "joined the guild", "welcome to",
	"has joined", "new member", "member joined",
	"just joined", "welcome @", "welcome back",
	"joined us", "say hello to", "please welcome",
}

// quickGreetings are short first messages often posted within minutes of
// joining.
var quickGreetings = []string{"hi", "hello", "hey everyone", "new here", "first time"}

// newUserIndicators are greeting phrases that suggest a first post.
var newUserIndicators = []string{
	"hello", "hi everyone", "hey", "greetings", "new here",
	"just joined", "first time", "nice to meet", "glad to be here",
	"excited to join", "thanks for having me", "happy to be here",
}

// introPhrases are longer self-identifying phrases new participants use.
var introPhrases = []string{
	"just got here", "brand new", "where do i start", "how does this work",
	"what is this place", "can someone help", "im new to this",
	"never been here before", "first day", "just found this",
}

// shortGreetingWords qualify a message under 20 characters as an intro.
var shortGreetingWords = []string{"hi", "hello", "hey", "sup"}

// prioritizeChannels filters to text channels and orders them with
// priority-named channels first, preserving relative order otherwise.
func prioritizeChannels(channels []discord.Channel, keywords []string) []discord.Channel {
	text := make([]discord.Channel, 0, len(channels))

	for _, ch := range channels {
		if ch.Type == discord.GuildText {
			text = append(text, ch)
		}
	}

	sort.SliceStable(text, func(i, j int) bool {
		return channelNameMatches(text[i].Name, keywords) && !channelNameMatches(text[j].Name, keywords)
	})

	return text
}

// priorityChannels returns channels whose names match the priority keywords,
// falling back to the first few channels when none match.
func priorityChannels(channels []discord.Channel) []discord.Channel {
	text := prioritizeChannels(channels, priorityChannelKeywords)

	matched := make([]discord.Channel, 0, len(text))

	for _, ch := range text {
		if channelNameMatches(ch.Name, priorityChannelKeywords) {
			matched = append(matched, ch)
		}
	}

	if len(matched) == 0 {
		matched = text
	}

	if len(matched) > maxPriorityChannels {
		matched = matched[:maxPriorityChannels]
	}

	return matched
}

func channelNameMatches(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// isJoinMarker reports whether a message announces an arrival, either as a
// platform system message or a recognizable announcement/greeting.
func isJoinMarker(msg *discord.Message, now time.Time) bool {
	if msg.Type == discord.GuildMemberJoinMessage {
		return true
	}

	content := strings.ToLower(msg.Content)

	if msg.Type == discord.DefaultMessage {
		for _, indicator := range joinIndicators {
			if strings.Contains(content, indicator) {
				return true
			}
		}
	}

	if now.Sub(msg.Timestamp.Time()) < joinMarkerWindow && len(content) < 30 {
		for _, greeting := range quickGreetings {
			if strings.Contains(content, greeting) {
				return true
			}
		}
	}

	return false
}

// isNewUserActivity reports whether a recent message looks like a first post
// from a newly arrived participant.
func isNewUserActivity(msg *discord.Message, now time.Time) bool {
	if now.Sub(msg.Timestamp.Time()) > greetingWindow {
		return false
	}

	content := strings.ToLower(msg.Content)

	if len(content) < 100 {
		for _, indicator := range newUserIndicators {
			if strings.Contains(content, indicator) {
				return true
			}
		}
	}

	created := utils.AccountCreatedAt(snowflake.ID(msg.Author.ID))

	return !created.IsZero() && now.Sub(created) < freshAccountAge
}

// matchesIntroPattern reports whether the message content reads like a
// self-introduction, independent of recency.
func matchesIntroPattern(msg *discord.Message) bool {
	content := strings.ToLower(msg.Content)

	for _, phrase := range introPhrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}

	if len(content) < 20 {
		for _, word := range shortGreetingWords {
			if strings.Contains(content, word) {
				return true
			}
		}
	}

	return false
}

// couldBeArrival combines all message qualifiers; the deep scan re-applies
// this to the most recent activity it finds.
func couldBeArrival(msg *discord.Message, now time.Time) bool {
	return isJoinMarker(msg, now) || isNewUserActivity(msg, now) || matchesIntroPattern(msg)
}

// arrivalFromMessage builds a content-tier event from the real author of a
// qualifying message.
func arrivalFromMessage(target *Target, msg *discord.Message, sourceTag string, now time.Time) *types.Arrival {
	authorID := snowflake.ID(msg.Author.ID)

	displayName := msg.Author.DisplayName
	if displayName == "" {
		displayName = msg.Author.Username
	}

	return &types.Arrival{
		ParticipantID:    uint64(msg.Author.ID),
		Username:         msg.Author.Username,
		DisplayName:      displayName,
		CommunityID:      target.CommunityID,
		CommunityName:    target.CommunityName,
		ObservedAt:       now,
		AccountCreatedAt: utils.AccountCreatedAt(authorID),
		AccountAgeDays:   utils.AccountAgeDays(authorID, now),
		IsBot:            msg.Author.Bot,
		IsSystem:         msg.Author.DiscordSystem,
		IsVerified:       true,
		SourceTag:        sourceTag,
		Evidence: map[string]any{
			"channel_id":  msg.ChannelID.String(),
			"message_age": now.Sub(msg.Timestamp.Time()).String(),
		},
	}
}
