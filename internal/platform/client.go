package platform

import (
	"context"

	"github.com/diamondburned/arikawa/v3/discord"
)

// Client is the read surface collectors and discovery need from the platform
// API when running on an ordinary participant credential.
type Client interface {
	// CurrentGuilds lists the communities reachable by the credential.
	CurrentGuilds(ctx context.Context) ([]discord.Guild, error)
	// GuildWithCounts fetches community metadata including approximate
	// member and presence counts.
	GuildWithCounts(ctx context.Context, guildID discord.GuildID) (*discord.Guild, error)
	// Channels lists the channels of a community.
	Channels(ctx context.Context, guildID discord.GuildID) ([]discord.Channel, error)
	// RecentMessages fetches the most recent messages of a channel,
	// newest first.
	RecentMessages(ctx context.Context, channelID discord.ChannelID, limit uint) ([]discord.Message, error)
	// User fetches a participant by ID.
	User(ctx context.Context, userID discord.UserID) (*discord.User, error)
}

// MemberBrowser is an optional capability for listing community members
// directly. Ordinary credentials usually lack the privilege; callers must
// assert for it once at startup and treat absence as a permanent condition,
// never probe per call.
type MemberBrowser interface {
	Members(ctx context.Context, guildID discord.GuildID, limit uint) ([]discord.Member, error)
}

// AsMemberBrowser reports whether the client supports member browsing.
func AsMemberBrowser(c Client) (MemberBrowser, bool) {
	browser, ok := c.(MemberBrowser)
	return browser, ok
}
