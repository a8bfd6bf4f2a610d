package platform

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/utils/httputil"
	"github.com/robalyx/doorbell/internal/platform/rate"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// defaultRetryAfter is used when a rate-limit response carries no parseable
// retry_after value.
const defaultRetryAfter = time.Second

// RESTClient implements Client over the platform REST API with shared
// request spacing and a single bounded retry on rate-limit responses.
type RESTClient struct {
	api     *api.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewREST creates a REST client for an ordinary participant credential.
func NewREST(token string, limiter *rate.Limiter, logger *zap.Logger) *RESTClient {
	return &RESTClient{
		api:     api.NewClient(token),
		limiter: limiter,
		logger:  logger.Named("platform_rest"),
	}
}

func (c *RESTClient) CurrentGuilds(ctx context.Context) ([]discord.Guild, error) {
	return call(ctx, c, "current_guilds", func(a *api.Client) ([]discord.Guild, error) {
		return a.Guilds(0)
	})
}

func (c *RESTClient) GuildWithCounts(ctx context.Context, guildID discord.GuildID) (*discord.Guild, error) {
	return call(ctx, c, "guild_with_counts", func(a *api.Client) (*discord.Guild, error) {
		return a.GuildWithCount(guildID)
	})
}

func (c *RESTClient) Channels(ctx context.Context, guildID discord.GuildID) ([]discord.Channel, error) {
	return call(ctx, c, "channels", func(a *api.Client) ([]discord.Channel, error) {
		return a.Channels(guildID)
	})
}

func (c *RESTClient) RecentMessages(
	ctx context.Context, channelID discord.ChannelID, limit uint,
) ([]discord.Message, error) {
	return call(ctx, c, "recent_messages", func(a *api.Client) ([]discord.Message, error) {
		return a.Messages(channelID, limit)
	})
}

func (c *RESTClient) User(ctx context.Context, userID discord.UserID) (*discord.User, error) {
	return call(ctx, c, "user", func(a *api.Client) (*discord.User, error) {
		return a.User(userID)
	})
}

// Members implements the optional MemberBrowser capability. Most ordinary
// credentials receive a permission error here, which callers discover once
// at startup.
func (c *RESTClient) Members(
	ctx context.Context, guildID discord.GuildID, limit uint,
) ([]discord.Member, error) {
	return call(ctx, c, "members", func(a *api.Client) ([]discord.Member, error) {
		return a.Members(guildID, limit)
	})
}

// call performs one API operation behind the shared limiter. A rate-limit
// response is honored exactly once; any second rejection fails the call for
// this cycle.
func call[T any](ctx context.Context, c *RESTClient, op string, fn func(*api.Client) (T, error)) (T, error) {
	var zero T

	if err := c.limiter.WaitForNextSlot(ctx); err != nil {
		return zero, err
	}

	result, err := fn(c.api.WithContext(ctx))
	if err == nil {
		return result, nil
	}

	wait, rateLimited := retryAfter(err)
	if !rateLimited {
		return zero, err
	}

	c.logger.Debug("Rate limited, waiting once before retry",
		zap.String("op", op),
		zap.Duration("retryAfter", wait))

	if utils.ContextSleep(ctx, wait) == utils.SleepCancelled {
		return zero, ctx.Err()
	}

	return fn(c.api.WithContext(ctx))
}

// retryAfter extracts the retry-after duration from a rate-limit error.
func retryAfter(err error) (time.Duration, bool) {
	var httpErr *httputil.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusTooManyRequests {
		return 0, false
	}

	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}

	if parseErr := sonic.Unmarshal(httpErr.Body, &body); parseErr != nil || body.RetryAfter <= 0 {
		return defaultRetryAfter, true
	}

	return time.Duration(body.RetryAfter * float64(time.Second)), true
}
