package watch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

func newDiscoveryTestClient(t *testing.T) database.Client {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	require.NoError(t, db.ResetModel(context.Background(), (*types.Community)(nil)))

	client := database.NewClient(db, zap.NewNop())
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestRefreshStoresPerCommunityMemberCounts(t *testing.T) {
	t.Parallel()

	// The guild listing carries no approximate counts; only the
	// per-community fetch does.
	client := &fakeClient{
		guilds: []discord.Guild{
			{ID: 2001, Name: "Axiom"},
			{ID: 2002, Name: "Beacon"},
		},
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, Name: "Axiom", ApproximateMembers: 120},
		},
	}

	db := newDiscoveryTestClient(t)
	discovery := NewGuildDiscovery(client, db, zap.NewNop())

	ctx := context.Background()

	count, err := discovery.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	active, err := db.Model().Community().GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	byID := make(map[uint64]*types.Community, len(active))
	for _, community := range active {
		byID[community.ID] = community
	}

	assert.Equal(t, 120, byID[2001].MemberCount)
	assert.Zero(t, byID[2002].MemberCount, "a failed count fetch still registers the community")
}

func TestRefreshDeactivatesVanishedCommunities(t *testing.T) {
	t.Parallel()

	db := newDiscoveryTestClient(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.Model().Community().Upsert(ctx, &types.Community{
		ID:          999,
		Name:        "Ghost Town",
		FirstSeen:   now,
		LastUpdated: now,
		IsActive:    true,
	}))

	client := &fakeClient{
		guilds: []discord.Guild{{ID: 2001, Name: "Axiom"}},
		counts: map[discord.GuildID]*discord.Guild{
			2001: {ID: 2001, Name: "Axiom", ApproximateMembers: 50},
		},
	}

	discovery := NewGuildDiscovery(client, db, zap.NewNop())

	count, err := discovery.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	active, err := db.Model().Community().GetActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(2001), active[0].ID)
}
