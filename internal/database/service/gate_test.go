package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/robalyx/doorbell/internal/database"
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"
)

// newTestClient opens an in-memory database with the full schema.
func newTestClient(t *testing.T) database.Client {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*types.Arrival)(nil),
		(*types.NotificationRecord)(nil),
		(*types.Community)(nil),
	} {
		require.NoError(t, db.ResetModel(ctx, model))
	}

	client := database.NewClient(db, zap.NewNop())
	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func testArrival(participantID, communityID uint64) *types.Arrival {
	return &types.Arrival{
		ParticipantID:  participantID,
		Username:       "newcomer",
		CommunityID:    communityID,
		CommunityName:  "Axiom",
		ObservedAt:     time.Now().UTC(),
		AccountAgeDays: 87,
		SourceTag:      types.SourceMemberEvent,
	}
}

func TestGateRecordAloneDoesNotSuppress(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	gate := client.Service().Gate()
	ctx := context.Background()

	id, err := gate.RecordArrival(ctx, testArrival(1001, 2001))
	require.NoError(t, err)
	assert.Positive(t, id)

	notified, err := gate.IsAlreadyNotified(ctx, 1001, 2001, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, notified, "recording an arrival must not count as a sent notification")
}

func TestGateMarkNotifiedSuppressesPair(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	gate := client.Service().Gate()
	ctx := context.Background()

	id, err := gate.RecordArrival(ctx, testArrival(1362788254054613055, 2001))
	require.NoError(t, err)

	require.NoError(t, gate.MarkNotified(ctx, id))

	notified, err := gate.IsAlreadyNotified(ctx, 1362788254054613055, 2001, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, notified)

	// The same participant in a different community is a separate pair.
	notified, err = gate.IsAlreadyNotified(ctx, 1362788254054613055, 2002, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, notified)

	arrival, err := client.Model().Arrival().Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, arrival.Notified)
}

func TestGateRepeatDetectionKeepsSingleLedgerRow(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	gate := client.Service().Gate()
	ctx := context.Background()

	first, err := gate.RecordArrival(ctx, testArrival(1001, 2001))
	require.NoError(t, err)
	second, err := gate.RecordArrival(ctx, testArrival(1001, 2001))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "every detection appends its own arrival row")

	require.NoError(t, gate.MarkNotified(ctx, first))
	require.NoError(t, gate.MarkNotified(ctx, second))

	count, err := client.DB().NewSelect().
		Model((*types.NotificationRecord)(nil)).
		Where("participant_id = ?", 1001).
		Where("community_id = ?", 2001).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-notification replaces the ledger row for the pair")

	arrivals, err := client.Model().Arrival().CountSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, arrivals)
}

func TestGateWindowExpiry(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	gate := client.Service().Gate()
	ctx := context.Background()

	record := &types.NotificationRecord{
		ParticipantID: 1001,
		CommunityID:   2001,
		SentAt:        time.Now().UTC().Add(-25 * time.Hour),
	}
	require.NoError(t, client.Model().Notification().Upsert(ctx, record))

	notified, err := gate.IsAlreadyNotified(ctx, 1001, 2001, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, notified, "records older than the window must not suppress")

	notified, err = gate.IsAlreadyNotified(ctx, 1001, 2001, 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, notified)
}

func TestGateArrivalLogFallback(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	gate := client.Service().Gate()
	ctx := context.Background()

	// A flagged arrival row with no matching ledger row still suppresses,
	// covering writes from before the ledger existed.
	arrival := testArrival(1001, 2001)
	arrival.Notified = true

	_, err := gate.RecordArrival(ctx, arrival)
	require.NoError(t, err)

	notified, err := gate.IsAlreadyNotified(ctx, 1001, 2001, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, notified)
}

func TestStatsCountsActiveCommunitiesAndArrivals(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, c := range []*types.Community{
		{ID: 2001, Name: "Axiom", MemberCount: 135, FirstSeen: now, LastUpdated: now, IsActive: true},
		{ID: 2002, Name: "Basilica", MemberCount: 40, FirstSeen: now, LastUpdated: now, IsActive: true},
	} {
		require.NoError(t, client.Model().Community().Upsert(ctx, c))
	}

	require.NoError(t, client.Model().Community().Deactivate(ctx, 2002))

	gate := client.Service().Gate()

	old := testArrival(1001, 2001)
	old.ObservedAt = now.Add(-48 * time.Hour)
	_, err := gate.RecordArrival(ctx, old)
	require.NoError(t, err)

	_, err = gate.RecordArrival(ctx, testArrival(1002, 2001))
	require.NoError(t, err)

	stats, err := client.Service().Stats().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveCommunities)
	assert.Equal(t, 2, stats.TotalArrivals)
	assert.Equal(t, 1, stats.Arrivals24h)
}
