package rate_test

import (
	"context"
	"testing"
	"time"

	"github.com/robalyx/doorbell/internal/platform/rate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterEnforcesSpacing(t *testing.T) {
	t.Parallel()

	limiter := rate.New(50*time.Millisecond, 0)
	ctx := context.Background()

	require.NoError(t, limiter.WaitForNextSlot(ctx))

	start := time.Now()
	require.NoError(t, limiter.WaitForNextSlot(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiterFirstSlotIsImmediate(t *testing.T) {
	t.Parallel()

	limiter := rate.New(time.Second, 0)

	start := time.Now()
	require.NoError(t, limiter.WaitForNextSlot(context.Background()))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLimiterRespectsCancellation(t *testing.T) {
	t.Parallel()

	limiter := rate.New(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, limiter.WaitForNextSlot(ctx))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := limiter.WaitForNextSlot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
