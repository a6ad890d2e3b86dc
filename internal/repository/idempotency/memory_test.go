package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	receipt, reserved, err := store.Reserve(ctx, "k1", "fp")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, receipt)

	receipt, reserved, err = store.Reserve(ctx, "k1", "fp")
	require.NoError(t, err)
	assert.False(t, reserved, "held by the first request")
	assert.Nil(t, receipt)

	require.NoError(t, store.Complete(ctx, "k1", "fp", models.Receipt{SaleID: "s1", Total: 5}))
	receipt, reserved, err = store.Reserve(ctx, "k1", "fp")
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NotNil(t, receipt)
	assert.Equal(t, "s1", receipt.SaleID)
}

func TestMemoryStoreReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, _, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k"))

	_, reserved, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	assert.True(t, reserved, "released keys can be claimed again")

	now = now.Add(2 * time.Minute)
	_, reserved, err = store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	assert.True(t, reserved, "stale reservations expire")
}

func TestMemoryStoreRejectsDifferentFingerprint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	_, reserved, err := store.Reserve(ctx, "k", "cart-a")
	require.NoError(t, err)
	require.True(t, reserved)

	_, _, err = store.Reserve(ctx, "k", "cart-b")
	assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused, "in flight")

	require.NoError(t, store.Complete(ctx, "k", "cart-a", models.Receipt{SaleID: "s1"}))
	receipt, _, err := store.Reserve(ctx, "k", "cart-b")
	assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused, "completed")
	assert.Nil(t, receipt)
}

func TestMemoryStoreSweepsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := store.Reserve(ctx, key, "fp")
		require.NoError(t, err)
	}
	require.NoError(t, store.Complete(ctx, "c", "fp", models.Receipt{SaleID: "s1"}))
	assert.Equal(t, 3, store.Len())

	now = now.Add(2 * time.Minute)
	_, reserved, err := store.Reserve(ctx, "d", "fp")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, 1, store.Len(), "expired keys are dropped on the next reservation")
}
