package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// Runs against a live server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedisStore(client, time.Minute)
}

func TestRedisStoreLifecycle(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	key := uuid.NewString()
	t.Cleanup(func() { _ = store.Release(context.Background(), key) })

	receipt, reserved, err := store.Reserve(ctx, key, "fp")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, receipt)

	_, reserved, err = store.Reserve(ctx, key, "fp")
	require.NoError(t, err)
	assert.False(t, reserved)

	require.NoError(t, store.Complete(ctx, key, "fp", models.Receipt{SaleID: "s1", Total: 12.5}))
	receipt, reserved, err = store.Reserve(ctx, key, "fp")
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NotNil(t, receipt)
	assert.Equal(t, "s1", receipt.SaleID)

	ttl, err := store.client.TTL(ctx, store.key(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStoreRelease(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	_, reserved, err := store.Reserve(ctx, key, "fp")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, store.Release(ctx, key))
	_, reserved, err = store.Reserve(ctx, key, "fp")
	require.NoError(t, err)
	assert.True(t, reserved)
	require.NoError(t, store.Release(ctx, key))
}

func TestRedisStoreRejectsDifferentFingerprint(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	key := uuid.NewString()
	t.Cleanup(func() { _ = store.Release(context.Background(), key) })

	_, reserved, err := store.Reserve(ctx, key, "cart-a")
	require.NoError(t, err)
	require.True(t, reserved)

	_, _, err = store.Reserve(ctx, key, "cart-b")
	assert.ErrorIs(t, err, models.ErrIdempotencyKeyReused)
}

func TestRedisKeyPrefix(t *testing.T) {
	store := NewRedisStore(nil, 0)
	assert.Equal(t, "idempotency:checkout:abc", store.key("abc"))
	assert.Equal(t, DefaultTTL, store.ttl)
}
