package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

const (
	keyPrefix  = "idempotency:checkout:"
	DefaultTTL = 24 * time.Hour

	statusProcessing = "processing"
	statusSuccess    = "success"
)

type state struct {
	Status      string          `json:"status"`
	Fingerprint string          `json:"fingerprint"`
	Receipt     *models.Receipt `json:"receipt,omitempty"`
}

// RedisStore shares idempotency keys between every instance of the service.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a store keeping keys for ttl (DefaultTTL when zero).
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(idempotencyKey string) string {
	return keyPrefix + idempotencyKey
}

// Reserve claims the key with SET NX, or reports what already holds it.
func (s *RedisStore) Reserve(ctx context.Context, idempotencyKey, fingerprint string) (*models.Receipt, bool, error) {
	k := s.key(idempotencyKey)
	processing, _ := json.Marshal(state{Status: statusProcessing, Fingerprint: fingerprint})

	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			_, err := s.client.SetArgs(ctx, k, processing, redis.SetArgs{Mode: "NX", TTL: s.ttl}).Result()
			if errors.Is(err, redis.Nil) {
				// lost the race to another request; read what it stored
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("redis set: %w", err)
			}
			return nil, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("redis get: %w", err)
		}

		var st state
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, false, fmt.Errorf("redis unmarshal: %w", err)
		}

		if st.Fingerprint != fingerprint {
			return nil, false, models.ErrIdempotencyKeyReused
		}

		switch st.Status {
		case statusSuccess:
			return st.Receipt, false, nil
		case statusProcessing:
			return nil, false, nil
		default:
			if err := s.client.Set(ctx, k, processing, s.ttl).Err(); err != nil {
				return nil, false, fmt.Errorf("redis set: %w", err)
			}
			return nil, true, nil
		}
	}
}

// Complete stores the receipt for replays.
func (s *RedisStore) Complete(ctx context.Context, idempotencyKey, fingerprint string, receipt models.Receipt) error {
	raw, err := json.Marshal(state{Status: statusSuccess, Fingerprint: fingerprint, Receipt: &receipt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(idempotencyKey), raw, s.ttl).Err()
}

// Release frees the key so the request can be retried.
func (s *RedisStore) Release(ctx context.Context, idempotencyKey string) error {
	return s.client.Del(ctx, s.key(idempotencyKey)).Err()
}
