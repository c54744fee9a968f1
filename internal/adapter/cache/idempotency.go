package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "campus-eats-checkout:"

// IdempotencyStore binds a customer's checkout Idempotency-Key to the order
// it created. Keys of different customers never collide.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func idempotencyKey(owner, key string) string {
	return idempotencyKeyPrefix + owner + ":" + key
}

func (s *IdempotencyStore) Reserve(ctx context.Context, owner, key, orderID string) (string, bool, error) {
	k := idempotencyKey(owner, key)

	ok, err := s.rdb.SetNX(ctx, k, orderID, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return orderID, true, nil
	}

	existing, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Ключ истек между SETNX и GET, пробуем еще раз
		return s.Reserve(ctx, owner, key, orderID)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

func (s *IdempotencyStore) Bind(ctx context.Context, owner, key, orderID string) error {
	if err := s.rdb.Set(ctx, idempotencyKey(owner, key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to bind idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, owner, key string) error {
	return s.rdb.Del(ctx, idempotencyKey(owner, key)).Err()
}
