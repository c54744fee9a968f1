package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

const cartKeyPrefix = "campus-eats-cart:"

type cartRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCartRepository stores each cart as one JSON value that expires ttl after
// the last change.
func NewCartRepository(rdb *redis.Client, ttl time.Duration) interfaces.CartRepository {
	return &cartRepository{rdb: rdb, ttl: ttl}
}

func cartKey(owner, id string) string {
	return cartKeyPrefix + owner + ":" + id
}

// Load returns an empty cart when the owner has nothing stored under id.
func (r *cartRepository) Load(ctx context.Context, owner, id string) (*domain.Cart, error) {
	data, err := r.rdb.Get(ctx, cartKey(owner, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	cart.ID = id
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, owner string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := r.rdb.Set(ctx, cartKey(owner, cart.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, owner, id string) error {
	if err := r.rdb.Del(ctx, cartKey(owner, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
