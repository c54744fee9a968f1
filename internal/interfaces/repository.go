package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// OrderStore is the single system of record for orders. Every status write
// goes through UpdateStatus, which only applies when the order is still in
// Change.From.
type OrderStore interface {
	Append(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, change domain.Change) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	History(ctx context.Context, id string) ([]*domain.StatusLog, error)
}

type RiderRepository interface {
	Create(ctx context.Context, rider *domain.Rider) error
	FindByID(ctx context.Context, id string) (*domain.Rider, error)
	Update(ctx context.Context, rider *domain.Rider) error
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error
	ListAll(ctx context.Context) ([]*domain.Rider, error)
	IncrementDeliveries(ctx context.Context, id string) error
}

// CartRepository keeps carts per owner; the same cart id under two owners
// names two different carts.
type CartRepository interface {
	Load(ctx context.Context, owner, id string) (*domain.Cart, error)
	Save(ctx context.Context, owner string, cart *domain.Cart) error
	Delete(ctx context.Context, owner, id string) error
}

// IdempotencyStore remembers which order a checkout key produced.
type IdempotencyStore interface {
	// Reserve binds the owner's key to orderID. When the key is already bound
	// it returns the existing order id and false.
	Reserve(ctx context.Context, owner, key, orderID string) (string, bool, error)
	// Bind points an already reserved key at the order id that was stored.
	Bind(ctx context.Context, owner, key, orderID string) error
	Release(ctx context.Context, owner, key string) error
}
