package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

type CartService interface {
	Get(ctx context.Context, customer domain.Actor, cartID string) (*domain.Cart, error)
	AddItem(ctx context.Context, customer domain.Actor, cartID string, item domain.CartItem) (*domain.Cart, error)
	RemoveItem(ctx context.Context, customer domain.Actor, cartID, itemID string) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, customer domain.Actor, cartID, itemID string, delta int) (*domain.Cart, error)
	Clear(ctx context.Context, customer domain.Actor, cartID string) error
}

type CheckoutService interface {
	SubmitOrder(ctx context.Context, cmd SubmitOrderCommand) (*domain.Order, error)
}

type KitchenService interface {
	Queue(ctx context.Context, vendor domain.Actor, statuses []domain.Status, search string) ([]*domain.Order, error)
	Counts(ctx context.Context, vendor domain.Actor) (map[domain.Status]int, error)
	Advance(ctx context.Context, vendor domain.Actor, orderID string, to domain.Status) (*domain.Order, error)
	Decline(ctx context.Context, vendor domain.Actor, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, vendor domain.Actor, orderID string) (*domain.Order, error)
}

type DeliveryService interface {
	GoOnline(ctx context.Context, rider domain.Actor, name string) (*domain.Rider, error)
	GoOffline(ctx context.Context, rider domain.Actor) error
	Heartbeat(ctx context.Context, rider domain.Actor) error
	Available(ctx context.Context) ([]domain.DeliveryTask, error)
	Mine(ctx context.Context, rider domain.Actor) ([]domain.DeliveryTask, error)
	History(ctx context.Context, rider domain.Actor) ([]domain.DeliveryTask, error)
	Claim(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error)
	MarkPickedUp(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error)
}

type TrackingService interface {
	CustomerOrders(ctx context.Context, customer domain.Actor) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
	GetRidersStatus(ctx context.Context) ([]*TrackingRiderResponse, error)
}

type TrackingRiderResponse struct {
	RiderID             string             `json:"rider_id"`
	Name                string             `json:"name"`
	Status              domain.RiderStatus `json:"status"`
	DeliveriesCompleted int                `json:"deliveries_completed"`
	LastSeen            time.Time          `json:"last_seen"`
}

// Команды для сервисов
type SubmitOrderCommand struct {
	// Actor is the authenticated customer; carts and idempotency keys are
	// looked up under its id.
	Actor          domain.Actor
	OrderID        string
	IdempotencyKey string
	CartID         string
	Items          []domain.CartItem
	RestaurantID   string
	Customer       domain.CustomerInfo
	PaymentMethod  string
}
