package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// Сообщения брокера
type OrderMessage struct {
	OrderID       string               `json:"order_id"`
	RestaurantID  string               `json:"restaurant_id"`
	CustomerName  string               `json:"customer_name"`
	Items         []domain.OrderItem   `json:"items"`
	Total         decimal.Decimal      `json:"total"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time            `json:"created_at"`
}

const (
	EventStatusChanged = "status_changed"
	EventOrderOverdue  = "order_overdue"
)

type StatusUpdateMessage struct {
	Event        string        `json:"event"`
	OrderID      string        `json:"order_id"`
	RestaurantID string        `json:"restaurant_id"`
	OldStatus    domain.Status `json:"old_status"`
	NewStatus    domain.Status `json:"new_status"`
	ChangedBy    string        `json:"changed_by"`
	Role         domain.Role   `json:"role"`
	RiderID      string        `json:"rider_id,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

type MessagePublisher interface {
	PublishOrder(ctx context.Context, msg OrderMessage) error
	PublishStatusUpdate(ctx context.Context, msg StatusUpdateMessage) error
}

type MessageConsumer interface {
	// ConsumeOrders delivers new orders for one restaurant ("" for all).
	ConsumeOrders(ctx context.Context, restaurantID string, handler OrderMessageHandler) error
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type (
	OrderMessageHandler func(ctx context.Context, body []byte) error
	NotificationHandler func(ctx context.Context, body []byte) error
)
