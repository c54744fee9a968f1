package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/campuseats/internal/adapter/tracing"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type publisher struct {
	conn Connection
}

func NewPublisher(conn Connection) interfaces.MessagePublisher {
	return &publisher{conn: conn}
}

// RoutingKey is the orders_topic key new orders for a restaurant are sent with.
func RoutingKey(restaurantID string) string {
	return "restaurant." + restaurantID
}

func (p *publisher) PublishOrder(ctx context.Context, msg interfaces.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.publish(ctx, OrdersExchange, "topic", RoutingKey(msg.RestaurantID), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.OrderID,
		Timestamp:    msg.CreatedAt,
		Headers:      tracing.InjectAMQPHeaders(ctx),
		Body:         body,
	})
}

func (p *publisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return p.publish(ctx, NotificationsExchange, "fanout", "", amqp.Publishing{
		ContentType: "application/json",
		Type:        msg.Event,
		Timestamp:   msg.Timestamp,
		Headers:     tracing.InjectAMQPHeaders(ctx),
		Body:        body,
	})
}

func (p *publisher) publish(ctx context.Context, exchange, kind, key string, msg amqp.Publishing) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
