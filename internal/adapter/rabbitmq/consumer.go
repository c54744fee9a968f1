package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/adapter/tracing"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn     Connection
	prefetch int
	logger   logger.Logger
}

func NewConsumer(conn Connection, prefetch int, logger logger.Logger) interfaces.MessageConsumer {
	return &consumer{conn: conn, prefetch: prefetch, logger: logger}
}

func (c *consumer) ConsumeOrders(ctx context.Context, restaurantID string, handler interfaces.OrderMessageHandler) error {
	return c.withReconnect(ctx, "orders", func() error {
		return c.consumeOrders(ctx, restaurantID, handler)
	})
}

func (c *consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	return c.withReconnect(ctx, "notifications", func() error {
		return c.consumeNotifications(ctx, handler)
	})
}

func (c *consumer) withReconnect(ctx context.Context, name string, consume func() error) error {
	for {
		err := consume()

		// Если контекст отменен - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", fmt.Sprintf("%s consumer disconnected, reconnecting in %s", name, reconnectDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *consumer) consumeOrders(ctx context.Context, restaurantID string, handler interfaces.OrderMessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	queue, err := setupOrdersInfrastructure(ch, restaurantID)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			msgCtx := tracing.ExtractAMQPHeaders(ctx, msg.Headers)
			if err := handler(msgCtx, msg.Body); err != nil {
				// Отправляем в DLQ (requeue=false)
				msg.Nack(false, false)
			} else {
				msg.Ack(false)
			}
		}
	}
}

func (c *consumer) consumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Временная эксклюзивная очередь: каждый подписчик получает все уведомления
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// Игнорируем ошибки обработки уведомлений
			_ = handler(tracing.ExtractAMQPHeaders(ctx, msg.Headers), msg.Body)
		}
	}
}

// setupOrdersInfrastructure declares the vendor queue for one restaurant (or
// for all when restaurantID is empty) with its dead-letter queue.
func setupOrdersInfrastructure(ch Channel, restaurantID string) (string, error) {
	queue, key := "vendor_queue", "restaurant.#"
	if restaurantID != "" {
		queue, key = "vendor_queue."+restaurantID, RoutingKey(restaurantID)
	}
	dlqQueue := queue + "_dlq"

	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("failed to declare orders exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(dlqQueue, true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueue, queue, DeadLetterExchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind DLQ: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": queue,
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, args)
	if err != nil {
		return "", fmt.Errorf("failed to declare vendor queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, key, OrdersExchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind vendor queue: %w", err)
	}

	return q.Name, nil
}
