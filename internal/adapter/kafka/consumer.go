package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/adapter/tracing"
	"github.com/YelzhanWeb/campuseats/internal/config"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

const reconnectDelay = 5 * time.Second

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	cfg       config.KafkaConfig
	logger    logger.Logger
	newReader func(kafka.ReaderConfig) Reader
	delay     time.Duration
}

func NewConsumer(cfg config.KafkaConfig, logger logger.Logger) *Consumer {
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		newReader: func(rc kafka.ReaderConfig) Reader {
			return kafka.NewReader(rc)
		},
		delay: reconnectDelay,
	}
}

// ConsumeOrders reads the orders topic in a consumer group shared by every
// watcher of the same restaurant and skips other restaurants' orders.
func (c *Consumer) ConsumeOrders(ctx context.Context, restaurantID string, handler interfaces.OrderMessageHandler) error {
	group := c.cfg.GroupID + "-vendor"
	if restaurantID != "" {
		group += "-" + restaurantID
	}

	rc := kafka.ReaderConfig{
		Brokers: c.cfg.Brokers,
		Topic:   c.cfg.OrdersTopic,
		GroupID: group,
	}
	return c.withReconnect(ctx, "orders", rc, func(msg kafka.Message) bool {
		return restaurantID == "" || string(msg.Key) == restaurantID
	}, handler)
}

// ConsumeNotifications gives every process its own group so each one sees
// every status update, like a fanout exchange. The group survives reconnects.
func (c *Consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	rc := kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		Topic:       c.cfg.NotificationsTopic,
		GroupID:     c.cfg.GroupID + "-notify-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
	}
	return c.withReconnect(ctx, "notifications", rc, nil, handler)
}

func (c *Consumer) withReconnect(ctx context.Context, name string, rc kafka.ReaderConfig, accept func(kafka.Message) bool, handler func(context.Context, []byte) error) error {
	for {
		r := c.newReader(rc)
		err := c.run(ctx, r, accept, handler)
		if cerr := r.Close(); cerr != nil {
			c.logger.Debug("reader_close_failed", "Failed to close kafka reader", "", map[string]interface{}{"error": cerr.Error()})
		}

		// Если контекст отменен - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		c.logger.Error("consumer_disconnected", fmt.Sprintf("%s consumer disconnected, reconnecting in %s", name, c.delay), "", nil, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}
}

func (c *Consumer) run(ctx context.Context, r Reader, accept func(kafka.Message) bool, handler func(context.Context, []byte) error) error {
	tracer := tracing.Tracer()

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if accept == nil || accept(msg) {
			msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
			msgCtx, span := tracer.Start(msgCtx, "kafka.consume "+msg.Topic)
			if err := handler(msgCtx, msg.Value); err != nil {
				c.logger.Error("message_handle_failed", "Failed to handle message", "", map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}, err)
			}
			span.End()
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit_failed", "Failed to commit message", "", nil, err)
		}
	}
}
