package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/YelzhanWeb/campuseats/internal/adapter/tracing"
	"github.com/YelzhanWeb/campuseats/internal/config"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	orders        Writer
	notifications Writer
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return NewPublisherWithWriters(
		NewWriter(cfg.Brokers, cfg.OrdersTopic),
		NewWriter(cfg.Brokers, cfg.NotificationsTopic),
	)
}

func NewPublisherWithWriters(orders, notifications Writer) *Publisher {
	return &Publisher{orders: orders, notifications: notifications}
}

// PublishOrder keys messages by restaurant so one restaurant's orders stay in
// one partition, in order.
func (p *Publisher) PublishOrder(ctx context.Context, msg interfaces.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.orders.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.RestaurantID),
		Value:   body,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to publish order: %w", err)
	}
	return nil
}

func (p *Publisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := tracing.InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event", Value: []byte(msg.Event)}})
	err = p.notifications.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.OrderID),
		Value:   body,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("failed to publish status update: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	err := p.orders.Close()
	if nerr := p.notifications.Close(); err == nil {
		err = nerr
	}
	return err
}
