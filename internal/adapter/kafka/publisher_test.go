package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishOrderKeyedByRestaurant(t *testing.T) {
	orders, notifications := &fakeWriter{}, &fakeWriter{}
	p := NewPublisherWithWriters(orders, notifications)

	err := p.PublishOrder(context.Background(), interfaces.OrderMessage{
		OrderID:      "ORD-1",
		RestaurantID: "mama-put",
		Total:        decimal.NewFromInt(3500),
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, orders.msgs, 1)
	assert.Empty(t, notifications.msgs)
	assert.Equal(t, "mama-put", string(orders.msgs[0].Key))

	var msg interfaces.OrderMessage
	require.NoError(t, json.Unmarshal(orders.msgs[0].Value, &msg))
	assert.Equal(t, "ORD-1", msg.OrderID)
	assert.True(t, decimal.NewFromInt(3500).Equal(msg.Total))
}

func TestPublishStatusUpdateCarriesEventHeader(t *testing.T) {
	orders, notifications := &fakeWriter{}, &fakeWriter{}
	p := NewPublisherWithWriters(orders, notifications)

	err := p.PublishStatusUpdate(context.Background(), interfaces.StatusUpdateMessage{
		Event:     interfaces.EventStatusChanged,
		OrderID:   "ORD-1",
		OldStatus: domain.StatusPending,
		NewStatus: domain.StatusAccepted,
	})
	require.NoError(t, err)

	require.Len(t, notifications.msgs, 1)
	m := notifications.msgs[0]
	assert.Equal(t, "ORD-1", string(m.Key))
	assert.Equal(t, "event", m.Headers[0].Key)
	assert.Equal(t, interfaces.EventStatusChanged, string(m.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, orders.closed)
	assert.True(t, notifications.closed)
}
