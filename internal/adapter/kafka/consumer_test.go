package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/config"
)

// scriptedReader returns its messages in order, then fails with err or, when
// err is nil, waits for the context.
type scriptedReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	err       error
	committed []kafka.Message
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	err := r.err
	r.mu.Unlock()

	if err != nil {
		return kafka.Message{}, err
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newScriptedConsumer(readers ...*scriptedReader) (*Consumer, *[]kafka.ReaderConfig) {
	var configs []kafka.ReaderConfig
	c := NewConsumer(config.KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		OrdersTopic: "orders",
		GroupID:     "campus-eats",
	}, logger.Nop())
	c.delay = time.Millisecond
	c.newReader = func(rc kafka.ReaderConfig) Reader {
		configs = append(configs, rc)
		r := readers[0]
		if len(readers) > 1 {
			readers = readers[1:]
		}
		return r
	}
	return c, &configs
}

func TestConsumeOrdersReconnectsAfterFetchError(t *testing.T) {
	broken := &scriptedReader{err: errors.New("broker not available")}
	healthy := &scriptedReader{msgs: []kafka.Message{
		{Topic: "orders", Key: []byte("suya-spot"), Value: []byte(`{"orderId":"ORD-2"}`)},
		{Topic: "orders", Key: []byte("mama-put"), Value: []byte(`{"orderId":"ORD-1"}`)},
	}}
	c, configs := newScriptedConsumer(broken, healthy)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	err := c.ConsumeOrders(ctx, "mama-put", func(ctx context.Context, body []byte) error {
		got = append(got, string(body))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, *configs, 2)
	assert.Equal(t, (*configs)[0].GroupID, (*configs)[1].GroupID)
	assert.Equal(t, "campus-eats-vendor-mama-put", (*configs)[1].GroupID)

	assert.Equal(t, []string{`{"orderId":"ORD-1"}`}, got)
	assert.True(t, broken.closed)
	assert.True(t, healthy.closed)
	// чужой заказ тоже подтверждается, иначе группа застрянет на нем
	assert.Len(t, healthy.committed, 2)
}

func TestConsumeStopsWhileWaitingToReconnect(t *testing.T) {
	broken := &scriptedReader{err: errors.New("broker not available")}
	c, configs := newScriptedConsumer(broken)
	c.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeNotifications(ctx, func(context.Context, []byte) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Len(t, *configs, 1)
}
