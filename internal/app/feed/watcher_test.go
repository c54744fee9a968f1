package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
)

func order(id string, status domain.Status) *domain.Order {
	return &domain.Order{ID: id, Status: status}
}

func ids(orders []*domain.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestApplyDiff(t *testing.T) {
	w := NewWatcher(nil, time.Second, logger.Nop())

	d := w.apply([]*domain.Order{order("A", domain.StatusPending), order("B", domain.StatusPending)})
	assert.ElementsMatch(t, []string{"A", "B"}, ids(d.Added))
	assert.Empty(t, d.Updated)

	d = w.apply([]*domain.Order{order("A", domain.StatusPending), order("B", domain.StatusAccepted)})
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.Equal(t, []string{"B"}, ids(d.Updated))

	claimed := order("B", domain.StatusAccepted)
	rider := "r1"
	claimed.RiderID = &rider
	d = w.apply([]*domain.Order{claimed, order("C", domain.StatusPending)})
	assert.Equal(t, []string{"C"}, ids(d.Added))
	assert.Equal(t, []string{"B"}, ids(d.Updated))
	assert.Equal(t, []string{"A"}, d.Removed)

	d = w.apply([]*domain.Order{claimed, order("C", domain.StatusPending)})
	assert.True(t, d.Empty())
}

func TestWatchTriggerPollsEarly(t *testing.T) {
	var (
		mu     sync.Mutex
		orders = []*domain.Order{order("A", domain.StatusPending)}
	)
	source := func(ctx context.Context) ([]*domain.Order, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]*domain.Order(nil), orders...), nil
	}

	w := NewWatcher(source, time.Hour, logger.Nop())
	diffs := make(chan Diff, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, func(d Diff) { diffs <- d }) }()

	first := <-diffs
	assert.Equal(t, []string{"A"}, ids(first.Added))

	mu.Lock()
	orders = append(orders, order("B", domain.StatusPending))
	mu.Unlock()
	w.Trigger()

	select {
	case d := <-diffs:
		assert.Equal(t, []string{"B"}, ids(d.Added))
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not cause a poll")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTriggerNeverBlocks(t *testing.T) {
	w := NewWatcher(nil, time.Second, logger.Nop())
	for i := 0; i < 10; i++ {
		w.Trigger()
	}
	assert.Len(t, w.trigger, 1)
}

func TestPollErrorKeepsSnapshot(t *testing.T) {
	fail := false
	source := func(ctx context.Context) ([]*domain.Order, error) {
		if fail {
			return nil, errors.New("store unavailable")
		}
		return []*domain.Order{order("A", domain.StatusPending)}, nil
	}
	w := NewWatcher(source, time.Second, logger.Nop())

	var got []Diff
	record := func(d Diff) { got = append(got, d) }

	w.poll(context.Background(), record)
	fail = true
	w.poll(context.Background(), record)
	fail = false
	w.poll(context.Background(), record)

	require.Len(t, got, 1)
	assert.Contains(t, w.last, "A")
}
