package feed

import (
	"context"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// Source loads the current view a watcher follows, for example one
// restaurant's queue or the open delivery list.
type Source func(ctx context.Context) ([]*domain.Order, error)

// Diff is what changed between two polls of a Source.
type Diff struct {
	Added   []*domain.Order
	Updated []*domain.Order
	Removed []string
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

type snapshot struct {
	status domain.Status
	rider  string
}

func snapshotOf(o *domain.Order) snapshot {
	s := snapshot{status: o.Status}
	if o.RiderID != nil {
		s.rider = *o.RiderID
	}
	return s
}

// Watcher polls a Source and reports differences. The broker can cut the
// wait short through Trigger; polling alone is enough for correctness.
type Watcher struct {
	source   Source
	interval time.Duration
	logger   logger.Logger
	trigger  chan struct{}
	last     map[string]snapshot
}

func NewWatcher(source Source, interval time.Duration, logger logger.Logger) *Watcher {
	return &Watcher{
		source:   source,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an early poll. It never blocks.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Watch polls until ctx is done. The first poll reports every order as added.
func (w *Watcher) Watch(ctx context.Context, fn func(Diff)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx, fn)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.trigger:
		}
		w.poll(ctx, fn)
	}
}

func (w *Watcher) poll(ctx context.Context, fn func(Diff)) {
	orders, err := w.source(ctx)
	if err != nil {
		// Последний снимок остается, попробуем на следующем тике
		w.logger.Error("feed_poll_failed", "Failed to poll orders", "", nil, err)
		return
	}

	diff := w.apply(orders)
	if !diff.Empty() {
		fn(diff)
	}
}

func (w *Watcher) apply(orders []*domain.Order) Diff {
	var diff Diff
	next := make(map[string]snapshot, len(orders))

	for _, o := range orders {
		snap := snapshotOf(o)
		next[o.ID] = snap

		prev, seen := w.last[o.ID]
		switch {
		case !seen:
			diff.Added = append(diff.Added, o)
		case prev != snap:
			diff.Updated = append(diff.Updated, o)
		}
	}
	for id := range w.last {
		if _, ok := next[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}

	w.last = next
	return diff
}
