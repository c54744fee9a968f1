package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Sweeper reports orders that stayed pending too long. It never changes an
// order's status; cancelling stays with the vendor.
type Sweeper struct {
	orderRepo    interfaces.OrderStore
	publisher    interfaces.MessagePublisher
	logger       logger.Logger
	interval     time.Duration
	pendingAfter time.Duration
	now          func() time.Time
	notified     map[string]bool
}

func NewSweeper(
	orderRepo interfaces.OrderStore,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	interval time.Duration,
	pendingAfter time.Duration,
) *Sweeper {
	return &Sweeper{
		orderRepo:    orderRepo,
		publisher:    publisher,
		logger:       logger,
		interval:     interval,
		pendingAfter: pendingAfter,
		now:          time.Now,
		notified:     make(map[string]bool),
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep_failed", "Failed to sweep pending orders", "", nil, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep publishes one overdue notice per order that has been pending longer
// than the threshold and returns how many were sent.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.orderRepo.List(ctx, domain.OrderFilter{
		Statuses:      []domain.Status{domain.StatusPending},
		CreatedBefore: now.Add(-s.pendingAfter),
	})
	if err != nil {
		return 0, err
	}

	still := make(map[string]bool, len(overdue))
	sent := 0
	for _, o := range overdue {
		still[o.ID] = true
		if s.notified[o.ID] {
			continue
		}

		msg := interfaces.StatusUpdateMessage{
			Event:        interfaces.EventOrderOverdue,
			OrderID:      o.ID,
			RestaurantID: o.RestaurantID,
			OldStatus:    o.Status,
			NewStatus:    o.Status,
			Timestamp:    now,
		}
		if err := s.publisher.PublishStatusUpdate(ctx, msg); err != nil {
			s.logger.Error("publish_failed", "Failed to publish overdue notice", "", map[string]interface{}{"order_id": o.ID}, err)
			continue
		}
		s.notified[o.ID] = true
		sent++

		s.logger.Info("order_overdue", fmt.Sprintf("Order %s pending since %s", o.ID, o.CreatedAt.Format(time.RFC3339)), "", map[string]interface{}{
			"order_id":      o.ID,
			"restaurant_id": o.RestaurantID,
		})
	}

	// Заказы, которые вендор уже обработал, больше не отслеживаем
	for id := range s.notified {
		if !still[id] {
			delete(s.notified, id)
		}
	}
	return sent, nil
}
