package kitchen

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Service is the vendor side of the order lifecycle.
type Service struct {
	orderRepo interfaces.OrderStore
	publisher interfaces.MessagePublisher
	logger    logger.Logger
	retry     retry.Policy
	now       func() time.Time
}

func NewService(
	orderRepo interfaces.OrderStore,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	policy retry.Policy,
) *Service {
	return &Service{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
		retry:     policy,
		now:       time.Now,
	}
}

// Queue returns the restaurant's orders in arrival order. An empty statuses
// list means every order the kitchen still has to deal with; search narrows
// the list by order id or customer name.
func (s *Service) Queue(ctx context.Context, vendor domain.Actor, statuses []domain.Status, search string) ([]*domain.Order, error) {
	if err := checkVendor(vendor); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		statuses = domain.VendorActiveStatuses
	}

	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{
		Statuses:     statuses,
		RestaurantID: vendor.RestaurantID,
		Search:       search,
	})
	if err != nil {
		return nil, err
	}
	domain.SortByCreated(orders)
	return orders, nil
}

// Counts returns how many of the restaurant's orders sit in each status.
func (s *Service) Counts(ctx context.Context, vendor domain.Actor) (map[domain.Status]int, error) {
	if err := checkVendor(vendor); err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{RestaurantID: vendor.RestaurantID})
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int, len(domain.Lifecycle)+1)
	for _, st := range domain.Lifecycle {
		counts[st] = 0
	}
	counts[domain.StatusCancelled] = 0
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts, nil
}

// Advance moves an order one step forward. When to is empty the next step
// after the order's current status is used.
func (s *Service) Advance(ctx context.Context, vendor domain.Actor, orderID string, to domain.Status) (*domain.Order, error) {
	if err := checkVendor(vendor); err != nil {
		return nil, err
	}

	if to == "" {
		current, err := s.orderRepo.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		next, ok := domain.NextVendorStatus(current.Status)
		if !ok {
			return nil, &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictInvalidTransition, Current: current.Status}
		}
		to = next
	}

	from, ok := domain.PreviousVendorStatus(to)
	if !ok {
		return nil, &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictInvalidTransition}
	}

	return s.updateStatusAndNotify(ctx, domain.Change{OrderID: orderID, From: from, To: to, Actor: vendor})
}

// Decline rejects an order the kitchen has not accepted yet.
func (s *Service) Decline(ctx context.Context, vendor domain.Actor, orderID string) (*domain.Order, error) {
	if err := checkVendor(vendor); err != nil {
		return nil, err
	}
	return s.updateStatusAndNotify(ctx, domain.Change{
		OrderID: orderID,
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		Actor:   vendor,
	})
}

// Cancel stops an order at any point before it is handed to a rider.
func (s *Service) Cancel(ctx context.Context, vendor domain.Actor, orderID string) (*domain.Order, error) {
	if err := checkVendor(vendor); err != nil {
		return nil, err
	}

	current, err := s.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.VendorPhase() {
		return nil, &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictInvalidTransition, Current: current.Status}
	}

	return s.updateStatusAndNotify(ctx, domain.Change{
		OrderID: orderID,
		From:    current.Status,
		To:      domain.StatusCancelled,
		Actor:   vendor,
	})
}

func (s *Service) updateStatusAndNotify(ctx context.Context, change domain.Change) (*domain.Order, error) {
	var updated *domain.Order
	err := s.retry.Persistence(ctx, func() error {
		var err error
		updated, err = s.orderRepo.UpdateStatus(ctx, change)
		return err
	})
	if err != nil {
		s.logger.Debug("status_change_rejected", fmt.Sprintf("Order %s: %s -> %s rejected", change.OrderID, change.From, change.To), "", map[string]interface{}{
			"order_id": change.OrderID,
			"actor":    change.Actor.String(),
			"error":    err.Error(),
		})
		return nil, err
	}

	s.logger.Info("order_status_updated", fmt.Sprintf("Order %s is now %s", updated.ID, updated.Status), "", map[string]interface{}{
		"order_id":      updated.ID,
		"restaurant_id": updated.RestaurantID,
		"old_status":    change.From,
		"new_status":    change.To,
	})

	if s.publisher == nil {
		return updated, nil
	}
	notification := interfaces.StatusUpdateMessage{
		Event:        interfaces.EventStatusChanged,
		OrderID:      updated.ID,
		RestaurantID: updated.RestaurantID,
		OldStatus:    change.From,
		NewStatus:    change.To,
		ChangedBy:    change.Actor.ID,
		Role:         change.Actor.Role,
		Timestamp:    updated.UpdatedAt,
	}
	if err := s.publisher.PublishStatusUpdate(ctx, notification); err != nil {
		// Не блокируем процесс из-за ошибки уведомления
		s.logger.Error("publish_failed", "Failed to publish status update", "", map[string]interface{}{"order_id": updated.ID}, err)
	}

	return updated, nil
}

func checkVendor(a domain.Actor) error {
	if a.Role != domain.RoleVendor || a.ID == "" || a.RestaurantID == "" {
		return domain.ErrForbidden
	}
	return nil
}
