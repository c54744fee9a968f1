package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Service is the rider side of the order lifecycle.
type Service struct {
	orderRepo        interfaces.OrderStore
	riderRepo        interfaces.RiderRepository
	publisher        interfaces.MessagePublisher
	logger           logger.Logger
	restaurants      domain.Directory
	retry            retry.Policy
	heartbeatTimeout time.Duration
	now              func() time.Time
}

func NewService(
	orderRepo interfaces.OrderStore,
	riderRepo interfaces.RiderRepository,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	restaurants domain.Directory,
	policy retry.Policy,
	heartbeatTimeout time.Duration,
) *Service {
	return &Service{
		orderRepo:        orderRepo,
		riderRepo:        riderRepo,
		publisher:        publisher,
		logger:           logger,
		restaurants:      restaurants,
		retry:            policy,
		heartbeatTimeout: heartbeatTimeout,
		now:              time.Now,
	}
}

func (s *Service) GoOnline(ctx context.Context, rider domain.Actor, name string) (*domain.Rider, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	now := s.now()

	r, err := s.riderRepo.FindByID(ctx, rider.ID)
	switch {
	case err == nil:
		r.Status = domain.RiderOnline
		r.LastSeen = now
		if name != "" {
			r.Name = name
		}
		if err := s.riderRepo.Update(ctx, r); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrRiderNotFound):
		r, err = domain.NewRider(rider.ID, name, now)
		if err != nil {
			return nil, err
		}
		if err := s.riderRepo.Create(ctx, r); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.logger.Info("rider_online", fmt.Sprintf("Rider %s is online", r.ID), "", nil)
	return r, nil
}

func (s *Service) GoOffline(ctx context.Context, rider domain.Actor) error {
	if err := checkRider(rider); err != nil {
		return err
	}
	r, err := s.riderRepo.FindByID(ctx, rider.ID)
	if err != nil {
		return err
	}
	r.Status = domain.RiderOffline
	if err := s.riderRepo.Update(ctx, r); err != nil {
		return err
	}

	s.logger.Info("rider_offline", fmt.Sprintf("Rider %s went offline", r.ID), "", nil)
	return nil
}

func (s *Service) Heartbeat(ctx context.Context, rider domain.Actor) error {
	if err := checkRider(rider); err != nil {
		return err
	}
	if err := s.riderRepo.UpdateHeartbeat(ctx, rider.ID, s.now()); err != nil {
		s.logger.Error("heartbeat_failed", "Failed to update heartbeat", "", map[string]interface{}{"rider_id": rider.ID}, err)
		return err
	}
	return nil
}

// Available lists orders ready at a restaurant that nobody has claimed yet.
func (s *Service) Available(ctx context.Context) ([]domain.DeliveryTask, error) {
	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{
		Statuses:  []domain.Status{domain.StatusReadyForPickup},
		Unclaimed: true,
	})
	if err != nil {
		return nil, err
	}
	return s.tasks(orders), nil
}

// Mine lists the rider's claimed deliveries that are not finished.
func (s *Service) Mine(ctx context.Context, rider domain.Actor) ([]domain.DeliveryTask, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{
		Statuses: domain.RiderActiveStatuses,
		RiderID:  rider.ID,
	})
	if err != nil {
		return nil, err
	}
	return s.tasks(orders), nil
}

// History lists the rider's delivered orders, most recently delivered first.
func (s *Service) History(ctx context.Context, rider domain.Actor) ([]domain.DeliveryTask, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{
		Statuses: []domain.Status{domain.StatusDelivered},
		RiderID:  rider.ID,
	})
	if err != nil {
		return nil, err
	}
	tasks := s.tasks(orders)
	delivered := make(map[string]time.Time, len(orders))
	for _, o := range orders {
		delivered[o.ID] = o.UpdatedAt
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return delivered[tasks[i].OrderID].After(delivered[tasks[j].OrderID])
	})
	return tasks, nil
}

// Claim assigns a ready order to the rider. Of several riders claiming the
// same order exactly one succeeds.
func (s *Service) Claim(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	if err := s.requireOnline(ctx, rider, orderID); err != nil {
		return nil, err
	}

	return s.updateStatusAndNotify(ctx, domain.Change{
		OrderID: orderID,
		From:    domain.StatusReadyForPickup,
		To:      domain.StatusReadyForPickup,
		Actor:   rider,
	})
}

func (s *Service) MarkPickedUp(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	return s.updateStatusAndNotify(ctx, domain.Change{
		OrderID: orderID,
		From:    domain.StatusReadyForPickup,
		To:      domain.StatusOutForDelivery,
		Actor:   rider,
	})
}

func (s *Service) MarkDelivered(ctx context.Context, rider domain.Actor, orderID string) (*domain.Order, error) {
	if err := checkRider(rider); err != nil {
		return nil, err
	}
	order, err := s.updateStatusAndNotify(ctx, domain.Change{
		OrderID: orderID,
		From:    domain.StatusOutForDelivery,
		To:      domain.StatusDelivered,
		Actor:   rider,
	})
	if err != nil {
		return nil, err
	}

	// Обновляем счетчик доставок
	if err := s.riderRepo.IncrementDeliveries(ctx, rider.ID); err != nil {
		s.logger.Error("db_error", "Failed to increment rider stats", "", map[string]interface{}{"rider_id": rider.ID}, err)
	}
	return order, nil
}

func (s *Service) requireOnline(ctx context.Context, rider domain.Actor, orderID string) error {
	r, err := s.riderRepo.FindByID(ctx, rider.ID)
	if errors.Is(err, domain.ErrRiderNotFound) {
		return &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictRiderOffline}
	}
	if err != nil {
		return err
	}
	if !r.IsOnline(s.heartbeatTimeout, s.now()) {
		return &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictRiderOffline}
	}
	return nil
}

func (s *Service) tasks(orders []*domain.Order) []domain.DeliveryTask {
	domain.SortByCreated(orders)
	tasks := make([]domain.DeliveryTask, 0, len(orders))
	for _, o := range orders {
		restaurant, _ := s.restaurants.Lookup(o.RestaurantID)
		tasks = append(tasks, domain.NewDeliveryTask(o, restaurant))
	}
	return tasks
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

	action := "order_status_updated"
	if change.IsClaim() {
		action = "order_claimed"
	}
	s.logger.Info(action, fmt.Sprintf("Order %s is now %s", updated.ID, updated.Status), "", map[string]interface{}{
		"order_id": updated.ID,
		"rider_id": change.Actor.ID,
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
		RiderID:      change.Actor.ID,
		Timestamp:    updated.UpdatedAt,
	}
	if err := s.publisher.PublishStatusUpdate(ctx, notification); err != nil {
		s.logger.Error("publish_failed", "Failed to publish status update", "", map[string]interface{}{"order_id": updated.ID}, err)
	}

	return updated, nil
}

func checkRider(a domain.Actor) error {
	if a.Role != domain.RoleRider || a.ID == "" {
		return domain.ErrForbidden
	}
	return nil
}
