package tracking

import (
	"context"
	"sort"
	"time"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type Service struct {
	orderRepo        interfaces.OrderStore
	riderRepo        interfaces.RiderRepository
	logger           logger.Logger
	heartbeatTimeout time.Duration
	now              func() time.Time
}

func NewService(orderRepo interfaces.OrderStore, riderRepo interfaces.RiderRepository, logger logger.Logger, heartbeatTimeout time.Duration) *Service {
	return &Service{
		orderRepo:        orderRepo,
		riderRepo:        riderRepo,
		logger:           logger,
		heartbeatTimeout: heartbeatTimeout,
		now:              time.Now,
	}
}

// CustomerOrders returns the customer's orders, newest first.
func (s *Service) CustomerOrders(ctx context.Context, customer domain.Actor) ([]*domain.Order, error) {
	if customer.Role != domain.RoleCustomer || customer.ID == "" {
		return nil, domain.ErrForbidden
	}

	orders, err := s.orderRepo.List(ctx, domain.OrderFilter{CustomerPhone: customer.ID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.Get(ctx, orderID)
}

func (s *Service) GetOrderHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	if _, err := s.orderRepo.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orderRepo.History(ctx, orderID)
}

func (s *Service) GetRidersStatus(ctx context.Context) ([]*interfaces.TrackingRiderResponse, error) {
	riders, err := s.riderRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := make([]*interfaces.TrackingRiderResponse, 0, len(riders))
	for _, r := range riders {
		status := domain.RiderOffline
		if r.IsOnline(s.heartbeatTimeout, now) {
			status = domain.RiderOnline
		}

		resp = append(resp, &interfaces.TrackingRiderResponse{
			RiderID:             r.ID,
			Name:                r.Name,
			Status:              status,
			DeliveriesCompleted: r.DeliveriesCompleted,
			LastSeen:            r.LastSeen,
		})
	}

	return resp, nil
}
