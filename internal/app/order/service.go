package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/app/retry"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

const maxIDAttempts = 3

type Service struct {
	repo        interfaces.OrderStore
	carts       interfaces.CartRepository
	idem        interfaces.IdempotencyStore
	publisher   interfaces.MessagePublisher
	logger      logger.Logger
	restaurants domain.Directory
	retry       retry.Policy
	now         func() time.Time
	newID       func() string
}

// NewService wires the customer order producer. carts, idem and publisher may be nil.
func NewService(
	repo interfaces.OrderStore,
	carts interfaces.CartRepository,
	idem interfaces.IdempotencyStore,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	restaurants domain.Directory,
	policy retry.Policy,
) *Service {
	return &Service{
		repo:        repo,
		carts:       carts,
		idem:        idem,
		publisher:   publisher,
		logger:      logger,
		restaurants: restaurants,
		retry:       policy,
		now:         time.Now,
		newID:       NewOrderID,
	}
}

// NewOrderID returns a short customer-facing id such as ORD-9F1C2A7B.
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *Service) SubmitOrder(ctx context.Context, cmd interfaces.SubmitOrderCommand) (*domain.Order, error) {
	// 0. Заказ оформляет только сам клиент
	owner := cmd.Actor.ID
	if cmd.Actor.Role != domain.RoleCustomer || owner == "" {
		return nil, domain.ErrForbidden
	}
	if strings.TrimSpace(cmd.Customer.Phone) == "" {
		cmd.Customer.Phone = owner
	}
	if strings.TrimSpace(cmd.Customer.Phone) != owner {
		return nil, domain.ErrForbidden
	}

	generated := cmd.OrderID == ""
	id := cmd.OrderID
	if generated {
		id = s.newID()
	}

	// 1. Повторная отправка с тем же ключом возвращает уже созданный заказ
	key := strings.TrimSpace(cmd.IdempotencyKey)
	if s.idem == nil {
		key = ""
	}
	if key != "" {
		existing, fresh, err := s.idem.Reserve(ctx, owner, key, id)
		switch {
		case err != nil:
			s.logger.Error("idempotency_unavailable", "Idempotency store unavailable", "", nil, err)
			key = ""
		case !fresh:
			return s.replay(ctx, owner, existing)
		}
	}

	order, cart, err := s.place(ctx, cmd, id, generated)
	if err != nil {
		if key != "" {
			if rerr := s.idem.Release(ctx, owner, key); rerr != nil {
				s.logger.Error("idempotency_release_failed", "Failed to release idempotency key", "", nil, rerr)
			}
		}
		return nil, err
	}
	// id мог смениться из-за коллизии, ключ должен указывать на записанный заказ
	if key != "" && order.ID != id {
		if err := s.idem.Bind(ctx, owner, key, order.ID); err != nil {
			s.logger.Error("idempotency_bind_failed", "Failed to bind idempotency key", "", map[string]interface{}{"order_id": order.ID}, err)
		}
	}
	s.logger.Info("order_received", "Order placed", "", map[string]interface{}{
		"order_id":      order.ID,
		"restaurant_id": order.RestaurantID,
		"total":         order.Total.String(),
	})

	// Корзина очищается только после успешной записи
	if cart != nil {
		cart.Clear()
		if err := s.carts.Save(ctx, owner, cart); err != nil {
			s.logger.Error("cart_clear_failed", "Failed to clear cart after checkout", "", map[string]interface{}{"cart_id": cart.ID}, err)
		}
	}

	s.publish(ctx, order)
	return order, nil
}

// replay returns the order an earlier request with the same key created.
func (s *Service) replay(ctx context.Context, owner, orderID string) (*domain.Order, error) {
	prev, err := s.repo.Get(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		// Первый запрос с этим ключом еще не записал заказ
		return nil, &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictDuplicateID}
	}
	if err != nil {
		return nil, err
	}
	if prev.Customer.Phone != owner {
		return nil, &domain.ConflictError{OrderID: orderID, Reason: domain.ConflictDuplicateID}
	}
	return prev, nil
}

// place builds the order from the cart or the explicit items and stores it.
func (s *Service) place(ctx context.Context, cmd interfaces.SubmitOrderCommand, id string, generated bool) (*domain.Order, *domain.Cart, error) {
	// 2. Собираем позиции: из корзины или из запроса
	var (
		cart *domain.Cart
		err  error
	)
	items := make([]domain.OrderItem, 0, len(cmd.Items))
	restaurantID := strings.TrimSpace(cmd.RestaurantID)

	if cmd.CartID != "" && s.carts != nil {
		cart, err = s.carts.Load(ctx, cmd.Actor.ID, cmd.CartID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load cart: %w", err)
		}
		if cart.IsEmpty() {
			return nil, nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "items", Message: "your cart is empty"}}}
		}
		items = cart.OrderItems()
		if restaurantID == "" {
			restaurantID = cart.RestaurantID()
		}
	} else {
		for _, line := range cmd.Items {
			items = append(items, domain.OrderItem{
				ID:       line.ID,
				Name:     line.Name,
				Price:    line.Price,
				Quantity: line.Quantity,
				Options:  line.Options,
			})
		}
	}

	// 3. Ресторан определяет стоимость доставки
	restaurant, ok := s.restaurants.Lookup(restaurantID)
	if !ok {
		return nil, nil, &domain.ValidationError{Fields: []domain.FieldError{{Field: "restaurantId", Message: "unknown restaurant"}}}
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:            id,
		Customer:      cmd.Customer,
		Items:         items,
		DeliveryFee:   restaurant.DeliveryFee,
		PaymentMethod: cmd.PaymentMethod,
		RestaurantID:  restaurant.ID,
		Now:           s.now(),
	})
	if err != nil {
		s.logger.Debug("validation_failed", "Order validation failed", "", map[string]interface{}{"error": err.Error()})
		return nil, nil, err
	}

	// 4. Сохранение
	if err := s.append(ctx, order, generated); err != nil {
		s.logger.Error("order_append_failed", "Failed to store order", "", map[string]interface{}{"order_id": order.ID}, err)
		return nil, nil, err
	}
	return order, cart, nil
}

func (s *Service) append(ctx context.Context, order *domain.Order, regenerate bool) error {
	for attempt := 1; ; attempt++ {
		err := s.retry.Persistence(ctx, func() error {
			return s.repo.Append(ctx, order)
		})

		var conflict *domain.ConflictError
		if !regenerate || attempt == maxIDAttempts || !errors.As(err, &conflict) || conflict.Reason != domain.ConflictDuplicateID {
			return err
		}
		order.ID = s.newID()
	}
}

func (s *Service) publish(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}

	msg := interfaces.OrderMessage{
		OrderID:       order.ID,
		RestaurantID:  order.RestaurantID,
		CustomerName:  order.Customer.Name,
		Items:         order.Items,
		Total:         order.Total,
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt,
	}
	if err := s.publisher.PublishOrder(ctx, msg); err != nil {
		// Не блокируем заказ из-за ошибки уведомления, вендор увидит его при опросе
		s.logger.Error("publish_failed", "Failed to publish new order", "", map[string]interface{}{"order_id": order.ID}, err)
	}
}
