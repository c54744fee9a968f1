package cart

import (
	"context"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// Service keeps the pre-order cart. Nothing here touches the order store.
// Carts belong to the customer whose token made the call.
type Service struct {
	repo   interfaces.CartRepository
	logger logger.Logger
}

func NewService(repo interfaces.CartRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(ctx context.Context, customer domain.Actor, cartID string) (*domain.Cart, error) {
	if err := checkCustomer(customer); err != nil {
		return nil, err
	}
	return s.repo.Load(ctx, customer.ID, cartID)
}

func (s *Service) AddItem(ctx context.Context, customer domain.Actor, cartID string, item domain.CartItem) (*domain.Cart, error) {
	return s.mutate(ctx, customer, cartID, func(c *domain.Cart) error {
		return c.AddItem(item)
	})
}

func (s *Service) RemoveItem(ctx context.Context, customer domain.Actor, cartID, itemID string) (*domain.Cart, error) {
	return s.mutate(ctx, customer, cartID, func(c *domain.Cart) error {
		c.RemoveItem(itemID)
		return nil
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, customer domain.Actor, cartID, itemID string, delta int) (*domain.Cart, error) {
	return s.mutate(ctx, customer, cartID, func(c *domain.Cart) error {
		c.UpdateQuantity(itemID, delta)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, customer domain.Actor, cartID string) error {
	if err := checkCustomer(customer); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, customer.ID, cartID); err != nil {
		s.logger.Error("cart_clear_failed", "Failed to clear cart", "", map[string]interface{}{"cart_id": cartID}, err)
		return err
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, customer domain.Actor, cartID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	if err := checkCustomer(customer); err != nil {
		return nil, err
	}

	c, err := s.repo.Load(ctx, customer.ID, cartID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, customer.ID, c); err != nil {
		s.logger.Error("cart_save_failed", "Failed to save cart", "", map[string]interface{}{"cart_id": cartID}, err)
		return nil, err
	}

	s.logger.Debug("cart_updated", "Cart updated", "", map[string]interface{}{
		"cart_id":    cartID,
		"item_count": c.ItemCount(),
		"total":      c.Total().String(),
	})
	return c, nil
}

func checkCustomer(a domain.Actor) error {
	if a.Role != domain.RoleCustomer || a.ID == "" {
		return domain.ErrForbidden
	}
	return nil
}
