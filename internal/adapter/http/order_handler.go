package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// OrderHandler serves the customer side: checkout and order tracking.
type OrderHandler struct {
	checkout interfaces.CheckoutService
	tracking interfaces.TrackingService
	logger   logger.Logger
}

func NewOrderHandler(checkout interfaces.CheckoutService, tracking interfaces.TrackingService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		tracking: tracking,
		logger:   logger,
	}
}

type SubmitOrderRequest struct {
	ID            string              `json:"id,omitempty"`
	CartID        string              `json:"cartId,omitempty"`
	Items         []domain.CartItem   `json:"items,omitempty"`
	RestaurantID  string              `json:"restaurantId,omitempty"`
	Customer      domain.CustomerInfo `json:"customer"`
	PaymentMethod string              `json:"paymentMethod"`
}

func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req SubmitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, invalidBody())
		return
	}

	cmd := interfaces.SubmitOrderCommand{
		Actor:          actor,
		OrderID:        strings.TrimSpace(req.ID),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		CartID:         req.CartID,
		Items:          req.Items,
		RestaurantID:   req.RestaurantID,
		Customer:       req.Customer,
		PaymentMethod:  req.PaymentMethod,
	}

	order, err := h.checkout.SubmitOrder(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Debug("order_submitted", "Order submitted", RequestID(r.Context()), map[string]interface{}{"order_id": order.ID})
	respondJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	orders, err := h.tracking.CustomerOrders(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(orders))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.tracking.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.tracking.GetOrderHistory(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(history))
}

func (h *OrderHandler) RidersStatus(w http.ResponseWriter, r *http.Request) {
	riders, err := h.tracking.GetRidersStatus(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(riders))
}

// nonNil keeps empty lists as [] instead of null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
