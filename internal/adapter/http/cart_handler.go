package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

type CartHandler struct {
	service interfaces.CartService
	logger  logger.Logger
}

func NewCartHandler(service interfaces.CartService, logger logger.Logger) *CartHandler {
	return &CartHandler{service: service, logger: logger}
}

type CartResponse struct {
	ID        string            `json:"id"`
	Items     []domain.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func newCartResponse(c *domain.Cart) CartResponse {
	return CartResponse{ID: c.ID, Items: c.Items, Total: c.Total(), ItemCount: c.ItemCount()}
}

func callerFrom(r *http.Request) domain.Actor {
	actor, _ := ActorFrom(r.Context())
	return actor
}

type UpdateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Get(r.Context(), callerFrom(r), chi.URLParam(r, "cartID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.CartItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, r, h.logger, invalidBody())
		return
	}

	cart, err := h.service.AddItem(r.Context(), callerFrom(r), chi.URLParam(r, "cartID"), item)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, invalidBody())
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), callerFrom(r), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveItem(r.Context(), callerFrom(r), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), callerFrom(r), chi.URLParam(r, "cartID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
