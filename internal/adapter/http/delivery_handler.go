package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// DeliveryHandler serves the rider dashboard.
type DeliveryHandler struct {
	service interfaces.DeliveryService
	logger  logger.Logger
}

func NewDeliveryHandler(service interfaces.DeliveryService, logger logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{service: service, logger: logger}
}

type GoOnlineRequest struct {
	Name string `json:"name"`
}

func (h *DeliveryHandler) GoOnline(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req GoOnlineRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, h.logger, invalidBody())
		return
	}

	rider, err := h.service.GoOnline(r.Context(), actor, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rider)
}

func (h *DeliveryHandler) GoOffline(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	if err := h.service.GoOffline(r.Context(), actor); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeliveryHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	if err := h.service.Heartbeat(r.Context(), actor); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeliveryHandler) Available(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.Available(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *DeliveryHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	tasks, err := h.service.Mine(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *DeliveryHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	tasks, err := h.service.History(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *DeliveryHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Claim)
}

func (h *DeliveryHandler) PickUp(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPickedUp)
}

func (h *DeliveryHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkDelivered)
}

func (h *DeliveryHandler) transition(w http.ResponseWriter, r *http.Request, action func(context.Context, domain.Actor, string) (*domain.Order, error)) {
	actor, _ := ActorFrom(r.Context())

	order, err := action(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
