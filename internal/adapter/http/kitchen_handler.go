package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
	"github.com/YelzhanWeb/campuseats/internal/interfaces"
)

// KitchenHandler serves the vendor dashboard.
type KitchenHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewKitchenHandler(service interfaces.KitchenService, logger logger.Logger) *KitchenHandler {
	return &KitchenHandler{service: service, logger: logger}
}

type AdvanceRequest struct {
	Status string `json:"status"`
}

// vendor returns the caller, refusing when the path names another restaurant.
func (h *KitchenHandler) vendor(r *http.Request) (domain.Actor, error) {
	actor, _ := ActorFrom(r.Context())
	if rid := chi.URLParam(r, "restaurantID"); rid != "" && rid != actor.RestaurantID {
		return actor, domain.ErrForbidden
	}
	return actor, nil
}

func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	actor, err := h.vendor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var statuses []domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := domain.ParseStatus(strings.TrimSpace(part))
			if !ok {
				writeError(w, r, h.logger, &domain.ValidationError{Fields: []domain.FieldError{{Field: "status", Message: "unknown status " + part}}})
				return
			}
			statuses = append(statuses, st)
		}
	}

	orders, err := h.service.Queue(r.Context(), actor, statuses, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(orders))
}

func (h *KitchenHandler) Counts(w http.ResponseWriter, r *http.Request) {
	actor, err := h.vendor(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	counts, err := h.service.Counts(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (h *KitchenHandler) Advance(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req AdvanceRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, h.logger, invalidBody())
		return
	}

	var to domain.Status
	if req.Status != "" {
		st, ok := domain.ParseStatus(req.Status)
		if !ok {
			writeError(w, r, h.logger, &domain.ValidationError{Fields: []domain.FieldError{{Field: "status", Message: "unknown status"}}})
			return
		}
		to = st
	}

	order, err := h.service.Advance(r.Context(), actor, chi.URLParam(r, "orderID"), to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *KitchenHandler) Decline(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	order, err := h.service.Decline(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *KitchenHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	order, err := h.service.Cancel(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
