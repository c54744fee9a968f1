package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
)

type ErrorResponse struct {
	Error         string              `json:"error"`
	Reason        string              `json:"reason,omitempty"`
	CurrentStatus domain.Status       `json:"currentStatus,omitempty"`
	Errors        []domain.FieldError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// writeError maps service errors to status codes. Clients get the denial
// reason but never internal error text.
func writeError(w http.ResponseWriter, r *http.Request, lgr logger.Logger, err error) {
	var (
		verr *domain.ValidationError
		cerr *domain.ConflictError
		perr *domain.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Errors: verr.Fields})
	case errors.As(err, &cerr):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:         cerr.Message(),
			Reason:        string(cerr.Reason),
			CurrentStatus: cerr.Current,
		})
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrRiderNotFound):
		respondError(w, "rider not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, "forbidden", http.StatusForbidden)
	case errors.As(err, &perr):
		lgr.Error("persistence_failed", "Store unavailable", RequestID(r.Context()), map[string]interface{}{"op": perr.Op}, err)
		respondError(w, "temporarily unavailable, please retry", http.StatusServiceUnavailable)
	default:
		lgr.Error("request_failed", "Unexpected error", RequestID(r.Context()), map[string]interface{}{"path": r.URL.Path}, err)
		respondError(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func invalidBody() error {
	return &domain.ValidationError{Fields: []domain.FieldError{{Field: "body", Message: "invalid request body"}}}
}
