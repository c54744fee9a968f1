package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrRiderNotFound = errors.New("rider not found")
	ErrForbidden     = errors.New("actor is not allowed to perform this action")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before anything is persisted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type ConflictReason string

const (
	ConflictDuplicateID       ConflictReason = "duplicate_id"
	ConflictStatusMismatch    ConflictReason = "status_mismatch"
	ConflictAlreadyClaimed    ConflictReason = "already_claimed"
	ConflictNotYourDelivery   ConflictReason = "not_your_delivery"
	ConflictInvalidTransition ConflictReason = "invalid_transition"
	ConflictRiderOffline      ConflictReason = "rider_offline"
)

// ConflictError means the order is not in the state the caller assumed.
// Callers should re-read rather than retry.
type ConflictError struct {
	OrderID string
	Reason  ConflictReason
	Current Status
}

func (e *ConflictError) Error() string {
	if e.Current != "" {
		return fmt.Sprintf("order %s: %s (current status %s)", e.OrderID, e.Reason, e.Current)
	}
	return fmt.Sprintf("order %s: %s", e.OrderID, e.Reason)
}

// Message is the denial reason shown to the actor.
func (e *ConflictError) Message() string {
	switch e.Reason {
	case ConflictDuplicateID:
		return "an order with this id already exists"
	case ConflictAlreadyClaimed:
		return "already claimed by another rider"
	case ConflictNotYourDelivery:
		return "this delivery belongs to another rider"
	case ConflictRiderOffline:
		return "go online before claiming deliveries"
	case ConflictStatusMismatch:
		if e.Current == StatusCancelled || e.Current.Rank() > StatusReadyForPickup.Rank() {
			return "order no longer available"
		}
		return "order status changed, refresh and try again"
	default:
		return "this action is not possible for the order's current status"
	}
}

func conflict(orderID string, reason ConflictReason, current Status) error {
	return &ConflictError{OrderID: orderID, Reason: reason, Current: current}
}

// PersistenceError wraps a storage failure. The write it reports did not happen.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
