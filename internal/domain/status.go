package domain

import "time"

type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusPreparing      Status = "preparing"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Lifecycle lists the forward path in order. Cancelled sits outside it.
var Lifecycle = []Status{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusDelivered,
}

// ParseStatus returns the status for s or false when s is not a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusPending, StatusAccepted, StatusPreparing, StatusReadyForPickup,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// Rank is the position of s on the forward path, -1 for cancelled.
func (s Status) Rank() int {
	for i, st := range Lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// VendorPhase reports whether only the vendor may act on an order in s.
func (s Status) VendorPhase() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusPreparing
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
)

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int       `json:"id"`
	OrderID   string    `json:"orderId"`
	From      *Status   `json:"from,omitempty"`
	To        Status    `json:"to"`
	Role      Role      `json:"role"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
}
