package domain

import (
	"errors"
	"time"
)

// Rider represents a delivery rider
type Rider struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Status              RiderStatus `json:"status"`
	LastSeen            time.Time   `json:"lastSeen"`
	DeliveriesCompleted int         `json:"deliveriesCompleted"`
	CreatedAt           time.Time   `json:"createdAt"`
}

type RiderStatus string

const (
	RiderOnline  RiderStatus = "online"
	RiderOffline RiderStatus = "offline"
)

// NewRider creates a new rider that is online from now
func NewRider(id, name string, now time.Time) (*Rider, error) {
	if id == "" {
		return nil, errors.New("rider id is required")
	}
	if name == "" {
		name = id
	}

	return &Rider{
		ID:        id,
		Name:      name,
		Status:    RiderOnline,
		LastSeen:  now,
		CreatedAt: now,
	}, nil
}

// IsOnline checks if the rider is considered online based on last heartbeat
func (r *Rider) IsOnline(heartbeatTimeout time.Duration, now time.Time) bool {
	if r.Status == RiderOffline {
		return false
	}
	return now.Sub(r.LastSeen) <= heartbeatTimeout
}
