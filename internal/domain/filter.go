package domain

import (
	"sort"
	"strings"
	"time"
)

// OrderFilter selects orders for one actor's view. Zero fields match everything.
type OrderFilter struct {
	Statuses      []Status
	RestaurantID  string
	RiderID       string
	CustomerPhone string
	Unclaimed     bool
	CreatedBefore time.Time
	// Search matches a substring of the order id or customer name, ignoring case.
	Search string
}

func (f OrderFilter) Match(o *Order) bool {
	if len(f.Statuses) > 0 && !f.hasStatus(o.Status) {
		return false
	}
	if f.RestaurantID != "" && o.RestaurantID != f.RestaurantID {
		return false
	}
	if f.RiderID != "" && !o.ClaimedBy(f.RiderID) {
		return false
	}
	if f.CustomerPhone != "" && o.Customer.Phone != f.CustomerPhone {
		return false
	}
	if f.Unclaimed && o.RiderID != nil {
		return false
	}
	if !f.CreatedBefore.IsZero() && !o.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	if q := f.SearchTerm(); q != "" {
		return strings.Contains(strings.ToLower(o.ID), q) ||
			strings.Contains(strings.ToLower(o.Customer.Name), q)
	}
	return true
}

// SearchTerm is the normalized Search value.
func (f OrderFilter) SearchTerm() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}

func (f OrderFilter) hasStatus(s Status) bool {
	for _, st := range f.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// SortByCreated orders oldest first, breaking ties by id.
func SortByCreated(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

// Common views.
var (
	VendorActiveStatuses = []Status{StatusPending, StatusAccepted, StatusPreparing, StatusReadyForPickup}
	RiderActiveStatuses  = []Status{StatusReadyForPickup, StatusOutForDelivery}
)
