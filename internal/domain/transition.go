package domain

type edge struct {
	from Status
	to   Status
}

// transitions maps every legal edge to the only role allowed to write it.
// The ready_for_pickup self-edge is the rider claim.
var transitions = map[edge]Role{
	{StatusPending, StatusAccepted}:              RoleVendor,
	{StatusPending, StatusCancelled}:             RoleVendor,
	{StatusAccepted, StatusPreparing}:            RoleVendor,
	{StatusAccepted, StatusCancelled}:            RoleVendor,
	{StatusPreparing, StatusReadyForPickup}:      RoleVendor,
	{StatusPreparing, StatusCancelled}:           RoleVendor,
	{StatusReadyForPickup, StatusReadyForPickup}: RoleRider,
	{StatusReadyForPickup, StatusOutForDelivery}: RoleRider,
	{StatusOutForDelivery, StatusDelivered}:      RoleRider,
}

// RoleFor returns the role owning the from->to edge.
func RoleFor(from, to Status) (Role, bool) {
	r, ok := transitions[edge{from, to}]
	return r, ok
}

// NextVendorStatus is the status a vendor "advance" moves to from s.
func NextVendorStatus(s Status) (Status, bool) {
	switch s {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReadyForPickup, true
	}
	return "", false
}

// PreviousVendorStatus is the status a vendor must find the order in to
// advance it to s.
func PreviousVendorStatus(s Status) (Status, bool) {
	for _, from := range []Status{StatusPending, StatusAccepted, StatusPreparing} {
		if next, _ := NextVendorStatus(from); next == s {
			return from, true
		}
	}
	return "", false
}

// Change is a conditional status update: it only applies when the order is
// still in From.
type Change struct {
	OrderID string
	From    Status
	To      Status
	Actor   Actor
}

func (c Change) IsClaim() bool {
	return c.From == StatusReadyForPickup && c.To == StatusReadyForPickup
}

// Authorize checks the edge and the actor's role without looking at an order.
func (c Change) Authorize() error {
	role, ok := RoleFor(c.From, c.To)
	if !ok {
		return conflict(c.OrderID, ConflictInvalidTransition, c.From)
	}
	if role != c.Actor.Role || c.Actor.ID == "" {
		return ErrForbidden
	}
	if role == RoleVendor && c.Actor.RestaurantID == "" {
		return ErrForbidden
	}
	return nil
}
