package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleRider    Role = "rider"
)

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	switch r {
	case RoleCustomer, RoleVendor, RoleRider:
		return r, true
	}
	return "", false
}

// Actor is whoever issues a command against the order store. RestaurantID is
// only set for vendors.
type Actor struct {
	Role         Role
	ID           string
	RestaurantID string
}

func CustomerActor(phone string) Actor { return Actor{Role: RoleCustomer, ID: phone} }

func VendorActor(id, restaurantID string) Actor {
	return Actor{Role: RoleVendor, ID: id, RestaurantID: restaurantID}
}

func RiderActor(id string) Actor { return Actor{Role: RoleRider, ID: id} }

func (a Actor) String() string {
	return string(a.Role) + ":" + a.ID
}
