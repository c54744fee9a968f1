package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Order represents a customer order moving through the delivery lifecycle
type Order struct {
	ID            string          `json:"id"`
	Customer      CustomerInfo    `json:"customer"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	Status        Status          `json:"status"`
	RestaurantID  string          `json:"restaurantId"`
	RiderID       *string         `json:"riderId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type CustomerInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Notes    string `json:"notes,omitempty"`
}

// OrderItem represents an item in an order
type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Options  []string        `json:"options,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentMethods accepted at checkout. Cash is settled on delivery.
var PaymentMethods = map[string]PaymentStatus{
	"palmpay":    PaymentPaid,
	"opay":       PaymentPaid,
	"kuda":       PaymentPaid,
	"moniepoint": PaymentPaid,
	"gtbank":     PaymentPaid,
	"zenith":     PaymentPaid,
	"access":     PaymentPaid,
	"uba":        PaymentPaid,
	"cash":       PaymentPending,
}

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NewOrderParams carries everything the producer knows at checkout.
type NewOrderParams struct {
	ID            string
	Customer      CustomerInfo
	Items         []OrderItem
	DeliveryFee   decimal.Decimal
	PaymentMethod string
	RestaurantID  string
	Now           time.Time
}

// NewOrder creates a pending order with totals computed from its items
func NewOrder(p NewOrderParams) (*Order, error) {
	order := &Order{
		ID:            strings.TrimSpace(p.ID),
		Customer:      p.Customer,
		Items:         p.Items,
		DeliveryFee:   p.DeliveryFee,
		PaymentMethod: strings.ToLower(strings.TrimSpace(p.PaymentMethod)),
		Status:        StatusPending,
		RestaurantID:  strings.TrimSpace(p.RestaurantID),
		CreatedAt:     p.Now.UTC(),
		UpdatedAt:     p.Now.UTC(),
	}
	order.Customer.Name = strings.TrimSpace(order.Customer.Name)
	order.Customer.Phone = strings.TrimSpace(order.Customer.Phone)
	order.Customer.Location = strings.TrimSpace(order.Customer.Location)

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.PaymentStatus = PaymentMethods[order.PaymentMethod]
	order.CalculateTotal()
	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	verr := &ValidationError{}

	if o.ID == "" {
		verr.add("id", "order id is required")
	}
	if o.RestaurantID == "" {
		verr.add("restaurantId", "restaurant is required")
	}
	if o.Customer.Name == "" {
		verr.add("customer.name", "customer name is required")
	} else if len(o.Customer.Name) > 100 {
		verr.add("customer.name", "customer name must not exceed 100 characters")
	}
	if !phoneRegex.MatchString(o.Customer.Phone) {
		verr.add("customer.phone", "phone must be 7-15 digits")
	}
	if o.Customer.Location == "" {
		verr.add("customer.location", "delivery location is required")
	}
	if _, ok := PaymentMethods[o.PaymentMethod]; !ok {
		verr.add("paymentMethod", "unsupported payment method")
	}
	if o.DeliveryFee.IsNegative() {
		verr.add("deliveryFee", "delivery fee must not be negative")
	}

	if len(o.Items) == 0 {
		verr.add("items", "order must contain at least 1 item")
	}
	for i, item := range o.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.ID) == "" {
			verr.add(prefix+".id", "item id is required")
		}
		if strings.TrimSpace(item.Name) == "" {
			verr.add(prefix+".name", "item name is required")
		}
		if item.Quantity < 1 {
			verr.add(prefix+".quantity", "item quantity must be at least 1")
		}
		if item.Price.IsNegative() {
			verr.add(prefix+".price", "item price must not be negative")
		}
	}

	return verr.orNil()
}

// CalculateTotal recomputes subtotal and total from the items
func (o *Order) CalculateTotal() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.DeliveryFee)
}

func (o *Order) ClaimedBy(riderID string) bool {
	return o.RiderID != nil && *o.RiderID == riderID
}

// CheckChange verifies that c can be applied to o right now.
func (o *Order) CheckChange(c Change) error {
	if err := c.Authorize(); err != nil {
		return err
	}
	if c.Actor.Role == RoleVendor && c.Actor.RestaurantID != o.RestaurantID {
		return ErrForbidden
	}
	if o.Status != c.From {
		return conflict(o.ID, ConflictStatusMismatch, o.Status)
	}

	switch {
	case c.IsClaim():
		if o.RiderID != nil {
			return conflict(o.ID, ConflictAlreadyClaimed, o.Status)
		}
	case c.Actor.Role == RoleRider:
		if !o.ClaimedBy(c.Actor.ID) {
			if o.RiderID == nil {
				return conflict(o.ID, ConflictInvalidTransition, o.Status)
			}
			return conflict(o.ID, ConflictNotYourDelivery, o.Status)
		}
	}
	return nil
}

// TransitionTo applies c to the order after checking it
func (o *Order) TransitionTo(c Change, now time.Time) error {
	if err := o.CheckChange(c); err != nil {
		return err
	}

	if c.IsClaim() {
		rider := c.Actor.ID
		o.RiderID = &rider
	}
	o.Status = c.To
	o.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy so stored orders are never shared with callers.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		cp.Items[i] = item
		if item.Options != nil {
			cp.Items[i].Options = append([]string(nil), item.Options...)
		}
	}
	if o.RiderID != nil {
		rider := *o.RiderID
		cp.RiderID = &rider
	}
	return &cp
}
