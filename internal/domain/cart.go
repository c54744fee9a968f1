package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CartItem is a line in a customer's pre-order cart.
type CartItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Image        string          `json:"image,omitempty"`
	RestaurantID string          `json:"restaurantId,omitempty"`
	Options      []string        `json:"options,omitempty"`
}

// Cart belongs to a single customer session and never leaves it until checkout.
type Cart struct {
	ID    string     `json:"id"`
	Items []CartItem `json:"items"`
}

func NewCart(id string) *Cart {
	return &Cart{ID: id, Items: []CartItem{}}
}

// AddItem merges by id: an existing line gains one unit, a new line starts at one.
func (c *Cart) AddItem(item CartItem) error {
	verr := &ValidationError{}
	if strings.TrimSpace(item.ID) == "" {
		verr.add("id", "item id is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		verr.add("name", "item name is required")
	}
	if item.Price.IsNegative() {
		verr.add("price", "item price must not be negative")
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	for i := range c.Items {
		if c.Items[i].ID == item.ID {
			c.Items[i].Quantity++
			return nil
		}
	}
	item.Quantity = 1
	c.Items = append(c.Items, item)
	return nil
}

// RemoveItem drops the whole line regardless of quantity.
func (c *Cart) RemoveItem(id string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// UpdateQuantity adds delta to the line and removes it once it reaches zero.
func (c *Cart) UpdateQuantity(id string, delta int) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ID == id {
			item.Quantity += delta
		}
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// OrderItems converts the cart lines into order lines.
func (c *Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, len(c.Items))
	for i, line := range c.Items {
		items[i] = OrderItem{
			ID:       line.ID,
			Name:     line.Name,
			Price:    line.Price,
			Quantity: line.Quantity,
			Options:  line.Options,
		}
	}
	return items
}

// RestaurantID returns the restaurant shared by all lines, or "" when lines
// disagree or carry none.
func (c *Cart) RestaurantID() string {
	id := ""
	for _, item := range c.Items {
		if item.RestaurantID == "" {
			continue
		}
		if id != "" && id != item.RestaurantID {
			return ""
		}
		id = item.RestaurantID
	}
	return id
}
