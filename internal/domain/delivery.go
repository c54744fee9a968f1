package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryTask is the rider's view of an order. It is always rebuilt from the
// order and never stored.
type DeliveryTask struct {
	OrderID           string          `json:"orderId"`
	RestaurantID      string          `json:"restaurantId"`
	Restaurant        string          `json:"restaurant"`
	RestaurantAddress string          `json:"restaurantAddress"`
	CustomerName      string          `json:"customerName"`
	CustomerLocation  string          `json:"customerLocation"`
	CustomerPhone     string          `json:"customerPhone"`
	Items             string          `json:"items"`
	Earnings          decimal.Decimal `json:"earnings"`
	Distance          string          `json:"distance,omitempty"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	Status            Status          `json:"status"`
	RiderID           string          `json:"riderId,omitempty"`
}

func NewDeliveryTask(o *Order, r Restaurant) DeliveryTask {
	parts := make([]string, len(o.Items))
	for i, item := range o.Items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}

	task := DeliveryTask{
		OrderID:           o.ID,
		RestaurantID:      o.RestaurantID,
		Restaurant:        r.Name,
		RestaurantAddress: r.Address,
		CustomerName:      o.Customer.Name,
		CustomerLocation:  o.Customer.Location,
		CustomerPhone:     o.Customer.Phone,
		Items:             strings.Join(parts, ", "),
		Earnings:          o.DeliveryFee,
		Distance:          r.Distance,
		PaymentStatus:     o.PaymentStatus,
		Status:            o.Status,
	}
	if o.RiderID != nil {
		task.RiderID = *o.RiderID
	}
	return task
}
