package domain

import "github.com/shopspring/decimal"

// Restaurant holds what checkout and riders need to know about a vendor.
type Restaurant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Distance    string          `json:"distance"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
}

type Directory map[string]Restaurant

func (d Directory) Lookup(id string) (Restaurant, bool) {
	r, ok := d[id]
	return r, ok
}
