package models

import "time"

// SaleItem snapshots a product line at the moment of sale.
type SaleItem struct {
	ProductID   string  `json:"product"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	PriceAtSale float64 `json:"priceAtSale"`
}

// LineTotal is PriceAtSale times Quantity.
func (i SaleItem) LineTotal() float64 {
	return i.PriceAtSale * float64(i.Quantity)
}

// Sale is an immutable ledger entry written once per successful checkout.
type Sale struct {
	ID              string     `json:"_id"`
	Items           []SaleItem `json:"items"`
	Total           float64    `json:"total"`
	CustomerContact string     `json:"customerEmail,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// SalesSummary aggregates sales over a period.
type SalesSummary struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Count   int       `json:"count"`
	Revenue float64   `json:"revenue"`
}
