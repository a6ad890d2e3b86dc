package models

import "time"

// DefaultMinQty is the floor applied to inventory items created without an explicit threshold.
const DefaultMinQty = 5

// InventoryItem is a raw material tracked on hand, e.g. flour in kg.
type InventoryItem struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"qty"`
	Unit      string    `json:"unit"`
	MinQty    float64   `json:"minQty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsShort reports whether the item sits at or below its minimum threshold.
func (i InventoryItem) IsShort() bool {
	return i.Quantity <= i.MinQty
}
