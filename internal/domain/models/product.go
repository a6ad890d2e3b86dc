package models

import "time"

// DefaultQtyNeeded is used for recipe lines submitted without a quantity.
const DefaultQtyNeeded = 5

// RecipeLine is the amount of one inventory item consumed per unit of product sold.
type RecipeLine struct {
	InventoryID string  `json:"inventoryId"`
	QtyNeeded   float64 `json:"qtyNeeded"`
}

// Product is a sellable catalog entry with its bill of materials.
type Product struct {
	ID        string       `json:"_id"`
	Name      string       `json:"name"`
	Price     float64      `json:"price"`
	Recipe    []RecipeLine `json:"recipe"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Ingredient is a recipe line resolved against the inventory it references.
type Ingredient struct {
	RecipeLine
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"qty"`
	MinQty   float64 `json:"minQty"`
}

// ProductDetail is a product with every recipe line resolved.
type ProductDetail struct {
	Product
	Ingredients []Ingredient `json:"ingredients"`
}
