package models

import "time"

// CartLine is a transient request line: a product and how many units to sell.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is the input of a checkout.
type CheckoutRequest struct {
	Lines           []CartLine
	CustomerContact string
}

// Advisory is a non-blocking low-stock signal raised by a checkout.
type Advisory struct {
	ItemID       string  `json:"inventoryId"`
	ItemName     string  `json:"inventoryItem"`
	RemainingQty float64 `json:"remainingQty"`
	Threshold    float64 `json:"threshold"`
	Unit         string  `json:"unit"`
	Message      string  `json:"message"`
}

// Receipt is returned to the caller of a successful checkout.
type Receipt struct {
	SaleID     string     `json:"saleId"`
	Total      float64    `json:"total"`
	Advisories []Advisory `json:"alerts"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ReceiptNotice is what the notification dispatcher sends to a customer.
type ReceiptNotice struct {
	SaleID    string
	Items     []SaleItem
	Total     float64
	CreatedAt time.Time
}
