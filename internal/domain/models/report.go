package models

import "time"

// DailyReport represents the aggregated daily figures stored in MongoDB.
type DailyReport struct {
	Date          time.Time `bson:"date" json:"date"`
	SalesCount    int       `bson:"sales_count" json:"sales_count"`
	Revenue       float64   `bson:"revenue" json:"revenue"`
	ShortageCount int       `bson:"shortage_count" json:"shortage_count"`
	Shortages     []string  `bson:"shortages" json:"shortages"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
