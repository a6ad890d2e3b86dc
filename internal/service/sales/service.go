package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

var ErrInvalidRange = errors.New("end must be after start")

// Ledger reads the sale history.
type Ledger interface {
	GetSale(ctx context.Context, id string) (models.Sale, error)
	ListSales(ctx context.Context, limit int) ([]models.Sale, error)
	ListSalesBetween(ctx context.Context, start, end time.Time) ([]models.Sale, error)
}

// Service answers sale history queries.
type Service struct {
	ledger Ledger
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// List returns the latest sales, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]models.Sale, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sales, err := s.ledger.ListSales(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// Get returns one sale.
func (s *Service) Get(ctx context.Context, id string) (models.Sale, error) {
	sale, err := s.ledger.GetSale(ctx, id)
	if err != nil {
		return models.Sale{}, fmt.Errorf("load sale %s: %w", id, err)
	}
	return sale, nil
}

// Summary counts sales and revenue in [start, end).
func (s *Service) Summary(ctx context.Context, start, end time.Time) (models.SalesSummary, error) {
	if !end.After(start) {
		return models.SalesSummary{}, ErrInvalidRange
	}

	sales, err := s.ledger.ListSalesBetween(ctx, start, end)
	if err != nil {
		return models.SalesSummary{}, fmt.Errorf("load sales: %w", err)
	}

	summary := models.SalesSummary{Start: start, End: end, Count: len(sales)}
	for _, sale := range sales {
		summary.Revenue += sale.Total
	}
	return summary, nil
}

// DayBounds returns midnight-to-midnight for day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
