package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

const (
	salesJournalRange = "Sales!A:F"
	journalTimeFormat = "2006-01-02 15:04:05"
)

// SalesJournal mirrors every committed sale as one spreadsheet row:
// time, sale id, items, units, total, customer contact.
type SalesJournal struct {
	writer   RowWriter
	location *time.Location
}

// NewSalesJournal returns a journal writing through writer.
func NewSalesJournal(writer RowWriter, location *time.Location) *SalesJournal {
	if location == nil {
		location = time.UTC
	}
	return &SalesJournal{writer: writer, location: location}
}

// SaleCompleted appends the sale.
func (j *SalesJournal) SaleCompleted(ctx context.Context, sale models.Sale) error {
	if err := j.writer.WriteRow(ctx, salesJournalRange, journalRow(sale, j.location)); err != nil {
		return fmt.Errorf("journal sale %s: %w", sale.ID, err)
	}
	return nil
}

func journalRow(sale models.Sale, loc *time.Location) []interface{} {
	lines := make([]string, 0, len(sale.Items))
	units := 0
	for _, item := range sale.Items {
		lines = append(lines, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
		units += item.Quantity
	}
	return []interface{}{
		sale.CreatedAt.In(loc).Format(journalTimeFormat),
		sale.ID,
		strings.Join(lines, ", "),
		units,
		sale.Total,
		sale.CustomerContact,
	}
}
