package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/sales"
)

const dateLayout = "2006-01-02"

// ShortageSource lists items at or below their threshold.
type ShortageSource interface {
	Shortages(ctx context.Context) ([]models.InventoryItem, error)
}

// SalesSummarizer aggregates sales over a period.
type SalesSummarizer interface {
	Summary(ctx context.Context, start, end time.Time) (models.SalesSummary, error)
}

// ReportArchive stores generated daily reports.
type ReportArchive interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Service builds the stock and sales summaries sent to staff.
type Service struct {
	inventory ShortageSource
	sales     SalesSummarizer
	archive   ReportArchive
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. archive may be nil.
func NewService(inventory ShortageSource, sales SalesSummarizer, archive ReportArchive, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		inventory: inventory,
		sales:     sales,
		archive:   archive,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

// ShortageReport lists every item at or below its minimum threshold.
func (s *Service) ShortageReport(ctx context.Context) (string, error) {
	items, err := s.inventory.Shortages(ctx)
	if err != nil {
		return "", fmt.Errorf("load shortages: %w", err)
	}
	return formatShortages(items), nil
}

// TodaySales summarizes the current day in the configured time zone.
func (s *Service) TodaySales(ctx context.Context) (string, error) {
	start, end := sales.DayBounds(s.now(), s.location)
	summary, err := s.sales.Summary(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("summarize sales: %w", err)
	}
	return fmt.Sprintf("Sales %s: %d orders, revenue $%.2f.", start.Format(dateLayout), summary.Count, summary.Revenue), nil
}

// DailyReport computes the figures for day and archives them.
func (s *Service) DailyReport(ctx context.Context, day time.Time) (models.DailyReport, error) {
	start, end := sales.DayBounds(day, s.location)

	summary, err := s.sales.Summary(ctx, start, end)
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("summarize sales: %w", err)
	}
	items, err := s.inventory.Shortages(ctx)
	if err != nil {
		return models.DailyReport{}, fmt.Errorf("load shortages: %w", err)
	}

	report := models.DailyReport{
		Date:          start,
		SalesCount:    summary.Count,
		Revenue:       summary.Revenue,
		ShortageCount: len(items),
		Shortages:     make([]string, 0, len(items)),
		CreatedAt:     s.now().UTC(),
	}
	for _, item := range items {
		report.Shortages = append(report.Shortages, item.Name)
	}

	if s.archive != nil {
		if err := s.archive.SaveDailyReport(ctx, report); err != nil {
			return report, fmt.Errorf("archive daily report: %w", err)
		}
	}

	s.logger.Info("daily report generated",
		zap.String("date", start.Format(dateLayout)),
		zap.Int("sales", report.SalesCount),
		zap.Int("shortages", report.ShortageCount),
	)
	return report, nil
}

// FormatDailyReport renders report as a chat message.
func FormatDailyReport(report models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily report %s\n", report.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Orders: %d\n", report.SalesCount)
	fmt.Fprintf(&b, "Revenue: $%.2f\n", report.Revenue)
	if report.ShortageCount == 0 {
		b.WriteString("Stock: all items above minimum.")
	} else {
		fmt.Fprintf(&b, "Low stock (%d): %s", report.ShortageCount, strings.Join(report.Shortages, ", "))
	}
	return b.String()
}

func formatShortages(items []models.InventoryItem) string {
	if len(items) == 0 {
		return "No shortages: every item is above its minimum."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Shortages (%d):", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s: %g %s (min %g)", item.Name, item.Quantity, item.Unit, item.MinQty)
	}
	return b.String()
}
