package mongodb

import (
	"context"
	"fmt"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// SaveDailyReport saves a daily report to the database.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.reports().InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}
