package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/kitchenpos/internal/config"
)

// RowWriter appends one row to a tab range such as "Sales!A:F".
type RowWriter interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

var errNoSpreadsheet = errors.New("sales journal: spreadsheet id is required")

// SpreadsheetWriter appends sales journal rows to a Google spreadsheet.
type SpreadsheetWriter struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

func NewSpreadsheetWriter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*SpreadsheetWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SpreadsheetID == "" {
		return nil, errNoSpreadsheet
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sales journal: open spreadsheet %s: %w", cfg.SpreadsheetID, err)
	}

	return &SpreadsheetWriter{
		values:        service.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends values below the last row of sheetRange. Formulas and
// dates are parsed as if typed by hand.
func (w *SpreadsheetWriter) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if err := checkRange(sheetRange); err != nil {
		return err
	}

	resp, err := w.values.Append(w.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append sales journal row into %s: %w", sheetRange, err)
	}

	fields := []zap.Field{zap.String("range", sheetRange)}
	if resp.Updates != nil {
		fields = append(fields, zap.String("updated_range", resp.Updates.UpdatedRange))
	}
	w.logger.Debug("sales journal row appended", fields...)
	return nil
}

// checkRange wants a tab-qualified A1 range.
func checkRange(sheetRange string) error {
	tab, cells, ok := strings.Cut(sheetRange, "!")
	if !ok || strings.TrimSpace(tab) == "" || cells == "" {
		return fmt.Errorf("sales journal: range %q must name a tab, e.g. %q", sheetRange, salesJournalRange)
	}
	return nil
}
