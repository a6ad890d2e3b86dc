package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/inventory"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

const helpText = "Commands:\n/shortages - items at or below their minimum\n/restock <qty> <item> - add stock to an existing item\n/sales - today's orders and revenue"

// Restocker adds stock to inventory items.
type Restocker interface {
	AddStock(ctx context.Context, in inventory.StockInput) (models.InventoryItem, bool, error)
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	ShortageReport(ctx context.Context) (string, error)
	TodaySales(ctx context.Context) (string, error)
}

// Dispatcher executes parsed staff commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	stock     Restocker
	reporting ReportingAdapter
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(stock Restocker, reporting ReportingAdapter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stock:     stock,
		reporting: reporting,
		logger:    logger,
	}
}

// HandleCommand runs cmd and returns the reply for the sender.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandShortages:
		return s.reporting.ShortageReport(ctx)
	case models.CommandSales:
		return s.reporting.TodaySales(ctx)
	case models.CommandRestock:
		return s.restock(ctx, cmd)
	case models.CommandHelp:
		return helpText, nil
	default:
		return "Unknown command.\n" + helpText, nil
	}
}

// restock only tops up existing items; staff create new ones through the API
// where a unit is supplied.
func (s *Service) restock(ctx context.Context, cmd models.Command) (string, error) {
	qty, name, err := parseRestock(cmd.Args)
	if err != nil {
		return "", err
	}

	item, _, err := s.stock.AddStock(ctx, inventory.StockInput{Name: name, Quantity: qty})
	switch {
	case errors.Is(err, inventory.ErrInvalidInput):
		return fmt.Sprintf("Unknown item %q. Add it with a unit from the back office first.", name), nil
	case err != nil:
		return "", fmt.Errorf("restock %q: %w", name, err)
	}

	message := fmt.Sprintf("Restocked %s: +%g %s, now %g %s.", item.Name, qty, item.Unit, item.Quantity, item.Unit)
	if item.IsShort() {
		message += fmt.Sprintf(" Still at or below minimum (%g).", item.MinQty)
	}
	return message, nil
}

func parseRestock(args []string) (float64, string, error) {
	if len(args) < 2 {
		return 0, "", ErrInvalidArguments
	}

	qty, err := strconv.ParseFloat(args[0], 64)
	if err != nil || qty <= 0 {
		return 0, "", ErrInvalidArguments
	}

	return qty, strings.Join(args[1:], " "), nil
}
