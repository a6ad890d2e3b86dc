package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/metrics"
)

// CatalogStore is the product and inventory storage the engine reads and deducts from.
// Calls made with the context passed to fn by RunAtomic commit or roll back together.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
	GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error)
	UpdateInventoryQuantity(ctx context.Context, id string, quantity float64, expectedVersion int64) error
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// SaleLedger appends completed sales.
type SaleLedger interface {
	InsertSale(ctx context.Context, sale models.Sale) (string, error)
}

// Notifier delivers the receipt to the customer.
type Notifier interface {
	Send(ctx context.Context, contact string, notice models.ReceiptNotice) error
}

// SaleObserver is told about every committed sale, after the fact.
type SaleObserver interface {
	SaleCompleted(ctx context.Context, sale models.Sale) error
}

// Sleeper waits between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	NotifyTimeout time.Duration
	Observers     []SaleObserver
	Idempotency   IdempotencyStore
	Sleeper       Sleeper
	Now           func() time.Time
}

// MaxQuantity caps the units of one product in a single checkout, after
// repeated lines are merged.
const MaxQuantity = 10_000

const (
	defaultTimeout       = 10 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryBackoff  = 25 * time.Millisecond
	defaultNotifyTimeout = 15 * time.Second
)

// Engine prices carts, deducts recipe ingredients and records sales.
type Engine struct {
	store    CatalogStore
	ledger   SaleLedger
	notifier Notifier
	opts     Options
	tracer   trace.Tracer
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewEngine wires a checkout engine. notifier may be nil when receipts are not delivered.
func NewEngine(store CatalogStore, ledger SaleLedger, notifier Notifier, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.Sleeper == nil {
		opts.Sleeper = timerSleeper{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Engine{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		tracer:   otel.Tracer("kitchenpos/checkout"),
		logger:   logger,
	}
}

// Checkout sells the cart. Either the sale and every inventory deduction are
// committed together, or nothing is.
func (e *Engine) Checkout(ctx context.Context, req models.CheckoutRequest) (models.Receipt, error) {
	ctx, span := e.tracer.Start(ctx, "checkout")
	defer span.End()

	receipt, sale, err := e.checkout(ctx, req)
	metrics.CheckoutsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Info("checkout rejected", zap.String("reason", err.Error()), zap.Int("lines", len(req.Lines)))
		return models.Receipt{}, err
	}

	span.SetAttributes(
		attribute.String("sale.id", receipt.SaleID),
		attribute.Float64("sale.total", receipt.Total),
		attribute.Int("sale.advisories", len(receipt.Advisories)),
	)
	metrics.LowStockAdvisories.Add(float64(len(receipt.Advisories)))
	e.logger.Info("sale committed",
		zap.String("sale_id", receipt.SaleID),
		zap.Float64("total", receipt.Total),
		zap.Int("advisories", len(receipt.Advisories)),
	)

	e.dispatch(trace.SpanContextFromContext(ctx), sale, req.CustomerContact)
	return receipt, nil
}

// Wait blocks until every detached post-sale dispatch has finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}

func (e *Engine) checkout(ctx context.Context, req models.CheckoutRequest) (models.Receipt, models.Sale, error) {
	lines, err := mergeLines(req.Lines)
	if err != nil {
		return models.Receipt{}, models.Sale{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		sale, advisories, err := e.attempt(ctx, lines, req.CustomerContact)
		if err == nil {
			metrics.CheckoutAttempts.Observe(float64(attempt))
			return models.Receipt{
				SaleID:     sale.ID,
				Total:      sale.Total,
				Advisories: advisories,
				CreatedAt:  sale.CreatedAt,
			}, sale, nil
		}

		if !errors.Is(err, models.ErrVersionConflict) {
			return models.Receipt{}, models.Sale{}, classify(err)
		}
		if attempt >= e.opts.MaxAttempts {
			return models.Receipt{}, models.Sale{}, &ConcurrentModificationError{Attempts: attempt}
		}

		delay := e.opts.RetryBackoff << (attempt - 1)
		e.logger.Debug("inventory changed underneath checkout, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
		)
		if err := e.opts.Sleeper.Sleep(ctx, delay); err != nil {
			return models.Receipt{}, models.Sale{}, &PersistenceError{Err: err}
		}
	}
}

// attempt runs one storage transaction: resolve, check, deduct, record.
func (e *Engine) attempt(ctx context.Context, lines []models.CartLine, contact string) (models.Sale, []models.Advisory, error) {
	var (
		sale       models.Sale
		advisories []models.Advisory
	)

	err := e.store.RunAtomic(ctx, func(ctx context.Context) error {
		p, err := e.plan(ctx, lines)
		if err != nil {
			return err
		}

		for _, d := range p.deductions {
			if err := e.store.UpdateInventoryQuantity(ctx, d.item.ID, d.item.Quantity-d.amount, d.item.Version); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return &NotFoundError{Kind: KindInventoryItem, ID: d.item.ID}
				}
				return fmt.Errorf("deduct %s: %w", d.item.Name, err)
			}
		}

		sale = models.Sale{
			Items:           p.items,
			Total:           p.total,
			CustomerContact: contact,
			CreatedAt:       e.opts.Now(),
		}
		id, err := e.ledger.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.ID = id
		advisories = p.advisories
		return nil
	})
	return sale, advisories, err
}

// dispatch runs the notifier and observers detached from the request.
func (e *Engine) dispatch(parent trace.SpanContext, sale models.Sale, contact string) {
	notify := contact != "" && e.notifier != nil
	if !notify && len(e.opts.Observers) == 0 {
		return
	}

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(trace.ContextWithSpanContext(context.Background(), parent), e.opts.NotifyTimeout)
		defer cancel()

		if notify {
			notice := models.ReceiptNotice{
				SaleID:    sale.ID,
				Items:     sale.Items,
				Total:     sale.Total,
				CreatedAt: sale.CreatedAt,
			}
			if err := e.notifier.Send(ctx, contact, notice); err != nil {
				e.logger.Warn("receipt notification failed", zap.String("sale_id", sale.ID), zap.Error(err))
			}
		}

		for _, observer := range e.opts.Observers {
			if err := observer.SaleCompleted(ctx, sale); err != nil {
				e.logger.Warn("sale observer failed",
					zap.String("sale_id", sale.ID),
					zap.String("observer", fmt.Sprintf("%T", observer)),
					zap.Error(err),
				)
			}
		}
	}()
}

// mergeLines validates the cart and folds repeated products into the first
// line that named them.
func mergeLines(lines []models.CartLine) ([]models.CartLine, error) {
	if len(lines) == 0 {
		return nil, &ValidationError{Reason: "cart is empty"}
	}

	merged := make([]models.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for i, line := range lines {
		if line.ProductID == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("line %d: product id is required", i+1)}
		}
		if line.Quantity < 1 {
			return nil, &ValidationError{Reason: fmt.Sprintf("line %d: quantity must be at least 1", i+1)}
		}
		if line.Quantity > MaxQuantity {
			return nil, &ValidationError{Reason: fmt.Sprintf("line %d: quantity must be at most %d", i+1, MaxQuantity)}
		}
		if at, ok := index[line.ProductID]; ok {
			// both terms are <= MaxQuantity, so the sum cannot overflow
			if merged[at].Quantity+line.Quantity > MaxQuantity {
				return nil, &ValidationError{Reason: fmt.Sprintf("product %s: total quantity must be at most %d", line.ProductID, MaxQuantity)}
			}
			merged[at].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// classify maps storage failures onto the checkout taxonomy.
func classify(err error) error {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		stock      *InsufficientStockError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &stock):
		return err
	default:
		return &PersistenceError{Err: err}
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case errors.Is(err, ErrConcurrentModification):
		return metrics.OutcomeConcurrentConflict
	default:
		return metrics.OutcomePersistence
	}
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
