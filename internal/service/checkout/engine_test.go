package checkout

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/repository/memory"
)

type recordingNotifier struct {
	mu       sync.Mutex
	contacts []string
	notices  []models.ReceiptNotice
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, contact string, notice models.ReceiptNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, contact)
	n.notices = append(n.notices, notice)
	return n.err
}

type recordingObserver struct {
	mu    sync.Mutex
	sales []models.Sale
}

func (o *recordingObserver) SaleCompleted(_ context.Context, sale models.Sale) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sales = append(o.sales, sale)
	return errors.New("journal offline")
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

// flakyStore loses the version race for the first conflicts deductions.
type flakyStore struct {
	*memory.Store
	conflicts atomic.Int32
}

func (f *flakyStore) UpdateInventoryQuantity(ctx context.Context, id string, quantity float64, expectedVersion int64) error {
	if f.conflicts.Add(-1) >= 0 {
		return models.ErrVersionConflict
	}
	return f.Store.UpdateInventoryQuantity(ctx, id, quantity, expectedVersion)
}

type failingLedger struct{ err error }

func (l failingLedger) InsertSale(context.Context, models.Sale) (string, error) { return "", l.err }

type blockingStore struct {
	*memory.Store
}

func (b blockingStore) GetProduct(ctx context.Context, _ string) (models.Product, error) {
	<-ctx.Done()
	return models.Product{}, ctx.Err()
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	flour    models.InventoryItem
	sugar    models.InventoryItem
	bread    models.Product
	cake     models.Product
}

func setup(t *testing.T, flourQty float64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	flour, err := store.InsertInventoryItem(ctx, models.InventoryItem{Name: "Flour", Quantity: flourQty, Unit: "kg", MinQty: 10})
	require.NoError(t, err)
	sugar, err := store.InsertInventoryItem(ctx, models.InventoryItem{Name: "Sugar", Quantity: 50, Unit: "kg", MinQty: 5})
	require.NoError(t, err)

	bread, err := store.InsertProduct(ctx, models.Product{
		Name:   "Bread",
		Price:  5,
		Recipe: []models.RecipeLine{{InventoryID: flour.ID, QtyNeeded: 20}},
	})
	require.NoError(t, err)
	cake, err := store.InsertProduct(ctx, models.Product{
		Name:  "Cake",
		Price: 12.5,
		Recipe: []models.RecipeLine{
			{InventoryID: sugar.ID, QtyNeeded: 5},
			{InventoryID: flour.ID, QtyNeeded: 10},
		},
	})
	require.NoError(t, err)

	return &fixture{store: store, notifier: &recordingNotifier{}, flour: flour, sugar: sugar, bread: bread, cake: cake}
}

func (f *fixture) engine(opts Options) *Engine {
	return NewEngine(f.store, f.store, f.notifier, opts, nil)
}

func (f *fixture) qty(t *testing.T, id string) float64 {
	t.Helper()
	item, err := f.store.GetInventoryItem(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func (f *fixture) sales(t *testing.T) []models.Sale {
	t.Helper()
	sales, err := f.store.ListSales(context.Background(), 0)
	require.NoError(t, err)
	return sales
}

func cart(lines ...models.CartLine) models.CheckoutRequest {
	return models.CheckoutRequest{Lines: lines}
}

func TestCheckoutDeductsRecipe(t *testing.T) {
	f := setup(t, 100)

	receipt, err := f.engine(Options{}).Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.NoError(t, err)

	assert.Equal(t, 5.0, receipt.Total)
	assert.NotEmpty(t, receipt.SaleID)
	assert.Empty(t, receipt.Advisories)
	assert.Equal(t, 80.0, f.qty(t, f.flour.ID))

	sale, err := f.store.GetSale(context.Background(), receipt.SaleID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, models.SaleItem{ProductID: f.bread.ID, Name: "Bread", Quantity: 1, PriceAtSale: 5}, sale.Items[0])
	assert.Equal(t, 5.0, sale.Total)
}

func TestCheckoutRaisesAdvisoryWithoutBlocking(t *testing.T) {
	f := setup(t, 45)

	receipt, err := f.engine(Options{}).Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.NoError(t, err)

	require.Len(t, receipt.Advisories, 1)
	advisory := receipt.Advisories[0]
	assert.Equal(t, "Flour", advisory.ItemName)
	assert.Equal(t, 25.0, advisory.RemainingQty)
	assert.Equal(t, 40.0, advisory.Threshold)
	assert.Equal(t, "kg", advisory.Unit)
	assert.Equal(t, "Low Stock: Flour is down to 25 kg.", advisory.Message)
	assert.Equal(t, 25.0, f.qty(t, f.flour.ID))
	assert.Len(t, f.sales(t), 1)
}

func TestCheckoutBlocksBelowFloor(t *testing.T) {
	f := setup(t, 25)

	_, err := f.engine(Options{}).Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Flour", stockErr.ItemName)
	assert.Equal(t, 15.0, stockErr.Available)
	assert.Equal(t, 20.0, stockErr.Needed)
	assert.Contains(t, err.Error(), `"Flour"`)
	assert.Contains(t, err.Error(), "15 kg available")
	assert.Contains(t, err.Error(), "20 kg needed")
	assert.False(t, Retryable(err))

	assert.Equal(t, 25.0, f.qty(t, f.flour.ID))
	assert.Empty(t, f.sales(t))
}

func TestCheckoutMergesRepeatedProduct(t *testing.T) {
	f := setup(t, 100)

	receipt, err := f.engine(Options{}).Checkout(context.Background(), cart(
		models.CartLine{ProductID: f.bread.ID, Quantity: 1},
		models.CartLine{ProductID: f.cake.ID, Quantity: 1},
		models.CartLine{ProductID: f.bread.ID, Quantity: 2},
	))
	require.NoError(t, err)

	assert.Equal(t, 27.5, receipt.Total)
	assert.Equal(t, 30.0, f.qty(t, f.flour.ID))

	sale, err := f.store.GetSale(context.Background(), receipt.SaleID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, f.bread.ID, sale.Items[0].ProductID)
	assert.Equal(t, 3, sale.Items[0].Quantity)
	assert.Equal(t, f.cake.ID, sale.Items[1].ProductID)
}

func TestCheckoutAggregatesSharedIngredient(t *testing.T) {
	f := setup(t, 200)

	_, err := f.engine(Options{}).Checkout(context.Background(), cart(
		models.CartLine{ProductID: f.bread.ID, Quantity: 2},
		models.CartLine{ProductID: f.cake.ID, Quantity: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, 200.0-2*20-3*10, f.qty(t, f.flour.ID))
	assert.Equal(t, 50.0-3*5, f.qty(t, f.sugar.ID))
}

func TestCheckoutAggregateDecidesFloor(t *testing.T) {
	// Each product alone fits (50-20=30, 50-30=20) but together they need 50.
	f := setup(t, 50)

	_, err := f.engine(Options{}).Checkout(context.Background(), cart(
		models.CartLine{ProductID: f.bread.ID, Quantity: 1},
		models.CartLine{ProductID: f.cake.ID, Quantity: 3},
	))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 50.0, stockErr.Needed)
	assert.Equal(t, 40.0, stockErr.Available)

	assert.Equal(t, 50.0, f.qty(t, f.flour.ID))
	assert.Equal(t, 50.0, f.qty(t, f.sugar.ID), "nothing is deducted when any item fails")
	assert.Empty(t, f.sales(t))
}

func TestCheckoutRejectsInvalidCart(t *testing.T) {
	f := setup(t, 100)
	engine := f.engine(Options{})

	cases := map[string]models.CheckoutRequest{
		"empty":         cart(),
		"zero quantity": cart(models.CartLine{ProductID: f.bread.ID, Quantity: 0}),
		"negative":      cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}, models.CartLine{ProductID: f.cake.ID, Quantity: -2}),
		"no product id": cart(models.CartLine{Quantity: 1}),
		"max int line":  cart(models.CartLine{ProductID: f.bread.ID, Quantity: math.MaxInt}),
		"above cap":     cart(models.CartLine{ProductID: f.bread.ID, Quantity: MaxQuantity + 1}),
		"overflowing duplicates": cart(
			models.CartLine{ProductID: f.bread.ID, Quantity: math.MaxInt},
			models.CartLine{ProductID: f.bread.ID, Quantity: math.MaxInt},
		),
		"merged sum above cap": cart(
			models.CartLine{ProductID: f.cake.ID, Quantity: MaxQuantity},
			models.CartLine{ProductID: f.cake.ID, Quantity: 1},
		),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Checkout(context.Background(), req)
			require.ErrorIs(t, err, ErrValidation)
			assert.False(t, Retryable(err))
		})
	}

	assert.Equal(t, 100.0, f.qty(t, f.flour.ID))
	assert.Empty(t, f.sales(t))
}

func TestCheckoutAcceptsMergedQuantityAtCap(t *testing.T) {
	f := setup(t, 1e9)
	engine := f.engine(Options{})

	receipt, err := engine.Checkout(context.Background(), cart(
		models.CartLine{ProductID: f.bread.ID, Quantity: MaxQuantity - 1},
		models.CartLine{ProductID: f.bread.ID, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, 5.0*MaxQuantity, receipt.Total)
	assert.Equal(t, 1e9-20*MaxQuantity, f.qty(t, f.flour.ID))
}

func TestCheckoutUnknownProduct(t *testing.T) {
	f := setup(t, 100)

	_, err := f.engine(Options{}).Checkout(context.Background(), cart(
		models.CartLine{ProductID: f.bread.ID, Quantity: 1},
		models.CartLine{ProductID: "ghost", Quantity: 1},
	))
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, KindProduct, notFound.Kind)
	assert.Equal(t, "ghost", notFound.ID)
	assert.Equal(t, 100.0, f.qty(t, f.flour.ID))
	assert.Empty(t, f.sales(t))
}

func TestCheckoutRecipeReferencesMissingItem(t *testing.T) {
	f := setup(t, 100)
	broken, err := f.store.InsertProduct(context.Background(), models.Product{
		Name:  "Pie",
		Price: 8,
		Recipe: []models.RecipeLine{
			{InventoryID: f.flour.ID, QtyNeeded: 10},
			{InventoryID: "deleted-item", QtyNeeded: 1},
		},
	})
	require.NoError(t, err)

	_, err = f.engine(Options{}).Checkout(context.Background(), cart(models.CartLine{ProductID: broken.ID, Quantity: 1}))
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, KindInventoryItem, notFound.Kind)
	assert.Equal(t, 100.0, f.qty(t, f.flour.ID))
}

func TestCheckoutNotifiesAfterCommit(t *testing.T) {
	f := setup(t, 100)
	observer := &recordingObserver{}
	engine := f.engine(Options{Observers: []SaleObserver{observer}})

	req := cart(models.CartLine{ProductID: f.bread.ID, Quantity: 2})
	req.CustomerContact = "ada@example.com"
	receipt, err := engine.Checkout(context.Background(), req)
	require.NoError(t, err)
	engine.Wait()

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, "ada@example.com", f.notifier.contacts[0])
	notice := f.notifier.notices[0]
	assert.Equal(t, receipt.SaleID, notice.SaleID)
	assert.Equal(t, 10.0, notice.Total)
	assert.Equal(t, "Bread", notice.Items[0].Name)

	require.Len(t, observer.sales, 1)
	assert.Equal(t, receipt.SaleID, observer.sales[0].ID)
	assert.Equal(t, "ada@example.com", observer.sales[0].CustomerContact)
}

func TestCheckoutIgnoresNotifierFailure(t *testing.T) {
	f := setup(t, 100)
	f.notifier.err = errors.New("smtp down")
	engine := f.engine(Options{})

	req := cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1})
	req.CustomerContact = "ada@example.com"
	receipt, err := engine.Checkout(context.Background(), req)
	engine.Wait()

	require.NoError(t, err)
	assert.NotEmpty(t, receipt.SaleID)
	assert.Len(t, f.notifier.notices, 1)
}

func TestCheckoutSkipsNotifierWithoutContact(t *testing.T) {
	f := setup(t, 100)
	engine := f.engine(Options{})

	_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.NoError(t, err)
	engine.Wait()
	assert.Empty(t, f.notifier.notices)
}

func TestCheckoutRetriesVersionConflicts(t *testing.T) {
	f := setup(t, 100)
	flaky := &flakyStore{Store: f.store}
	flaky.conflicts.Store(2)
	sleeper := &recordingSleeper{}

	engine := NewEngine(flaky, f.store, nil, Options{MaxAttempts: 3, RetryBackoff: time.Millisecond, Sleeper: sleeper}, nil)
	_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, sleeper.delays)
	assert.Equal(t, 80.0, f.qty(t, f.flour.ID))
	assert.Len(t, f.sales(t), 1)
}

func TestCheckoutGivesUpAfterMaxAttempts(t *testing.T) {
	f := setup(t, 100)
	flaky := &flakyStore{Store: f.store}
	flaky.conflicts.Store(10)

	engine := NewEngine(flaky, f.store, nil, Options{MaxAttempts: 3, Sleeper: &recordingSleeper{}}, nil)
	_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))

	var conflict *ConcurrentModificationError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 3, conflict.Attempts)
	assert.True(t, Retryable(err))
	assert.Equal(t, 100.0, f.qty(t, f.flour.ID))
	assert.Empty(t, f.sales(t))
}

func TestCheckoutWrapsLedgerFailure(t *testing.T) {
	f := setup(t, 100)
	cause := errors.New("disk full")

	engine := NewEngine(f.store, failingLedger{err: cause}, nil, Options{}, nil)
	_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))

	require.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Retryable(err))
	assert.Equal(t, 100.0, f.qty(t, f.flour.ID), "deduction rolled back with the failed insert")
}

func TestCheckoutTimesOut(t *testing.T) {
	f := setup(t, 100)

	engine := NewEngine(blockingStore{Store: f.store}, f.store, nil, Options{Timeout: 20 * time.Millisecond}, nil)
	_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))

	require.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentCheckoutsNeverBreachFloor(t *testing.T) {
	f := setup(t, 100)
	engine := f.engine(Options{MaxAttempts: 50, RetryBackoff: 0})

	const buyers = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		errs      = make(chan error, buyers)
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Checkout(context.Background(), cart(models.CartLine{ProductID: f.bread.ID, Quantity: 1}))
			if err == nil {
				successes.Add(1)
				return
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.True(t, errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrConcurrentModification), err.Error())
	}

	n := float64(successes.Load())
	assert.LessOrEqual(t, n, 4.0)
	assert.Equal(t, 100.0-20*n, f.qty(t, f.flour.ID))
	assert.GreaterOrEqual(t, f.qty(t, f.flour.ID), 10.0)
	assert.Len(t, f.sales(t), int(n))
}

func TestCheckoutLeavesEarlierItemsUntouched(t *testing.T) {
	f := setup(t, 50)

	// Cake checks sugar first (25 of 50 passes) and then flour (50 of 50 fails).
	_, err := f.engine(Options{}).Checkout(context.Background(), cart(models.CartLine{ProductID: f.cake.ID, Quantity: 5}))
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 50.0, f.qty(t, f.sugar.ID))
	assert.Equal(t, 50.0, f.qty(t, f.flour.ID))
	assert.Empty(t, f.sales(t))
}
