package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// Store keeps the catalog, the inventory and the sale ledger in process.
//
// Writes made inside RunAtomic are staged on the transaction and applied in
// one step at commit, after every staged inventory write has been checked
// against the version it was based on. A stale base fails the whole commit
// with models.ErrVersionConflict and nothing is applied.
type Store struct {
	mu        sync.RWMutex
	inventory map[string]models.InventoryItem
	products  map[string]models.Product
	sales     []models.Sale
	reports   []models.DailyReport
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		inventory: make(map[string]models.InventoryItem),
		products:  make(map[string]models.Product),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

type txKey struct{}

type stagedQuantity struct {
	expected int64
	quantity float64
}

// txn collects the writes of one RunAtomic call.
type txn struct {
	quantities map[string]stagedQuantity
	deletes    map[string]int64
	sales      []models.Sale
}

func txFrom(ctx context.Context) *txn {
	tx, _ := ctx.Value(txKey{}).(*txn)
	return tx
}

// RunAtomic executes fn with all-or-nothing semantics for the inventory
// quantity updates, inventory deletions and sale inserts it performs.
func (s *Store) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txn{
		quantities: make(map[string]stagedQuantity),
		deletes:    make(map[string]int64),
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, staged := range tx.quantities {
		current, ok := s.inventory[id]
		if !ok || current.Version != staged.expected {
			return models.ErrVersionConflict
		}
	}
	for id, expected := range tx.deletes {
		current, ok := s.inventory[id]
		if !ok || current.Version != expected {
			return models.ErrVersionConflict
		}
	}

	now := s.now()
	for id, staged := range tx.quantities {
		item := s.inventory[id]
		item.Quantity = staged.quantity
		item.Version++
		item.UpdatedAt = now
		s.inventory[id] = item
	}
	for id := range tx.deletes {
		delete(s.inventory, id)
	}
	s.sales = append(s.sales, tx.sales...)
	return nil
}

// GetInventoryItem returns the item, including writes staged by the current transaction.
func (s *Store) GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error) {
	s.mu.RLock()
	item, ok := s.inventory[id]
	s.mu.RUnlock()
	if !ok {
		return models.InventoryItem{}, models.ErrNotFound
	}

	if tx := txFrom(ctx); tx != nil {
		if _, deleted := tx.deletes[id]; deleted {
			return models.InventoryItem{}, models.ErrNotFound
		}
		if staged, ok := tx.quantities[id]; ok {
			item.Quantity = staged.quantity
			item.Version = staged.expected + 1
		}
	}
	return item, nil
}

// UpdateInventoryQuantity sets the quantity when the stored version still equals expectedVersion.
func (s *Store) UpdateInventoryQuantity(ctx context.Context, id string, quantity float64, expectedVersion int64) error {
	if tx := txFrom(ctx); tx != nil {
		current, err := s.GetInventoryItem(ctx, id)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return models.ErrVersionConflict
		}
		base := expectedVersion
		if staged, ok := tx.quantities[id]; ok {
			base = staged.expected
		}
		tx.quantities[id] = stagedQuantity{expected: base, quantity: quantity}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.inventory[id]
	if !ok {
		return models.ErrNotFound
	}
	if item.Version != expectedVersion {
		return models.ErrVersionConflict
	}
	item.Quantity = quantity
	item.Version++
	item.UpdatedAt = s.now()
	s.inventory[id] = item
	return nil
}

// ListInventory returns every item ordered by name.
func (s *Store) ListInventory(_ context.Context) ([]models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		items = append(items, item)
	}
	sortItems(items)
	return items, nil
}

// ListShortages returns items whose quantity is at or below their threshold.
func (s *Store) ListShortages(_ context.Context) ([]models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.InventoryItem
	for _, item := range s.inventory {
		if item.IsShort() {
			items = append(items, item)
		}
	}
	sortItems(items)
	return items, nil
}

// FindInventoryByName matches the exact name, ignoring case.
func (s *Store) FindInventoryByName(_ context.Context, name string) (models.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.inventory {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	return models.InventoryItem{}, models.ErrNotFound
}

// InsertInventoryItem stores a new item with version 1.
func (s *Store) InsertInventoryItem(_ context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(item.Name, "") {
		return models.InventoryItem{}, models.ErrDuplicateName
	}

	now := s.now()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	s.inventory[item.ID] = item
	return item, nil
}

// UpdateInventoryItem overwrites name, quantity, unit and threshold when item.Version matches.
func (s *Store) UpdateInventoryItem(_ context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.inventory[item.ID]
	if !ok {
		return models.InventoryItem{}, models.ErrNotFound
	}
	if current.Version != item.Version {
		return models.InventoryItem{}, models.ErrVersionConflict
	}
	if s.nameTakenLocked(item.Name, item.ID) {
		return models.InventoryItem{}, models.ErrDuplicateName
	}

	current.Name = item.Name
	current.Quantity = item.Quantity
	current.Unit = item.Unit
	current.MinQty = item.MinQty
	current.Version++
	current.UpdatedAt = s.now()
	s.inventory[item.ID] = current
	return current, nil
}

// DeleteInventoryItem removes the item.
func (s *Store) DeleteInventoryItem(ctx context.Context, id string) error {
	if tx := txFrom(ctx); tx != nil {
		current, err := s.GetInventoryItem(ctx, id)
		if err != nil {
			return err
		}
		tx.deletes[id] = current.Version
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.inventory, id)
	return nil
}

// FindProductUsingItem returns the first product whose recipe references itemID.
func (s *Store) FindProductUsingItem(_ context.Context, itemID string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		product := s.products[id]
		for _, line := range product.Recipe {
			if line.InventoryID == itemID {
				return cloneProduct(product), nil
			}
		}
	}
	return models.Product{}, models.ErrNotFound
}

// GetProduct returns the product by id.
func (s *Store) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return models.Product{}, models.ErrNotFound
	}
	return cloneProduct(product), nil
}

// ListProducts returns every product ordered by name.
func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, product := range s.products {
		products = append(products, cloneProduct(product))
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// InsertProduct stores a new product.
func (s *Store) InsertProduct(_ context.Context, product models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	product = cloneProduct(product)
	s.products[product.ID] = product
	return cloneProduct(product), nil
}

// UpdateProduct overwrites name, price and recipe.
func (s *Store) UpdateProduct(_ context.Context, product models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return models.Product{}, models.ErrNotFound
	}
	current.Name = product.Name
	current.Price = product.Price
	current.Recipe = product.Recipe
	current.UpdatedAt = s.now()
	current = cloneProduct(current)
	s.products[product.ID] = current
	return cloneProduct(current), nil
}

// DeleteProduct removes the product. Past sales keep their snapshot.
func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// InsertSale appends the sale to the ledger and returns its id.
func (s *Store) InsertSale(ctx context.Context, sale models.Sale) (string, error) {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now()
	}
	sale.Items = append([]models.SaleItem(nil), sale.Items...)

	if tx := txFrom(ctx); tx != nil {
		tx.sales = append(tx.sales, sale)
		return sale.ID, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	return sale.ID, nil
}

// GetSale returns one sale by id.
func (s *Store) GetSale(_ context.Context, id string) (models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.ID == id {
			return cloneSale(sale), nil
		}
	}
	return models.Sale{}, models.ErrNotFound
}

// ListSales returns up to limit sales, newest first. A limit <= 0 returns all.
func (s *Store) ListSales(_ context.Context, limit int) ([]models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Sale, 0, len(s.sales))
	for i := len(s.sales) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneSale(s.sales[i]))
	}
	return out, nil
}

// ListSalesBetween returns sales created in [start, end), oldest first.
func (s *Store) ListSalesBetween(_ context.Context, start, end time.Time) ([]models.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Sale
	for _, sale := range s.sales {
		if sale.CreatedAt.Before(start) || !sale.CreatedAt.Before(end) {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	return out, nil
}

// SaveDailyReport keeps the report.
func (s *Store) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the saved daily reports.
func (s *Store) Reports() []models.DailyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DailyReport(nil), s.reports...)
}

func (s *Store) nameTakenLocked(name, exceptID string) bool {
	for id, item := range s.inventory {
		if id != exceptID && strings.EqualFold(item.Name, name) {
			return true
		}
	}
	return false
}

func sortItems(items []models.InventoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].ID < items[j].ID
		}
		return items[i].Name < items[j].Name
	})
}

func cloneProduct(p models.Product) models.Product {
	p.Recipe = append([]models.RecipeLine(nil), p.Recipe...)
	return p
}

func cloneSale(s models.Sale) models.Sale {
	s.Items = append([]models.SaleItem(nil), s.Items...)
	return s
}
