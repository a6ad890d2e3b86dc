package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// maxWriteAttempts bounds the read-modify-write loop on version conflicts.
const maxWriteAttempts = 3

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrItemInUse     = errors.New("cannot delete")
	ErrNotFound      = models.ErrNotFound
	ErrDuplicateName = models.ErrDuplicateName
)

// Store is the inventory side of the catalog store.
type Store interface {
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
	ListShortages(ctx context.Context) ([]models.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error)
	FindInventoryByName(ctx context.Context, name string) (models.InventoryItem, error)
	InsertInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id string) error
	FindProductUsingItem(ctx context.Context, itemID string) (models.Product, error)
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// StockInput restocks an item by name, creating it when unknown.
type StockInput struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"qty"`
	Unit     string   `json:"unit"`
	MinQty   *float64 `json:"minQty"`
}

// ItemPatch overwrites the fields that are set.
type ItemPatch struct {
	Name     *string  `json:"name"`
	Quantity *float64 `json:"qty"`
	Unit     *string  `json:"unit"`
	MinQty   *float64 `json:"minQty"`
}

// Service manages raw materials outside of checkout.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new inventory service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// List returns every inventory item.
func (s *Service) List(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.store.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

// Shortages returns the items at or below their minimum threshold.
func (s *Service) Shortages(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.store.ListShortages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shortages: %w", err)
	}
	return items, nil
}

// AddStock adds in.Quantity to the item named in.Name (case-insensitive) or
// creates it. created reports which of the two happened.
func (s *Service) AddStock(ctx context.Context, in StockInput) (item models.InventoryItem, created bool, err error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	switch {
	case in.Name == "":
		return models.InventoryItem{}, false, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Quantity < 0:
		return models.InventoryItem{}, false, fmt.Errorf("%w: qty must not be negative", ErrInvalidInput)
	case in.MinQty != nil && *in.MinQty < 0:
		return models.InventoryItem{}, false, fmt.Errorf("%w: minQty must not be negative", ErrInvalidInput)
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := s.store.FindInventoryByName(ctx, in.Name)
		if errors.Is(err, models.ErrNotFound) {
			item, err := s.create(ctx, in)
			if errors.Is(err, models.ErrDuplicateName) {
				// created concurrently; restock it instead
				continue
			}
			return item, err == nil, err
		}
		if err != nil {
			return models.InventoryItem{}, false, fmt.Errorf("find %q: %w", in.Name, err)
		}

		current.Quantity += in.Quantity
		if in.MinQty != nil {
			current.MinQty = *in.MinQty
		}
		updated, err := s.store.UpdateInventoryItem(ctx, current)
		if errors.Is(err, models.ErrVersionConflict) {
			s.logger.Debug("restock raced another write", zap.String("item", current.Name), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return models.InventoryItem{}, false, fmt.Errorf("restock %q: %w", current.Name, err)
		}

		s.logger.Info("inventory restocked",
			zap.String("item_id", updated.ID),
			zap.String("item", updated.Name),
			zap.Float64("added", in.Quantity),
			zap.Float64("qty", updated.Quantity),
		)
		return updated, false, nil
	}
	return models.InventoryItem{}, false, fmt.Errorf("restock %q: %w", in.Name, models.ErrVersionConflict)
}

func (s *Service) create(ctx context.Context, in StockInput) (models.InventoryItem, error) {
	if in.Unit == "" {
		return models.InventoryItem{}, fmt.Errorf("%w: unit is required for a new item", ErrInvalidInput)
	}
	minQty := float64(models.DefaultMinQty)
	if in.MinQty != nil {
		minQty = *in.MinQty
	}

	item, err := s.store.InsertInventoryItem(ctx, models.InventoryItem{
		Name:     in.Name,
		Quantity: in.Quantity,
		Unit:     in.Unit,
		MinQty:   minQty,
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateName) {
			return models.InventoryItem{}, err
		}
		return models.InventoryItem{}, fmt.Errorf("create %q: %w", in.Name, err)
	}

	s.logger.Info("inventory item created", zap.String("item_id", item.ID), zap.String("item", item.Name))
	return item, nil
}

// Edit overwrites the fields set on patch.
func (s *Service) Edit(ctx context.Context, id string, patch ItemPatch) (models.InventoryItem, error) {
	if err := patch.validate(); err != nil {
		return models.InventoryItem{}, err
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		item, err := s.store.GetInventoryItem(ctx, id)
		if err != nil {
			return models.InventoryItem{}, fmt.Errorf("load %s: %w", id, err)
		}
		patch.apply(&item)

		updated, err := s.store.UpdateInventoryItem(ctx, item)
		if errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return models.InventoryItem{}, fmt.Errorf("update %s: %w", id, err)
		}
		return updated, nil
	}
	return models.InventoryItem{}, fmt.Errorf("update %s: %w", id, models.ErrVersionConflict)
}

// Delete removes an item no recipe references.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetInventoryItem(ctx, id); err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}

		product, err := s.store.FindProductUsingItem(ctx, id)
		switch {
		case err == nil:
			return fmt.Errorf("%w: item is currently used in product %q, remove it from the recipe first", ErrItemInUse, product.Name)
		case !errors.Is(err, models.ErrNotFound):
			return fmt.Errorf("check recipes for %s: %w", id, err)
		}

		if err := s.store.DeleteInventoryItem(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		s.logger.Info("inventory item deleted", zap.String("item_id", id))
		return nil
	})
}

func (p ItemPatch) validate() error {
	switch {
	case p.Name != nil && strings.TrimSpace(*p.Name) == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	case p.Unit != nil && strings.TrimSpace(*p.Unit) == "":
		return fmt.Errorf("%w: unit must not be empty", ErrInvalidInput)
	case p.Quantity != nil && *p.Quantity < 0:
		return fmt.Errorf("%w: qty must not be negative", ErrInvalidInput)
	case p.MinQty != nil && *p.MinQty < 0:
		return fmt.Errorf("%w: minQty must not be negative", ErrInvalidInput)
	}
	return nil
}

func (p ItemPatch) apply(item *models.InventoryItem) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		item.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.MinQty != nil {
		item.MinQty = *p.MinQty
	}
}
