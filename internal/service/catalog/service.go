package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = models.ErrNotFound
)

// Store is the product side of the catalog store.
type Store interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	InsertProduct(ctx context.Context, product models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, product models.Product) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error)
}

// ProductInput creates a product.
type ProductInput struct {
	Name   string              `json:"name"`
	Price  float64             `json:"price"`
	Recipe []models.RecipeLine `json:"recipe"`
}

// ProductPatch overwrites the fields that are set. A non-nil Recipe replaces
// the whole recipe.
type ProductPatch struct {
	Name   *string              `json:"name"`
	Price  *float64             `json:"price"`
	Recipe *[]models.RecipeLine `json:"recipe"`
}

// Service manages sellable products and their recipes.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new catalog service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// List returns products with raw recipe lines.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}
	return product, nil
}

// ListDetailed returns products with each recipe line resolved against
// inventory. Lines whose item has disappeared keep an empty name.
func (s *Service) ListDetailed(ctx context.Context) ([]models.ProductDetail, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]models.InventoryItem)
	details := make([]models.ProductDetail, 0, len(products))
	for _, product := range products {
		detail := models.ProductDetail{Product: product, Ingredients: make([]models.Ingredient, 0, len(product.Recipe))}
		for _, line := range product.Recipe {
			item, ok := cache[line.InventoryID]
			if !ok {
				item, err = s.store.GetInventoryItem(ctx, line.InventoryID)
				if err != nil && !errors.Is(err, models.ErrNotFound) {
					return nil, fmt.Errorf("resolve ingredient %s: %w", line.InventoryID, err)
				}
				cache[line.InventoryID] = item
			}
			detail.Ingredients = append(detail.Ingredients, models.Ingredient{
				RecipeLine: line,
				Name:       item.Name,
				Unit:       item.Unit,
				Quantity:   item.Quantity,
				MinQty:     item.MinQty,
			})
		}
		details = append(details, detail)
	}
	return details, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (models.Product, error) {
	product := models.Product{Name: strings.TrimSpace(in.Name), Price: in.Price}
	if product.Name == "" {
		return models.Product{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if product.Price < 0 {
		return models.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	recipe, err := s.normalizeRecipe(ctx, in.Recipe)
	if err != nil {
		return models.Product{}, err
	}
	product.Recipe = recipe

	created, err := s.store.InsertProduct(ctx, product)
	if err != nil {
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("product", created.Name))
	return created, nil
}

// Update overwrites the fields set on patch. Past sales keep their price snapshot.
func (s *Service) Update(ctx context.Context, id string, patch ProductPatch) (models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Product{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		product.Name = name
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return models.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		product.Price = *patch.Price
	}
	if patch.Recipe != nil {
		recipe, err := s.normalizeRecipe(ctx, *patch.Recipe)
		if err != nil {
			return models.Product{}, err
		}
		product.Recipe = recipe
	}

	updated, err := s.store.UpdateProduct(ctx, product)
	if err != nil {
		return models.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// normalizeRecipe defaults qtyNeeded and checks every referenced item exists once.
func (s *Service) normalizeRecipe(ctx context.Context, lines []models.RecipeLine) ([]models.RecipeLine, error) {
	recipe := make([]models.RecipeLine, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))

	for i, line := range lines {
		line.InventoryID = strings.TrimSpace(line.InventoryID)
		if line.InventoryID == "" {
			return nil, fmt.Errorf("%w: recipe line %d has no inventoryId", ErrInvalidInput, i+1)
		}
		if _, dup := seen[line.InventoryID]; dup {
			return nil, fmt.Errorf("%w: inventory item %s appears twice in the recipe", ErrInvalidInput, line.InventoryID)
		}
		seen[line.InventoryID] = struct{}{}

		if line.QtyNeeded == 0 {
			line.QtyNeeded = models.DefaultQtyNeeded
		}
		if line.QtyNeeded < 0 {
			return nil, fmt.Errorf("%w: recipe line %d needs a positive qtyNeeded", ErrInvalidInput, i+1)
		}

		if _, err := s.store.GetInventoryItem(ctx, line.InventoryID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: inventory item %s does not exist", ErrInvalidInput, line.InventoryID)
			}
			return nil, fmt.Errorf("check inventory item %s: %w", line.InventoryID, err)
		}
		recipe = append(recipe, line)
	}
	return recipe, nil
}
