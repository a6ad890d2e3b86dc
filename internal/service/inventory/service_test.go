package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/repository/memory"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, nil), store
}

func TestAddStockCreatesWithDefaultThreshold(t *testing.T) {
	svc, _ := setup(t)

	item, created, err := svc.AddStock(context.Background(), StockInput{Name: " Flour ", Quantity: 40, Unit: "kg"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Flour", item.Name)
	assert.Equal(t, 40.0, item.Quantity)
	assert.Equal(t, float64(models.DefaultMinQty), item.MinQty)
}

func TestAddStockRestocksCaseInsensitively(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	original, _, err := svc.AddStock(ctx, StockInput{Name: "Flour", Quantity: 40, Unit: "kg"})
	require.NoError(t, err)

	item, created, err := svc.AddStock(ctx, StockInput{Name: "FLOUR", Quantity: 10, MinQty: ptr(12.0)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, original.ID, item.ID)
	assert.Equal(t, "Flour", item.Name)
	assert.Equal(t, 50.0, item.Quantity)
	assert.Equal(t, 12.0, item.MinQty)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddStockValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, _, err := svc.AddStock(ctx, StockInput{Name: "", Quantity: 1, Unit: "kg"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.AddStock(ctx, StockInput{Name: "Salt", Quantity: -1, Unit: "kg"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.AddStock(ctx, StockInput{Name: "Salt", Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidInput, "new items need a unit")
}

func TestEdit(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	flour, _, err := svc.AddStock(ctx, StockInput{Name: "Flour", Quantity: 40, Unit: "kg"})
	require.NoError(t, err)
	_, _, err = svc.AddStock(ctx, StockInput{Name: "Sugar", Quantity: 10, Unit: "kg"})
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, flour.ID, ItemPatch{Quantity: ptr(3.0), Unit: ptr("g")})
	require.NoError(t, err)
	assert.Equal(t, "Flour", edited.Name)
	assert.Equal(t, 3.0, edited.Quantity)
	assert.Equal(t, "g", edited.Unit)

	_, err = svc.Edit(ctx, flour.ID, ItemPatch{Name: ptr("sugar")})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.Edit(ctx, "missing", ItemPatch{Quantity: ptr(1.0)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Edit(ctx, flour.ID, ItemPatch{MinQty: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	flour, _, err := svc.AddStock(ctx, StockInput{Name: "Flour", Quantity: 40, Unit: "kg"})
	require.NoError(t, err)
	salt, _, err := svc.AddStock(ctx, StockInput{Name: "Salt", Quantity: 2, Unit: "kg"})
	require.NoError(t, err)
	_, err = store.InsertProduct(ctx, models.Product{Name: "Bread", Price: 5, Recipe: []models.RecipeLine{{InventoryID: flour.ID, QtyNeeded: 20}}})
	require.NoError(t, err)

	err = svc.Delete(ctx, flour.ID)
	require.ErrorIs(t, err, ErrItemInUse)
	assert.Contains(t, err.Error(), `"Bread"`)
	assert.Contains(t, err.Error(), "remove it from the recipe first")
	_, err = store.GetInventoryItem(ctx, flour.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, salt.ID))
	_, err = store.GetInventoryItem(ctx, salt.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, salt.ID), ErrNotFound)
}

func TestShortages(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	_, _, err := svc.AddStock(ctx, StockInput{Name: "Flour", Quantity: 5, Unit: "kg"})
	require.NoError(t, err)
	_, _, err = svc.AddStock(ctx, StockInput{Name: "Sugar", Quantity: 6, Unit: "kg"})
	require.NoError(t, err)

	short, err := svc.Shortages(ctx)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "Flour", short[0].Name)
}
