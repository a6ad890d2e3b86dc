package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

type deduction struct {
	item   models.InventoryItem
	amount float64
}

// plan is the validated outcome of a cart before anything is written.
type plan struct {
	items      []models.SaleItem
	total      float64
	deductions []deduction
	advisories []models.Advisory
}

// plan resolves every product and ingredient, sums consumption per item
// across the whole cart and checks each sum against the floor.
func (e *Engine) plan(ctx context.Context, lines []models.CartLine) (plan, error) {
	p := plan{
		items:      make([]models.SaleItem, 0, len(lines)),
		advisories: []models.Advisory{},
	}

	needed := make(map[string]float64)
	var order []string

	for _, line := range lines {
		product, err := e.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return plan{}, &NotFoundError{Kind: KindProduct, ID: line.ProductID}
			}
			return plan{}, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}

		item := models.SaleItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Quantity:    line.Quantity,
			PriceAtSale: product.Price,
		}
		p.items = append(p.items, item)
		p.total += item.LineTotal()

		for _, r := range product.Recipe {
			if r.QtyNeeded <= 0 {
				continue
			}
			if _, seen := needed[r.InventoryID]; !seen {
				order = append(order, r.InventoryID)
			}
			needed[r.InventoryID] += r.QtyNeeded * float64(line.Quantity)
		}
	}

	for _, id := range order {
		item, err := e.store.GetInventoryItem(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return plan{}, &NotFoundError{Kind: KindInventoryItem, ID: id}
			}
			return plan{}, fmt.Errorf("load inventory item %s: %w", id, err)
		}

		amount := needed[id]
		if err := floorCheck(item, amount); err != nil {
			return plan{}, err
		}
		p.deductions = append(p.deductions, deduction{item: item, amount: amount})
	}

	for _, d := range p.deductions {
		if advisory, ok := advise(d.item, d.amount); ok {
			p.advisories = append(p.advisories, advisory)
		}
	}
	return p, nil
}
