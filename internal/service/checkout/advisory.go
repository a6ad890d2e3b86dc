package checkout

import (
	"fmt"
	"math"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// advisoryFactor scales the per-checkout consumption into the low-stock warning level.
const advisoryFactor = 2

// floorCheck enforces the minimum-stock floor for one aggregated deduction.
func floorCheck(item models.InventoryItem, needed float64) error {
	projected := item.Quantity - needed
	if projected >= item.MinQty {
		return nil
	}
	return &InsufficientStockError{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Available: math.Max(0, item.Quantity-item.MinQty),
		Needed:    needed,
		Unit:      item.Unit,
	}
}

// advise raises a warning when what is left after the sale would cover at
// most advisoryFactor more sales of the same size. It never blocks.
func advise(item models.InventoryItem, needed float64) (models.Advisory, bool) {
	projected := item.Quantity - needed
	threshold := advisoryFactor * needed
	if projected > threshold {
		return models.Advisory{}, false
	}
	return models.Advisory{
		ItemID:       item.ID,
		ItemName:     item.Name,
		RemainingQty: projected,
		Threshold:    threshold,
		Unit:         item.Unit,
		Message:      fmt.Sprintf("Low Stock: %s is down to %s %s.", item.Name, formatQty(projected), item.Unit),
	}, true
}
