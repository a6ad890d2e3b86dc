package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

type inventoryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Quantity  float64            `bson:"qty"`
	Unit      string             `bson:"unit"`
	MinQty    float64            `bson:"minQty"`
	Version   int64              `bson:"version"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d inventoryDocument) model() models.InventoryItem {
	return models.InventoryItem{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Quantity:  d.Quantity,
		Unit:      d.Unit,
		MinQty:    d.MinQty,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type recipeLineDocument struct {
	InventoryID primitive.ObjectID `bson:"inventoryId"`
	QtyNeeded   float64            `bson:"qtyNeeded"`
}

type productDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Price     float64              `bson:"price"`
	Recipe    []recipeLineDocument `bson:"recipe"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d productDocument) model() models.Product {
	recipe := make([]models.RecipeLine, 0, len(d.Recipe))
	for _, line := range d.Recipe {
		recipe = append(recipe, models.RecipeLine{InventoryID: line.InventoryID.Hex(), QtyNeeded: line.QtyNeeded})
	}
	return models.Product{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		Recipe:    recipe,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func recipeDocuments(recipe []models.RecipeLine) ([]recipeLineDocument, error) {
	out := make([]recipeLineDocument, 0, len(recipe))
	for _, line := range recipe {
		oid, err := primitive.ObjectIDFromHex(line.InventoryID)
		if err != nil {
			return nil, models.ErrNotFound
		}
		out = append(out, recipeLineDocument{InventoryID: oid, QtyNeeded: line.QtyNeeded})
	}
	return out, nil
}

type saleItemDocument struct {
	ProductID   primitive.ObjectID `bson:"product"`
	Name        string             `bson:"name"`
	Quantity    int                `bson:"quantity"`
	PriceAtSale float64            `bson:"priceAtSale"`
}

type saleDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Items           []saleItemDocument `bson:"items"`
	Total           float64            `bson:"total"`
	CustomerContact string             `bson:"customerEmail,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (d saleDocument) model() models.Sale {
	items := make([]models.SaleItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, models.SaleItem{
			ProductID:   item.ProductID.Hex(),
			Name:        item.Name,
			Quantity:    item.Quantity,
			PriceAtSale: item.PriceAtSale,
		})
	}
	return models.Sale{
		ID:              d.ID.Hex(),
		Items:           items,
		Total:           d.Total,
		CustomerContact: d.CustomerContact,
		CreatedAt:       d.CreatedAt,
	}
}

// objectID converts a hex id. Malformed ids cannot exist in the store.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.ErrNotFound
	}
	return oid, nil
}
