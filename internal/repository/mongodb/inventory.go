package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// GetInventoryItem fetches one item by id.
func (r *MongoDBRepository) GetInventoryItem(ctx context.Context, id string) (models.InventoryItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.InventoryItem{}, err
	}

	var doc inventoryDocument
	if err := r.inventory().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.InventoryItem{}, models.ErrNotFound
		}
		return models.InventoryItem{}, fmt.Errorf("failed to load inventory item %s: %w", id, err)
	}
	return doc.model(), nil
}

// UpdateInventoryQuantity sets qty only when the stored version equals
// expectedVersion, and bumps the version.
func (r *MongoDBRepository) UpdateInventoryQuantity(ctx context.Context, id string, quantity float64, expectedVersion int64) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.inventory().UpdateOne(ctx,
		bson.M{"_id": oid, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"qty": quantity, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory item %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, oid)
	}
	return nil
}

// ListInventory returns every item ordered by name.
func (r *MongoDBRepository) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	return r.findInventory(ctx, bson.M{})
}

// ListShortages returns the items whose qty is at or below minQty.
func (r *MongoDBRepository) ListShortages(ctx context.Context) ([]models.InventoryItem, error) {
	return r.findInventory(ctx, bson.M{"$expr": bson.M{"$lte": bson.A{"$qty", "$minQty"}}})
}

// FindInventoryByName matches the exact name, ignoring case.
func (r *MongoDBRepository) FindInventoryByName(ctx context.Context, name string) (models.InventoryItem, error) {
	var doc inventoryDocument
	err := r.inventory().FindOne(ctx, bson.M{"name": name}, options.FindOne().SetCollation(nameCollation)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.InventoryItem{}, models.ErrNotFound
		}
		return models.InventoryItem{}, fmt.Errorf("failed to find inventory item %q: %w", name, err)
	}
	return doc.model(), nil
}

// InsertInventoryItem creates an item at version 1.
func (r *MongoDBRepository) InsertInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	now := time.Now().UTC()
	doc := inventoryDocument{
		Name:      item.Name,
		Quantity:  item.Quantity,
		Unit:      item.Unit,
		MinQty:    item.MinQty,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := r.inventory().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.InventoryItem{}, models.ErrDuplicateName
		}
		return models.InventoryItem{}, fmt.Errorf("failed to insert inventory item: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid.Hex()
	}
	item.Version = doc.Version
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

// UpdateInventoryItem overwrites name, qty, unit and minQty when item.Version matches.
func (r *MongoDBRepository) UpdateInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	oid, err := objectID(item.ID)
	if err != nil {
		return models.InventoryItem{}, err
	}

	var doc inventoryDocument
	err = r.inventory().FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "version": item.Version},
		bson.M{
			"$set": bson.M{
				"name":      item.Name,
				"qty":       item.Quantity,
				"unit":      item.Unit,
				"minQty":    item.MinQty,
				"updatedAt": time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
		return doc.model(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.InventoryItem{}, r.missOrConflict(ctx, oid)
	case mongo.IsDuplicateKeyError(err):
		return models.InventoryItem{}, models.ErrDuplicateName
	default:
		return models.InventoryItem{}, fmt.Errorf("failed to update inventory item %s: %w", item.ID, err)
	}
}

// DeleteInventoryItem removes the item.
func (r *MongoDBRepository) DeleteInventoryItem(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.inventory().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete inventory item %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) findInventory(ctx context.Context, filter bson.M) ([]models.InventoryItem, error) {
	cursor, err := r.inventory().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []inventoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}

	items := make([]models.InventoryItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.model())
	}
	return items, nil
}

// missOrConflict tells a missing document from a stale version after a
// conditional write matched nothing.
func (r *MongoDBRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID) error {
	count, err := r.inventory().CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to check inventory item: %w", err)
	}
	if count == 0 {
		return models.ErrNotFound
	}
	return models.ErrVersionConflict
}
