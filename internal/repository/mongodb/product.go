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

// GetProduct fetches one product by id. Recipe lines are returned as stored;
// callers resolve inventory items explicitly.
func (r *MongoDBRepository) GetProduct(ctx context.Context, id string) (models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Product{}, err
	}

	var doc productDocument
	if err := r.products().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, models.ErrNotFound
		}
		return models.Product{}, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return doc.model(), nil
}

// ListProducts returns every product ordered by name.
func (r *MongoDBRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	cursor, err := r.products().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.model())
	}
	return products, nil
}

// FindProductUsingItem returns a product whose recipe references itemID.
func (r *MongoDBRepository) FindProductUsingItem(ctx context.Context, itemID string) (models.Product, error) {
	oid, err := objectID(itemID)
	if err != nil {
		return models.Product{}, err
	}

	var doc productDocument
	err = r.products().FindOne(ctx, bson.M{"recipe.inventoryId": oid}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, models.ErrNotFound
		}
		return models.Product{}, fmt.Errorf("failed to query recipes for %s: %w", itemID, err)
	}
	return doc.model(), nil
}

// InsertProduct stores a new product.
func (r *MongoDBRepository) InsertProduct(ctx context.Context, product models.Product) (models.Product, error) {
	recipe, err := recipeDocuments(product.Recipe)
	if err != nil {
		return models.Product{}, err
	}

	now := time.Now().UTC()
	doc := productDocument{
		Name:      product.Name,
		Price:     product.Price,
		Recipe:    recipe,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := r.products().InsertOne(ctx, doc)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.model(), nil
}

// UpdateProduct overwrites name, price and recipe.
func (r *MongoDBRepository) UpdateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	oid, err := objectID(product.ID)
	if err != nil {
		return models.Product{}, err
	}
	recipe, err := recipeDocuments(product.Recipe)
	if err != nil {
		return models.Product{}, err
	}

	var doc productDocument
	err = r.products().FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"name":      product.Name,
			"price":     product.Price,
			"recipe":    recipe,
			"updatedAt": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, models.ErrNotFound
		}
		return models.Product{}, fmt.Errorf("failed to update product %s: %w", product.ID, err)
	}
	return doc.model(), nil
}

// DeleteProduct removes the product. Sales keep their own snapshot.
func (r *MongoDBRepository) DeleteProduct(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := r.products().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
