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

// InsertSale appends a sale to the ledger and returns its id.
func (r *MongoDBRepository) InsertSale(ctx context.Context, sale models.Sale) (string, error) {
	items := make([]saleItemDocument, 0, len(sale.Items))
	for _, item := range sale.Items {
		pid, err := objectID(item.ProductID)
		if err != nil {
			return "", fmt.Errorf("sale item %q: %w", item.ProductID, err)
		}
		items = append(items, saleItemDocument{
			ProductID:   pid,
			Name:        item.Name,
			Quantity:    item.Quantity,
			PriceAtSale: item.PriceAtSale,
		})
	}

	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.sales().InsertOne(ctx, saleDocument{
		Items:           items,
		Total:           sale.Total,
		CustomerContact: sale.CustomerContact,
		CreatedAt:       createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert sale: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected sale id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// GetSale fetches one sale.
func (r *MongoDBRepository) GetSale(ctx context.Context, id string) (models.Sale, error) {
	oid, err := objectID(id)
	if err != nil {
		return models.Sale{}, err
	}

	var doc saleDocument
	if err := r.sales().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Sale{}, models.ErrNotFound
		}
		return models.Sale{}, fmt.Errorf("failed to load sale %s: %w", id, err)
	}
	return doc.model(), nil
}

// ListSales returns up to limit sales, newest first. A limit <= 0 returns all.
func (r *MongoDBRepository) ListSales(ctx context.Context, limit int) ([]models.Sale, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.findSales(ctx, bson.M{}, opts)
}

// ListSalesBetween returns sales created in [start, end), oldest first.
func (r *MongoDBRepository) ListSalesBetween(ctx context.Context, start, end time.Time) ([]models.Sale, error) {
	filter := bson.M{"createdAt": bson.M{"$gte": start, "$lt": end}}
	return r.findSales(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoDBRepository) findSales(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Sale, error) {
	cursor, err := r.sales().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}

	sales := make([]models.Sale, 0, len(docs))
	for _, doc := range docs {
		sales = append(sales, doc.model())
	}
	return sales, nil
}
