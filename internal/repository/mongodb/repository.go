package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	inventoryCollection = "inventories"
	productCollection   = "products"
	saleCollection      = "sales"
	reportCollection    = "daily_reports"
)

// nameCollation makes name comparisons case-insensitive.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

// MongoDBRepository implements the catalog store, the sale ledger and the
// report archive on MongoDB. Atomic checkouts need a replica set.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return repo, nil
}

// EnsureIndexes creates the unique case-insensitive name index and the sale date index.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.inventory().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(nameCollation),
	})
	if err != nil {
		return fmt.Errorf("failed to create inventory name index: %w", err)
	}

	_, err = r.products().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipe.inventoryId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create recipe index: %w", err)
	}

	_, err = r.sales().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sales index: %w", err)
	}

	r.logger.Debug("mongodb indexes ensured", zap.String("database", r.db.Name()))
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) inventory() *mongo.Collection {
	return r.db.Collection(inventoryCollection)
}
func (r *MongoDBRepository) products() *mongo.Collection { return r.db.Collection(productCollection) }
func (r *MongoDBRepository) sales() *mongo.Collection    { return r.db.Collection(saleCollection) }
func (r *MongoDBRepository) reports() *mongo.Collection  { return r.db.Collection(reportCollection) }
