package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sentinel errors returned by the store. Callers test them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrTurnExists = errors.New("turn already exists for this adventure and order")
)

// Store wraps the MongoDB connection and owns the adventures and turns
// collections. Its lifecycle is tied to process start: construct once in main
// and pass it down.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewStore connects to MongoDB, verifies the connection, and ensures the
// indexes the store relies on.
func NewStore(ctx context.Context, uri, databaseName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &Store{
		client:   client,
		database: client.Database(databaseName),
	}

	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	log.Println("Connected to MongoDB successfully")
	return store, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.database.Collection(name)
}

// ensureIndexes creates the indexes the store depends on. The unique compound
// index on (adventure_id, order) is what rejects duplicate-order turn writes;
// there is no check-then-insert window.
func (s *Store) ensureIndexes(ctx context.Context) error {
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	turnIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "adventure_id", Value: 1},
				{Key: "order", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "adventure_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	if _, err := s.collection("turns").Indexes().CreateMany(indexCtx, turnIndexes); err != nil {
		return fmt.Errorf("failed to create turn indexes: %w", err)
	}

	adventureIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	if _, err := s.collection("adventures").Indexes().CreateMany(indexCtx, adventureIndexes); err != nil {
		return fmt.Errorf("failed to create adventure indexes: %w", err)
	}

	return nil
}
