package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a MongoDB client, verifies it with a ping and returns the
// named database.
func Connect(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("Connected to MongoDB")
	return client, client.Database(dbName), nil
}

// Disconnect closes the client, tolerating a nil client.
func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the engine's correctness depends on.
// The slot_locks unique index is the serializing guard that makes booking
// confirmation safe against concurrent double-booking.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	slotLocks := database.Collection("slot_locks")
	_, err := slotLocks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: map[string]interface{}{"lock_key": 1},
		Options: options.Index().
			SetUnique(true).
			SetName("uniq_slot_lock_key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create slot_locks index: %w", err)
	}
	_, err = slotLocks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    map[string]interface{}{"appointment_id": 1},
		Options: options.Index().SetName("idx_slot_locks_appointment"),
	})
	if err != nil {
		return fmt.Errorf("failed to create slot_locks appointment index: %w", err)
	}

	tokens := database.Collection("booking_tokens")
	_, err = tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    map[string]interface{}{"inquiry_id": 1},
		Options: options.Index().SetName("idx_tokens_inquiry"),
	})
	if err != nil {
		return fmt.Errorf("failed to create booking_tokens index: %w", err)
	}
	return nil
}
