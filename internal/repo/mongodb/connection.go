package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens a client for uri and selects database. The connection is
// lazy; callers ping when they need to know it is reachable.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("chat-crm").
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &DB{
		Client:   client,
		Database: client.Database(database),
	}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, nil)
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
