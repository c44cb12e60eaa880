package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type collectionIndexes struct {
	collection string
	indexes    []mongo.IndexModel
}

func indexSpecs() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: models.ChatMetadata{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "chat_id", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "last_message_at", Value: -1}}},
				{Keys: bson.D{{Key: "assigned_store", Value: 1}, {Key: "status", Value: 1}}},
			},
		},
		{
			collection: models.User{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
		{
			collection: models.AuthToken{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "token_hash", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "user_id", Value: 1}}},
				{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			},
		},
		{
			collection: models.Note{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}}},
			},
		},
		{
			collection: models.Tag{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "usage_count", Value: -1}}},
			},
		},
		{
			collection: models.ChatTag{}.CollectionName(),
			indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "tag_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
	}
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// ones back ErrDuplicate reporting.
func EnsureIndexes(ctx context.Context, db *DB) error {
	for _, spec := range indexSpecs() {
		_, err := db.Database.Collection(spec.collection).Indexes().CreateMany(ctx, spec.indexes)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.collection, err)
		}
	}
	return nil
}
