package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type TagRepository interface {
	// Ensure returns the tag named tag.Name, creating it from tag when it
	// does not exist yet.
	Ensure(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tag, error)
	ListPopular(ctx context.Context, limit int64) ([]*models.Tag, error)
	IncUsage(ctx context.Context, id primitive.ObjectID, delta int) error
}

type ChatTagRepository interface {
	Create(ctx context.Context, ct *models.ChatTag) error
	Delete(ctx context.Context, chatID string, tagID primitive.ObjectID) error
	ListTagIDs(ctx context.Context, chatID string) ([]primitive.ObjectID, error)
}

type tagRepo struct {
	baseRepo[models.Tag]
}

func NewTagRepository(db *DB) TagRepository {
	return &tagRepo{
		baseRepo: newBaseRepo[models.Tag](db),
	}
}

func (r *tagRepo) Ensure(ctx context.Context, tag *models.Tag) (*models.Tag, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"display_name": tag.DisplayName,
			"color":        tag.Color,
			"category":     tag.Category,
			"usage_count":  0,
			"created_by":   tag.CreatedBy,
			"created_at":   now,
			"updated_at":   now,
		},
	}
	saved, _, err := r.Upsert(ctx, bson.M{"name": tag.Name}, update)
	if err != nil {
		return nil, fmt.Errorf("ensure tag %q: %w", tag.Name, err)
	}
	return saved, nil
}

func (r *tagRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tag, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *tagRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tag, error) {
	if len(ids) == 0 {
		return []*models.Tag{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return r.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

func (r *tagRepo) ListPopular(ctx context.Context, limit int64) ([]*models.Tag, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "usage_count", Value: -1}, {Key: "name", Value: 1}}).
		SetLimit(limit)
	return r.Find(ctx, bson.M{}, opts)
}

func (r *tagRepo) IncUsage(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"usage_count": delta}, "$set": bson.M{"updated_at": time.Now()}},
	)
}

type chatTagRepo struct {
	baseRepo[models.ChatTag]
}

func NewChatTagRepository(db *DB) ChatTagRepository {
	return &chatTagRepo{
		baseRepo: newBaseRepo[models.ChatTag](db),
	}
}

// Create links a tag to a conversation. Linking twice returns
// models.ErrDuplicate.
func (r *chatTagRepo) Create(ctx context.Context, ct *models.ChatTag) error {
	ct.ID = primitive.NilObjectID
	ct.CreatedAt = time.Now()

	id, err := r.Insert(ctx, ct)
	if err != nil {
		return err
	}
	ct.ID = id
	return nil
}

func (r *chatTagRepo) Delete(ctx context.Context, chatID string, tagID primitive.ObjectID) error {
	return r.DeleteOne(ctx, bson.M{"chat_id": chatID, "tag_id": tagID})
}

func (r *chatTagRepo) ListTagIDs(ctx context.Context, chatID string) ([]primitive.ObjectID, error) {
	links, err := r.Find(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.TagID)
	}
	return ids, nil
}
