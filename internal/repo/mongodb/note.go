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

type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	Get(ctx context.Context, chatID string, id primitive.ObjectID) (*models.Note, error)
	ListByChat(ctx context.Context, chatID string, includeArchived bool) ([]*models.Note, error)
	UpdateFlags(ctx context.Context, chatID string, id primitive.ObjectID, req *models.UpdateNoteRequest) (*models.Note, error)
}

type noteRepo struct {
	baseRepo[models.Note]
}

func NewNoteRepository(db *DB) NoteRepository {
	return &noteRepo{
		baseRepo: newBaseRepo[models.Note](db),
	}
}

func (r *noteRepo) Create(ctx context.Context, note *models.Note) error {
	now := time.Now()
	note.ID = primitive.NilObjectID
	note.CreatedAt = now
	note.UpdatedAt = now

	id, err := r.Insert(ctx, note)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	note.ID = id
	return nil
}

func (r *noteRepo) Get(ctx context.Context, chatID string, id primitive.ObjectID) (*models.Note, error) {
	return r.FindOne(ctx, bson.M{"_id": id, "chat_id": chatID})
}

// ListByChat returns pinned notes first, then newest first.
func (r *noteRepo) ListByChat(ctx context.Context, chatID string, includeArchived bool) ([]*models.Note, error) {
	filter := bson.M{"chat_id": chatID}
	if !includeArchived {
		filter["is_archived"] = false
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "is_pinned", Value: -1},
		{Key: "created_at", Value: -1},
	})
	return r.Find(ctx, filter, opts)
}

func (r *noteRepo) UpdateFlags(ctx context.Context, chatID string, id primitive.ObjectID, req *models.UpdateNoteRequest) (*models.Note, error) {
	set := bson.M{"updated_at": time.Now()}
	if req.IsPinned != nil {
		set["is_pinned"] = *req.IsPinned
	}
	if req.IsArchived != nil {
		set["is_archived"] = *req.IsArchived
	}
	return r.FindOneAndUpdate(ctx, bson.M{"_id": id, "chat_id": chatID}, bson.M{"$set": set})
}
