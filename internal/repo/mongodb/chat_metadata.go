package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type ChatMetadataRepository interface {
	// UpsertFromSync refreshes the cached bridge fields of a conversation,
	// creating the record with defaults on first sight. Operator owned
	// fields of an existing record are left untouched.
	UpsertFromSync(ctx context.Context, conv models.Conversation, store string, now time.Time) (*models.ChatMetadata, bool, error)
	GetByChatID(ctx context.Context, chatID string) (*models.ChatMetadata, error)
	GetByChatIDs(ctx context.Context, chatIDs []string) (map[string]*models.ChatMetadata, error)
	GetOrCreate(ctx context.Context, chatID string) (*models.ChatMetadata, error)
	UpdateCase(ctx context.Context, chatID string, changes CaseChanges) (*models.ChatMetadata, error)
	UpdateCustomer(ctx context.Context, chatID string, update models.CustomerUpdate) (*models.ChatMetadata, error)
	RecordThread(ctx context.Context, chatID string, count int, first, last time.Time) error
	AddTag(ctx context.Context, chatID, name string) error
	RemoveTag(ctx context.Context, chatID, name string) error
	IncNotes(ctx context.Context, chatID string, delta int) error
}

// CaseChanges is a resolved models.CaseUpdate. ClearOperator removes the
// assignment and wins over Operator.
type CaseChanges struct {
	Store         *string
	Operator      *primitive.ObjectID
	ClearOperator bool
	Priority      *models.Priority
	Status        *models.ChatStatus
}

type chatMetadataRepo struct {
	baseRepo[models.ChatMetadata]
}

func NewChatMetadataRepository(db *DB) ChatMetadataRepository {
	return &chatMetadataRepo{
		baseRepo: newBaseRepo[models.ChatMetadata](db),
	}
}

func (r *chatMetadataRepo) UpsertFromSync(ctx context.Context, conv models.Conversation, store string, now time.Time) (*models.ChatMetadata, bool, error) {
	meta, inserted, err := r.Upsert(ctx, bson.M{"chat_id": conv.ID}, syncUpdate(conv, store, now))
	if err != nil {
		return nil, false, fmt.Errorf("upsert chat metadata %q: %w", conv.ID, err)
	}
	return meta, inserted, nil
}

func (r *chatMetadataRepo) GetByChatID(ctx context.Context, chatID string) (*models.ChatMetadata, error) {
	return r.FindOne(ctx, bson.M{"chat_id": chatID})
}

func (r *chatMetadataRepo) GetByChatIDs(ctx context.Context, chatIDs []string) (map[string]*models.ChatMetadata, error) {
	out := make(map[string]*models.ChatMetadata, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	list, err := r.Find(ctx, bson.M{"chat_id": bson.M{"$in": chatIDs}})
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		out[m.ChatID] = m
	}
	return out, nil
}

// GetOrCreate returns the record for chatID, inserting bare defaults when
// the conversation was never synced.
func (r *chatMetadataRepo) GetOrCreate(ctx context.Context, chatID string) (*models.ChatMetadata, error) {
	now := time.Now()
	defaults := insertDefaults(models.Conversation{ID: chatID}, "", now)
	defaults["updated_at"] = now
	meta, _, err := r.Upsert(ctx, bson.M{"chat_id": chatID}, bson.M{"$setOnInsert": defaults})
	return meta, err
}

func (r *chatMetadataRepo) UpdateCase(ctx context.Context, chatID string, changes CaseChanges) (*models.ChatMetadata, error) {
	meta, err := r.FindOneAndUpdate(ctx, bson.M{"chat_id": chatID}, caseUpdate(changes, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("update case %q: %w", chatID, err)
	}
	return meta, nil
}

func (r *chatMetadataRepo) UpdateCustomer(ctx context.Context, chatID string, update models.CustomerUpdate) (*models.ChatMetadata, error) {
	meta, err := r.FindOneAndUpdate(ctx, bson.M{"chat_id": chatID}, customerUpdate(update, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("update customer %q: %w", chatID, err)
	}
	return meta, nil
}

func (r *chatMetadataRepo) RecordThread(ctx context.Context, chatID string, count int, first, last time.Time) error {
	update := bson.M{
		"$set": bson.M{"message_count": count},
	}
	if !first.IsZero() {
		update["$min"] = bson.M{"first_message_at": first}
	}
	if !last.IsZero() {
		update["$max"] = bson.M{"last_message_at": last}
	}
	return r.UpdateOne(ctx, bson.M{"chat_id": chatID}, update)
}

func (r *chatMetadataRepo) AddTag(ctx context.Context, chatID, name string) error {
	return r.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$addToSet": bson.M{"tags": name}, "$set": bson.M{"updated_at": time.Now()}},
	)
}

func (r *chatMetadataRepo) RemoveTag(ctx context.Context, chatID, name string) error {
	return r.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$pull": bson.M{"tags": name}, "$set": bson.M{"updated_at": time.Now()}},
	)
}

func (r *chatMetadataRepo) IncNotes(ctx context.Context, chatID string, delta int) error {
	return r.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$inc": bson.M{"notes_count": delta}},
	)
}

// syncUpdate builds the upsert document for a synced conversation. $set
// only carries bridge cache fields; operator owned fields appear solely in
// $setOnInsert. Timestamps go through $max so an older bridge snapshot
// never moves them backwards.
func syncUpdate(conv models.Conversation, store string, now time.Time) bson.M {
	set := bson.M{
		"display_name":      conv.Name,
		"network":           conv.Network,
		"is_group":          conv.IsGroup,
		"participant_count": conv.ParticipantCount,
		"unread_count":      conv.UnreadCount,
		"sync_status":       models.SyncStatusSynced,
		"updated_at":        now,
	}
	latest := bson.M{"last_synced_at": now}
	if lm := conv.LastMessage; lm != nil {
		set["last_message_text"] = lm.Text
		if !lm.Timestamp.IsZero() {
			latest["last_message_at"] = lm.Timestamp
		}
	}

	return bson.M{
		"$set":         set,
		"$max":         latest,
		"$setOnInsert": insertDefaults(conv, store, now),
	}
}

func insertDefaults(conv models.Conversation, store string, now time.Time) bson.M {
	return bson.M{
		"customer": bson.M{
			"name":     conv.Name,
			"phone":    "",
			"email":    "",
			"platform": conv.Network,
		},
		"order":             bson.M{},
		"assigned_store":    store,
		"assigned_operator": nil,
		"priority":          models.PriorityNormal,
		"status":            models.StatusNew,
		"tags":              []string{},
		"notes_count":       0,
		"message_count":     0,
		"created_at":        now,
	}
}

func caseUpdate(c CaseChanges, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if c.Store != nil {
		set["assigned_store"] = *c.Store
	}
	switch {
	case c.ClearOperator:
		set["assigned_operator"] = nil
	case c.Operator != nil:
		set["assigned_operator"] = *c.Operator
	}
	if c.Priority != nil {
		set["priority"] = *c.Priority
	}
	if c.Status != nil {
		set["status"] = *c.Status
	}
	return bson.M{"$set": set}
}

func customerUpdate(u models.CustomerUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	fields := []struct {
		key string
		val *string
	}{
		{"customer.name", u.Name},
		{"customer.phone", u.Phone},
		{"customer.email", u.Email},
		{"order.platform", u.OrderPlatform},
		{"order.number", u.OrderNumber},
		{"order.status", u.OrderStatus},
	}
	for _, f := range fields {
		if f.val != nil {
			set[f.key] = *f.val
		}
	}
	if u.OrderValue != nil {
		set["order.value"] = *u.OrderValue
	}
	if u.OrderDate != nil {
		set["order.date"] = *u.OrderDate
	}
	return bson.M{"$set": set}
}
