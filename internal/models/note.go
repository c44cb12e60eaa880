package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxNoteLength = 5000

type NoteType string

const (
	NoteGeneral      NoteType = "general"
	NoteCustomerInfo NoteType = "customer_info"
	NoteOrderInfo    NoteType = "order_info"
	NoteTechnical    NoteType = "technical"
	NoteReminder     NoteType = "reminder"
)

// Note is an operator annotation on a conversation. Content is immutable;
// only the pinned and archived flags change after creation.
type Note struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID     string             `bson:"chat_id" json:"chat_id"`
	Content    string             `bson:"content" json:"content"`
	AuthorID   primitive.ObjectID `bson:"author_id" json:"author_id"`
	AuthorName string             `bson:"author_name" json:"author_name"`
	Type       NoteType           `bson:"type" json:"type"`
	IsPrivate  bool               `bson:"is_private" json:"is_private"`
	IsPinned   bool               `bson:"is_pinned" json:"is_pinned"`
	IsArchived bool               `bson:"is_archived" json:"is_archived"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

func (Note) CollectionName() string { return "notes" }

type CreateNoteRequest struct {
	Content   string   `json:"content"`
	Type      NoteType `json:"type" validate:"omitempty,oneof=general customer_info order_info technical reminder"`
	IsPrivate *bool    `json:"is_private"`
	IsPinned  bool     `json:"is_pinned"`
}

type UpdateNoteRequest struct {
	IsPinned   *bool `json:"is_pinned"`
	IsArchived *bool `json:"is_archived"`
}
