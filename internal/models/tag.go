package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TagCategory string

const (
	TagCategoryGeneral  TagCategory = "general"
	TagCategoryProduct  TagCategory = "product"
	TagCategoryIssue    TagCategory = "issue"
	TagCategoryCustomer TagCategory = "customer"
	TagCategoryOrder    TagCategory = "order"
)

const DefaultTagColor = "#6B7280"

// Tag is global. Name is the lowercase unique key, UsageCount tracks how
// many conversations carry it.
type Tag struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Color       string             `bson:"color" json:"color"`
	Category    TagCategory        `bson:"category" json:"category"`
	UsageCount  int                `bson:"usage_count" json:"usage_count"`
	CreatedBy   primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (Tag) CollectionName() string { return "tags" }

// ChatTag binds a tag to a conversation, unique per (chat, tag).
type ChatTag struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chat_id" json:"chat_id"`
	TagID     primitive.ObjectID `bson:"tag_id" json:"tag_id"`
	AddedBy   primitive.ObjectID `bson:"added_by" json:"added_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (ChatTag) CollectionName() string { return "chat_tags" }

type AddTagRequest struct {
	Name     string      `json:"name" validate:"required,max=50"`
	Color    string      `json:"color" validate:"omitempty,hexcolor"`
	Category TagCategory `json:"category" validate:"omitempty,oneof=general product issue customer order"`
}
