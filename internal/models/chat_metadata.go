package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ChatStatus string

const (
	StatusNew             ChatStatus = "new"
	StatusInProgress      ChatStatus = "in_progress"
	StatusWaitingCustomer ChatStatus = "waiting_customer"
	StatusResolved        ChatStatus = "resolved"
	StatusClosed          ChatStatus = "closed"
)

const (
	SyncStatusSynced = "synced"
	SyncStatusError  = "error"
)

// ChatMetadata holds the CRM state for one bridge conversation. ChatID is
// unique. Fields under "operator owned" are never written by a sync.
type ChatMetadata struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID string             `bson:"chat_id" json:"chat_id"`

	// operator owned
	Customer         CustomerInfo        `bson:"customer" json:"customer"`
	Order            OrderInfo           `bson:"order" json:"order"`
	AssignedStore    string              `bson:"assigned_store" json:"assigned_store,omitempty"`
	AssignedOperator *primitive.ObjectID `bson:"assigned_operator" json:"assigned_operator,omitempty"`
	Priority         Priority            `bson:"priority" json:"priority"`
	Status           ChatStatus          `bson:"status" json:"status"`
	Tags             []string            `bson:"tags" json:"tags"`
	NotesCount       int                 `bson:"notes_count" json:"notes_count"`

	// cached from the bridge
	DisplayName      string    `bson:"display_name" json:"display_name"`
	Network          string    `bson:"network" json:"network"`
	IsGroup          bool      `bson:"is_group" json:"is_group"`
	ParticipantCount int       `bson:"participant_count" json:"participant_count"`
	UnreadCount      int       `bson:"unread_count" json:"unread_count"`
	LastMessageText  string    `bson:"last_message_text" json:"last_message_text"`
	LastMessageAt    time.Time `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	FirstMessageAt   time.Time `bson:"first_message_at,omitempty" json:"first_message_at,omitempty"`
	MessageCount     int       `bson:"message_count" json:"message_count"`
	LastSyncedAt     time.Time `bson:"last_synced_at" json:"last_synced_at"`
	SyncStatus       string    `bson:"sync_status" json:"sync_status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (ChatMetadata) CollectionName() string { return "chat_metadata" }

type CustomerInfo struct {
	Name     string `bson:"name" json:"name"`
	Phone    string `bson:"phone" json:"phone"`
	Email    string `bson:"email" json:"email"`
	Platform string `bson:"platform" json:"platform"`
}

type OrderInfo struct {
	Platform string     `bson:"platform" json:"platform"`
	Number   string     `bson:"number" json:"number"`
	Value    float64    `bson:"value" json:"value"`
	Status   string     `bson:"status" json:"status"`
	Date     *time.Time `bson:"date,omitempty" json:"date,omitempty"`
}

// CaseUpdate changes assignment and triage. Nil fields are left alone;
// an empty AssignedOperator clears the assignment.
type CaseUpdate struct {
	AssignedStore    *string     `json:"assigned_store"`
	AssignedOperator *string     `json:"assigned_operator"`
	Priority         *Priority   `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Status           *ChatStatus `json:"status" validate:"omitempty,oneof=new in_progress waiting_customer resolved closed"`
}

type CustomerUpdate struct {
	Name          *string    `json:"name" validate:"omitempty,max=200"`
	Phone         *string    `json:"phone" validate:"omitempty,max=40"`
	Email         *string    `json:"email" validate:"omitempty,email"`
	OrderPlatform *string    `json:"order_platform" validate:"omitempty,max=100"`
	OrderNumber   *string    `json:"order_number" validate:"omitempty,max=100"`
	OrderValue    *float64   `json:"order_value" validate:"omitempty,gte=0"`
	OrderStatus   *string    `json:"order_status" validate:"omitempty,max=100"`
	OrderDate     *time.Time `json:"order_date"`
}
