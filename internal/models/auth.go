package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthToken records an issued session so it can be revoked on sign-out.
type AuthToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	TokenHash string             `bson:"token_hash" json:"-"` // sha256 of the signed JWT
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	IsRevoked bool               `bson:"is_revoked" json:"is_revoked"`
	UserAgent string             `bson:"user_agent" json:"user_agent"`
	IPAddress string             `bson:"ip_address" json:"ip_address"`
}

func (AuthToken) CollectionName() string { return "auth_tokens" }

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is the authenticated principal resolved from a token.
type Session struct {
	UserID    primitive.ObjectID `json:"user_id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      Role               `json:"role"`
	IsActive  bool               `json:"is_active"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
