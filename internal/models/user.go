package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// User is an operator account. PasswordHash is a bcrypt digest and never
// leaves the server.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

func (User) CollectionName() string { return "users" }

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     Role   `json:"role" validate:"omitempty,oneof=admin operator"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=admin operator"`
	IsActive *bool   `json:"is_active"`
}

type UserList struct {
	Total int64   `json:"total"`
	Users []*User `json:"users"`
}
