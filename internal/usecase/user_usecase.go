package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

const (
	PasswordCost     = 12
	MinPasswordChars = 6
)

// accountValidate checks addresses the same way the HTTP binder does.
var accountValidate = validator.New()

type userUsecase struct {
	userRepo  mongodb.UserRepository
	tokenRepo mongodb.AuthTokenRepository
}

func NewUserUsecase(userRepo mongodb.UserRepository, tokenRepo mongodb.AuthTokenRepository) UserUsecase {
	return &userUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
	}
}

func (uc *userUsecase) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	user, err := NewAccount(req)
	if err != nil {
		return nil, err
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s already registered", ErrConflict, user.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Infow(ctx, "user created", "user_id", user.ID.Hex(), "role", user.Role)
	return user, nil
}

func (uc *userUsecase) GetUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	return uc.userRepo.GetByID(ctx, oid)
}

func (uc *userUsecase) ListUsers(ctx context.Context, limit, offset int64) (*models.UserList, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.userRepo.List(ctx, limit, offset)
}

// UpdateUser changes name, role or active flag. Deactivating an account
// revokes its open sessions.
func (uc *userUsecase) UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name must not be blank", ErrValidation)
	}

	user, err := uc.userRepo.Update(ctx, oid, req)
	if err != nil {
		return nil, err
	}

	if req.IsActive != nil && !*req.IsActive {
		if err := uc.tokenRepo.RevokeUserTokens(ctx, oid); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return user, nil
}

// NewAccount validates req and returns an active user with a bcrypt
// password hash. The role defaults to operator.
func NewAccount(req *models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	switch {
	case accountValidate.Var(email, "required,email") != nil:
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case len(req.Password) < MinPasswordChars:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordChars)
	case len(req.Password) > 72:
		return nil, fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
	}

	role := req.Role
	if role == "" {
		role = models.RoleOperator
	}
	if role != models.RoleAdmin && role != models.RoleOperator {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}, nil
}
