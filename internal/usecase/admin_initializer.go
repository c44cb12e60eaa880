package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

var ErrAdminExists = errors.New("an admin account already exists")

// CreateFirstAdmin creates an admin account from req unless one already
// exists, in which case it returns ErrAdminExists.
func CreateFirstAdmin(ctx context.Context, userRepo mongodb.UserRepository, req *models.CreateUserRequest) (*models.User, error) {
	admins, err := userRepo.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil, ErrAdminExists
	}

	req.Role = models.RoleAdmin
	user, err := NewAccount(req)
	if err != nil {
		return nil, err
	}
	if err := userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s already registered", ErrConflict, user.Email)
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

// BootstrapAdmin seeds the first admin from BOOTSTRAP_ADMIN_* when both
// email and password are set. It is a no-op once any admin exists.
func BootstrapAdmin(conf *config.Config, userRepo mongodb.UserRepository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b := conf.Bootstrap
	if b.AdminEmail == "" || b.AdminPassword == "" {
		log.Debugw(ctx, "bootstrap admin not configured")
		return nil
	}

	user, err := CreateFirstAdmin(ctx, userRepo, &models.CreateUserRequest{
		Name:     b.AdminName,
		Email:    b.AdminEmail,
		Password: b.AdminPassword,
	})
	switch {
	case errors.Is(err, ErrAdminExists):
		log.Debugw(ctx, "admin already present, skipping bootstrap")
		return nil
	case errors.Is(err, ErrConflict):
		log.Warnw(ctx, "bootstrap admin email belongs to an existing operator", "email", b.AdminEmail)
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	log.Infow(ctx, "bootstrap admin created", "user_id", user.ID.Hex(), "email", user.Email)
	return nil
}
