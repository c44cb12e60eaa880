package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, req *models.UpdateUserRequest) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	List(ctx context.Context, limit, offset int64) (*models.UserList, error)
	CountAdmins(ctx context.Context) (int64, error)
}

type userRepo struct {
	baseRepo[models.User]
}

func NewUserRepository(db *DB) UserRepository {
	return &userRepo{
		baseRepo: newBaseRepo[models.User](db),
	}
}

// Create inserts user with a normalized email. A taken email returns
// models.ErrDuplicate.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.ID = primitive.NilObjectID
	user.Email = normalizeEmail(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	id, err := r.Insert(ctx, user)
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.FindOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *userRepo) Update(ctx context.Context, id primitive.ObjectID, req *models.UpdateUserRequest) (*models.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		set["role"] = *req.Role
	}
	if req.IsActive != nil {
		set["is_active"] = *req.IsActive
	}

	user, err := r.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login": at}})
}

func (r *userRepo) List(ctx context.Context, limit, offset int64) (*models.UserList, error) {
	sort := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	page, err := r.PaginateWithTotal(ctx, bson.M{}, limit, offset, sort)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &models.UserList{Total: page.Total, Users: page.Data}, nil
}

func (r *userRepo) CountAdmins(ctx context.Context) (int64, error) {
	return r.Count(ctx, bson.M{"role": models.RoleAdmin})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
