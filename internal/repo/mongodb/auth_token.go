package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

// AuthTokenRepository tracks issued sessions. Expired rows are removed by
// the TTL index on expires_at.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthToken, error)
	RevokeToken(ctx context.Context, tokenHash string) error
	RevokeUserTokens(ctx context.Context, userID primitive.ObjectID) error
}

type authTokenRepo struct {
	baseRepo[models.AuthToken]
}

func NewAuthTokenRepository(db *DB) AuthTokenRepository {
	return &authTokenRepo{
		baseRepo: newBaseRepo[models.AuthToken](db),
	}
}

func (r *authTokenRepo) Create(ctx context.Context, token *models.AuthToken) error {
	token.ID = primitive.NilObjectID
	token.CreatedAt = time.Now()

	id, err := r.Insert(ctx, token)
	if err != nil {
		return fmt.Errorf("create auth token: %w", err)
	}
	token.ID = id
	return nil
}

func (r *authTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthToken, error) {
	return r.FindOne(ctx, bson.M{"token_hash": tokenHash})
}

func (r *authTokenRepo) RevokeToken(ctx context.Context, tokenHash string) error {
	return r.UpdateOne(ctx,
		bson.M{"token_hash": tokenHash},
		bson.M{"$set": bson.M{"is_revoked": true}},
	)
}

func (r *authTokenRepo) RevokeUserTokens(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_revoked": false},
		bson.M{"$set": bson.M{"is_revoked": true}},
	)
	if err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}
