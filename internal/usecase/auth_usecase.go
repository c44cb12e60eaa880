package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

type sessionClaims struct {
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Active bool        `json:"active"`
	jwt.RegisteredClaims
}

type authUsecase struct {
	userRepo   mongodb.UserRepository
	tokenRepo  mongodb.AuthTokenRepository
	jwtSecret  []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAuthUsecase(conf *config.Config, userRepo mongodb.UserRepository, tokenRepo mongodb.AuthTokenRepository) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtSecret:  []byte(conf.Auth.JWTSecret),
		sessionTTL: conf.Auth.SessionTTL,
		now:        time.Now,
	}
}

func (uc *authUsecase) Login(ctx context.Context, req models.LoginRequest, userAgent, ipAddress string) (*models.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	token, expiresAt, err := uc.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("generate jwt: %w", err)
	}

	authToken := &models.AuthToken{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}
	if err := uc.tokenRepo.Create(ctx, authToken); err != nil {
		return nil, fmt.Errorf("store auth token: %w", err)
	}

	now := uc.now()
	if err := uc.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warnw(ctx, "update last login", "user_id", user.ID.Hex(), "error", err)
	} else {
		user.LastLogin = &now
	}

	return &models.LoginResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken resolves a session. The signature and expiry are checked
// first, then revocation, then the account's current active flag.
func (uc *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := uc.parseJWT(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	authToken, err := uc.tokenRepo.GetByTokenHash(ctx, hashToken(tokenString))
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", err)
	}
	if authToken.IsRevoked || authToken.ExpiresAt.Before(uc.now()) {
		return nil, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := uc.userRepo.GetByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	return &models.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsActive:  user.IsActive,
		ExpiresAt: authToken.ExpiresAt,
	}, nil
}

func (uc *authUsecase) Logout(ctx context.Context, tokenString string) error {
	err := uc.tokenRepo.RevokeToken(ctx, hashToken(tokenString))
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

func (uc *authUsecase) generateJWT(user *models.User) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(uc.sessionTTL)

	claims := sessionClaims{
		Email:  user.Email,
		Role:   user.Role,
		Active: user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (uc *authUsecase) parseJWT(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return uc.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(uc.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
