package usecase

import (
	"context"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

type AuthUsecase interface {
	Login(ctx context.Context, req models.LoginRequest, userAgent, ipAddress string) (*models.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
}

type UserUsecase interface {
	CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int64) (*models.UserList, error)
	UpdateUser(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error)
}

type SyncUsecase interface {
	Sync(ctx context.Context, opts models.SyncOptions) (*models.SyncResult, error)
}

type ConversationUsecase interface {
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID string, req *models.SendMessageRequest) error
	DownloadMedia(ctx context.Context, rawURL string) (*models.Media, error)
	BridgeStatus(ctx context.Context, retry bool) models.BridgeStatus
	UpdateCase(ctx context.Context, chatID string, req *models.CaseUpdate) (*models.ChatMetadata, error)
	GetCustomer(ctx context.Context, chatID string) (*models.ChatMetadata, error)
	UpdateCustomer(ctx context.Context, chatID string, req *models.CustomerUpdate) (*models.ChatMetadata, error)
}

type NoteUsecase interface {
	ListNotes(ctx context.Context, chatID string, viewer *models.Session) ([]*models.Note, error)
	CreateNote(ctx context.Context, chatID string, author *models.Session, req *models.CreateNoteRequest) (*models.Note, error)
	UpdateNote(ctx context.Context, chatID, noteID string, viewer *models.Session, req *models.UpdateNoteRequest) (*models.Note, error)
}

type TagUsecase interface {
	ListChatTags(ctx context.Context, chatID string) ([]*models.Tag, error)
	AddTag(ctx context.Context, chatID string, by *models.Session, req *models.AddTagRequest) (*models.Tag, error)
	RemoveTag(ctx context.Context, chatID, tagID string) error
	ListPopular(ctx context.Context, limit int64) ([]*models.Tag, error)
}
