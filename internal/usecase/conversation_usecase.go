package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/bridge"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/crypto"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
	"github.com/nguyentranbao-ct/chat-crm/pkg/util"
)

type conversationUsecase struct {
	conf     *config.Config
	bridge   bridge.Client
	metaRepo mongodb.ChatMetadataRepository
	userRepo mongodb.UserRepository
	crypto   crypto.Client
}

func NewConversationUsecase(
	conf *config.Config,
	bridgeClient bridge.Client,
	metaRepo mongodb.ChatMetadataRepository,
	userRepo mongodb.UserRepository,
	cryptoClient crypto.Client,
) ConversationUsecase {
	return &conversationUsecase{
		conf:     conf,
		bridge:   bridgeClient,
		metaRepo: metaRepo,
		userRepo: userRepo,
		crypto:   cryptoClient,
	}
}

// ListMessages fetches a thread and refreshes the message counters of its
// CRM record. Counter failures are logged only.
func (uc *conversationUsecase) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = uc.conf.Bridge.PageSize
	}
	messages, err := uc.bridge.ListMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}

	if len(messages) > 0 {
		first, last := threadBounds(messages)
		err := uc.metaRepo.RecordThread(ctx, chatID, len(messages), first, last)
		switch {
		case errors.Is(err, models.ErrNotFound):
			log.Debugw(ctx, "thread fetched for unsynced chat", "chat_id", chatID)
		case err != nil:
			log.Warnw(ctx, "record thread stats", "chat_id", chatID, "error", err)
		}
	}
	return messages, nil
}

func threadBounds(messages []models.Message) (first, last time.Time) {
	for _, m := range messages {
		if m.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	return first, last
}

func (uc *conversationUsecase) SendMessage(ctx context.Context, chatID string, req *models.SendMessageRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}

	ok, err := uc.bridge.SendMessage(ctx, chatID, text, req.ReplyToMessageID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: message was not accepted", ErrBridgeUnavailable)
	}
	log.Infow(ctx, "message sent", "chat_id", chatID)
	return nil
}

func (uc *conversationUsecase) DownloadMedia(ctx context.Context, rawURL string) (*models.Media, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	media, err := uc.bridge.DownloadMedia(ctx, rawURL)
	if errors.Is(err, bridge.ErrInvalidMedia) && !bridge.IsUnavailable(err) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return media, err
}

func (uc *conversationUsecase) BridgeStatus(ctx context.Context, retry bool) models.BridgeStatus {
	if retry {
		return uc.bridge.Reprobe(ctx)
	}
	return uc.bridge.Status(ctx)
}

func (uc *conversationUsecase) UpdateCase(ctx context.Context, chatID string, req *models.CaseUpdate) (*models.ChatMetadata, error) {
	changes, err := uc.resolveCase(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := uc.metaRepo.GetOrCreate(ctx, chatID); err != nil {
		return nil, fmt.Errorf("get chat metadata: %w", err)
	}
	meta, err := uc.metaRepo.UpdateCase(ctx, chatID, changes)
	if err != nil {
		return nil, err
	}
	return openCustomer(uc.crypto, meta)
}

func (uc *conversationUsecase) resolveCase(ctx context.Context, req *models.CaseUpdate) (mongodb.CaseChanges, error) {
	changes := mongodb.CaseChanges{
		Priority: req.Priority,
		Status:   req.Status,
	}

	if req.AssignedStore != nil {
		store := strings.TrimSpace(*req.AssignedStore)
		if store != "" {
			canonical, ok := uc.canonicalStore(store)
			if !ok {
				return changes, fmt.Errorf("%w: unknown store %q", ErrValidation, store)
			}
			store = canonical
		}
		changes.Store = &store
	}

	if req.AssignedOperator != nil {
		raw := strings.TrimSpace(*req.AssignedOperator)
		if raw == "" {
			changes.ClearOperator = true
			return changes, nil
		}
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return changes, fmt.Errorf("%w: invalid operator id", ErrValidation)
		}
		user, err := uc.userRepo.GetByID(ctx, oid)
		if errors.Is(err, models.ErrNotFound) {
			return changes, fmt.Errorf("%w: operator not found", ErrValidation)
		}
		if err != nil {
			return changes, fmt.Errorf("get operator: %w", err)
		}
		if !user.IsActive {
			return changes, fmt.Errorf("%w: operator is deactivated", ErrValidation)
		}
		changes.Operator = &oid
	}
	return changes, nil
}

func (uc *conversationUsecase) canonicalStore(name string) (string, bool) {
	for _, s := range uc.conf.CRM.Stores {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

func (uc *conversationUsecase) GetCustomer(ctx context.Context, chatID string) (*models.ChatMetadata, error) {
	meta, err := uc.metaRepo.GetOrCreate(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat metadata: %w", err)
	}
	return openCustomer(uc.crypto, meta)
}

// UpdateCustomer stores contact and order fields. Phone and email are
// sealed before they reach the database.
func (uc *conversationUsecase) UpdateCustomer(ctx context.Context, chatID string, req *models.CustomerUpdate) (*models.ChatMetadata, error) {
	update := *req
	for _, field := range []**string{&update.Phone, &update.Email} {
		if *field == nil {
			continue
		}
		sealed, err := uc.crypto.Seal(strings.TrimSpace(**field))
		if err != nil {
			return nil, fmt.Errorf("seal customer field: %w", err)
		}
		*field = util.Ptr(sealed)
	}

	if _, err := uc.metaRepo.GetOrCreate(ctx, chatID); err != nil {
		return nil, fmt.Errorf("get chat metadata: %w", err)
	}
	meta, err := uc.metaRepo.UpdateCustomer(ctx, chatID, update)
	if err != nil {
		return nil, err
	}
	return openCustomer(uc.crypto, meta)
}

// openCustomer returns a copy of meta with the sealed contact fields
// opened.
func openCustomer(c crypto.Client, meta *models.ChatMetadata) (*models.ChatMetadata, error) {
	out := *meta
	phone, err := c.Open(meta.Customer.Phone)
	if err != nil {
		return nil, fmt.Errorf("open customer phone: %w", err)
	}
	email, err := c.Open(meta.Customer.Email)
	if err != nil {
		return nil, fmt.Errorf("open customer email: %w", err)
	}
	out.Customer.Phone = phone
	out.Customer.Email = email
	return &out, nil
}
