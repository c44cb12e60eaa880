package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

const (
	maxTagNameChars  = 50
	defaultTagsLimit = 20
)

type tagUsecase struct {
	tagRepo     mongodb.TagRepository
	chatTagRepo mongodb.ChatTagRepository
	metaRepo    mongodb.ChatMetadataRepository
}

func NewTagUsecase(
	tagRepo mongodb.TagRepository,
	chatTagRepo mongodb.ChatTagRepository,
	metaRepo mongodb.ChatMetadataRepository,
) TagUsecase {
	return &tagUsecase{
		tagRepo:     tagRepo,
		chatTagRepo: chatTagRepo,
		metaRepo:    metaRepo,
	}
}

func (uc *tagUsecase) ListChatTags(ctx context.Context, chatID string) ([]*models.Tag, error) {
	ids, err := uc.chatTagRepo.ListTagIDs(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat tags: %w", err)
	}
	return uc.tagRepo.GetByIDs(ctx, ids)
}

// AddTag attaches the tag named req.Name to a chat, creating the tag on
// first use. Adding a tag the chat already carries is a no-op.
func (uc *tagUsecase) AddTag(ctx context.Context, chatID string, by *models.Session, req *models.AddTagRequest) (*models.Tag, error) {
	display := strings.TrimSpace(req.Name)
	if display == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	if utf8.RuneCountInString(display) > maxTagNameChars {
		return nil, fmt.Errorf("%w: tag name exceeds %d characters", ErrValidation, maxTagNameChars)
	}

	color := req.Color
	if color == "" {
		color = models.DefaultTagColor
	}
	category := req.Category
	if category == "" {
		category = models.TagCategoryGeneral
	}

	if _, err := uc.metaRepo.GetOrCreate(ctx, chatID); err != nil {
		return nil, fmt.Errorf("get chat metadata: %w", err)
	}

	tag, err := uc.tagRepo.Ensure(ctx, &models.Tag{
		Name:        strings.ToLower(display),
		DisplayName: display,
		Color:       color,
		Category:    category,
		CreatedBy:   by.UserID,
	})
	if err != nil {
		return nil, err
	}

	err = uc.chatTagRepo.Create(ctx, &models.ChatTag{
		ChatID:  chatID,
		TagID:   tag.ID,
		AddedBy: by.UserID,
	})
	if errors.Is(err, models.ErrDuplicate) {
		return tag, nil
	}
	if err != nil {
		return nil, fmt.Errorf("link tag: %w", err)
	}

	if err := uc.tagRepo.IncUsage(ctx, tag.ID, 1); err != nil {
		log.Warnw(ctx, "increment tag usage", "tag_id", tag.ID.Hex(), "error", err)
	} else {
		tag.UsageCount++
	}
	if err := uc.metaRepo.AddTag(ctx, chatID, tag.Name); err != nil {
		log.Warnw(ctx, "add tag to chat metadata", "chat_id", chatID, "error", err)
	}
	return tag, nil
}

func (uc *tagUsecase) RemoveTag(ctx context.Context, chatID, tagID string) error {
	oid, err := primitive.ObjectIDFromHex(tagID)
	if err != nil {
		return models.ErrInvalidID
	}
	tag, err := uc.tagRepo.GetByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := uc.chatTagRepo.Delete(ctx, chatID, oid); err != nil {
		return err
	}

	if err := uc.tagRepo.IncUsage(ctx, oid, -1); err != nil {
		log.Warnw(ctx, "decrement tag usage", "tag_id", tagID, "error", err)
	}
	if err := uc.metaRepo.RemoveTag(ctx, chatID, tag.Name); err != nil {
		log.Warnw(ctx, "remove tag from chat metadata", "chat_id", chatID, "error", err)
	}
	return nil
}

func (uc *tagUsecase) ListPopular(ctx context.Context, limit int64) ([]*models.Tag, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultTagsLimit
	}
	return uc.tagRepo.ListPopular(ctx, limit)
}
