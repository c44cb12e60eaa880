package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

func TestTags_AddListRemove(t *testing.T) {
	tags := newFakeTagRepo()
	links := newFakeChatTagRepo()
	meta := newFakeMetaRepo()
	uc := NewTagUsecase(tags, links, meta)
	ctx := context.Background()
	by := operatorSession("Anna")

	tag, err := uc.AddTag(ctx, "chat-1", by, &models.AddTagRequest{Name: " Console "})
	require.NoError(t, err)
	assert.Equal(t, "console", tag.Name)
	assert.Equal(t, "Console", tag.DisplayName)
	assert.Equal(t, models.DefaultTagColor, tag.Color)
	assert.Equal(t, models.TagCategoryGeneral, tag.Category)
	assert.Equal(t, 1, tag.UsageCount)

	again, err := uc.AddTag(ctx, "chat-1", by, &models.AddTagRequest{Name: "CONSOLE"})
	require.NoError(t, err)
	assert.Equal(t, tag.ID, again.ID)

	_, err = uc.AddTag(ctx, "chat-2", by, &models.AddTagRequest{Name: "console"})
	require.NoError(t, err)

	stored, err := tags.GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsageCount)
	assert.Equal(t, []string{"console"}, meta.byChat["chat-1"].Tags)

	listed, err := uc.ListChatTags(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, uc.RemoveTag(ctx, "chat-1", tag.ID.Hex()))
	stored, err = tags.GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)
	assert.Empty(t, meta.byChat["chat-1"].Tags)

	assert.ErrorIs(t, uc.RemoveTag(ctx, "chat-1", tag.ID.Hex()), models.ErrNotFound)
	assert.ErrorIs(t, uc.RemoveTag(ctx, "chat-1", "zzz"), models.ErrInvalidID)
}

func TestAddTag_Validation(t *testing.T) {
	uc := NewTagUsecase(newFakeTagRepo(), newFakeChatTagRepo(), newFakeMetaRepo())

	_, err := uc.AddTag(context.Background(), "chat-1", operatorSession("Anna"), &models.AddTagRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}
