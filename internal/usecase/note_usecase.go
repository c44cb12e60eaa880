package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	"github.com/nguyentranbao-ct/chat-crm/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
	"github.com/nguyentranbao-ct/chat-crm/pkg/util"
)

var noteTypes = []models.NoteType{
	models.NoteGeneral,
	models.NoteCustomerInfo,
	models.NoteOrderInfo,
	models.NoteTechnical,
	models.NoteReminder,
}

type noteUsecase struct {
	noteRepo mongodb.NoteRepository
	metaRepo mongodb.ChatMetadataRepository
}

func NewNoteUsecase(noteRepo mongodb.NoteRepository, metaRepo mongodb.ChatMetadataRepository) NoteUsecase {
	return &noteUsecase{
		noteRepo: noteRepo,
		metaRepo: metaRepo,
	}
}

// ListNotes returns the unarchived notes of a chat. Private notes are only
// shown to their author and to admins.
func (uc *noteUsecase) ListNotes(ctx context.Context, chatID string, viewer *models.Session) ([]*models.Note, error) {
	notes, err := uc.noteRepo.ListByChat(ctx, chatID, false)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	visible := make([]*models.Note, 0, len(notes))
	for _, n := range notes {
		if !canSee(n, viewer) {
			continue
		}
		visible = append(visible, n)
	}
	return visible, nil
}

func (uc *noteUsecase) CreateNote(ctx context.Context, chatID string, author *models.Session, req *models.CreateNoteRequest) (*models.Note, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrValidation)
	}
	if utf8.RuneCountInString(content) > models.MaxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", ErrValidation, models.MaxNoteLength)
	}

	noteType := req.Type
	if noteType == "" {
		noteType = models.NoteGeneral
	}
	if !util.SliceIncludes(noteTypes, noteType) {
		return nil, fmt.Errorf("%w: unknown note type %q", ErrValidation, noteType)
	}

	if _, err := uc.metaRepo.GetOrCreate(ctx, chatID); err != nil {
		return nil, fmt.Errorf("get chat metadata: %w", err)
	}

	note := &models.Note{
		ChatID:     chatID,
		Content:    content,
		AuthorID:   author.UserID,
		AuthorName: util.FirstNonEmpty(author.Name, author.Email),
		Type:       noteType,
		IsPrivate:  req.IsPrivate == nil || *req.IsPrivate,
		IsPinned:   req.IsPinned,
	}
	if err := uc.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	if err := uc.metaRepo.IncNotes(ctx, chatID, 1); err != nil {
		log.Warnw(ctx, "increment notes count", "chat_id", chatID, "error", err)
	}
	return note, nil
}

// UpdateNote pins or archives a note the viewer can see. Archiving takes
// the note out of the chat's notes count; unarchiving puts it back.
func (uc *noteUsecase) UpdateNote(ctx context.Context, chatID, noteID string, viewer *models.Session, req *models.UpdateNoteRequest) (*models.Note, error) {
	oid, err := primitive.ObjectIDFromHex(noteID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	if req.IsPinned == nil && req.IsArchived == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	current, err := uc.noteRepo.Get(ctx, chatID, oid)
	if err != nil {
		return nil, err
	}
	if !canSee(current, viewer) {
		return nil, models.ErrNotFound
	}

	note, err := uc.noteRepo.UpdateFlags(ctx, chatID, oid, req)
	if err != nil {
		return nil, err
	}

	if req.IsArchived != nil && *req.IsArchived != current.IsArchived {
		delta := 1
		if *req.IsArchived {
			delta = -1
		}
		if err := uc.metaRepo.IncNotes(ctx, chatID, delta); err != nil {
			log.Warnw(ctx, "adjust notes count", "chat_id", chatID, "error", err)
		}
	}
	return note, nil
}

func canSee(n *models.Note, viewer *models.Session) bool {
	return !n.IsPrivate || n.AuthorID == viewer.UserID || viewer.IsAdmin()
}
