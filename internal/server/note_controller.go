package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
)

type NoteController interface {
	List(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
}

type noteController struct {
	noteUsecase usecase.NoteUsecase
}

func NewNoteController(noteUsecase usecase.NoteUsecase) NoteController {
	return &noteController{noteUsecase: noteUsecase}
}

func (h *noteController) List(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	notes, err := h.noteUsecase.ListNotes(c.Request().Context(), chatID, session(c))
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, notes)
}

func (h *noteController) Create(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	var req models.CreateNoteRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.noteUsecase.CreateNote(c.Request().Context(), chatID, session(c), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.Created(c, note)
}

func (h *noteController) Update(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	noteID, err := pkgmdw.PathParam(c, "noteId")
	if err != nil {
		return err
	}
	var req models.UpdateNoteRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.noteUsecase.UpdateNote(c.Request().Context(), chatID, noteID, session(c), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, note)
}
