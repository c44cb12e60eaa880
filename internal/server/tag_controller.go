package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
)

type TagController interface {
	ListChatTags(c echo.Context) error
	Add(c echo.Context) error
	Remove(c echo.Context) error
	Popular(c echo.Context) error
}

type tagController struct {
	tagUsecase usecase.TagUsecase
}

func NewTagController(tagUsecase usecase.TagUsecase) TagController {
	return &tagController{tagUsecase: tagUsecase}
}

func (h *tagController) ListChatTags(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	tags, err := h.tagUsecase.ListChatTags(c.Request().Context(), chatID)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, tags)
}

func (h *tagController) Add(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	var req models.AddTagRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	tag, err := h.tagUsecase.AddTag(c.Request().Context(), chatID, session(c), &req)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, tag)
}

func (h *tagController) Remove(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	tagID, err := pkgmdw.PathParam(c, "tagId")
	if err != nil {
		return err
	}

	if err := h.tagUsecase.RemoveTag(c.Request().Context(), chatID, tagID); err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, map[string]bool{"removed": true})
}

func (h *tagController) Popular(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	tags, err := h.tagUsecase.ListPopular(c.Request().Context(), int64(limit))
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, tags)
}
