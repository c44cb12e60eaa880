package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

const (
	mediaCacheControl = "private, max-age=86400"
	mediaCSP          = "default-src 'none'; sandbox"
)

type ConversationController interface {
	List(c echo.Context) error
	Sync(c echo.Context) error
	UpdateCase(c echo.Context) error
	ListMessages(c echo.Context) error
	SendMessage(c echo.Context) error
	GetCustomer(c echo.Context) error
	UpdateCustomer(c echo.Context) error
	Media(c echo.Context) error
	BridgeStatus(c echo.Context) error
}

type conversationController struct {
	syncUsecase         usecase.SyncUsecase
	conversationUsecase usecase.ConversationUsecase
}

func NewConversationController(syncUsecase usecase.SyncUsecase, conversationUsecase usecase.ConversationUsecase) ConversationController {
	return &conversationController{
		syncUsecase:         syncUsecase,
		conversationUsecase: conversationUsecase,
	}
}

type syncRequest struct {
	MaxChats int `json:"max_chats" validate:"omitempty,min=1,max=500"`
}

func (h *conversationController) List(c echo.Context) error {
	return h.sync(c, models.SyncOptions{})
}

// Sync forces a fresh discovery of the bridge before listing.
func (h *conversationController) Sync(c echo.Context) error {
	var req syncRequest
	if c.Request().ContentLength != 0 {
		if err := pkgmdw.BindAndValidate(c, &req); err != nil {
			return err
		}
	}
	return h.sync(c, models.SyncOptions{Force: true, MaxChats: req.MaxChats})
}

func (h *conversationController) sync(c echo.Context, opts models.SyncOptions) error {
	result, err := h.syncUsecase.Sync(c.Request().Context(), opts)
	if err != nil {
		return &pkgmdw.ResponseError{
			Status:  http.StatusInternalServerError,
			Err:     err,
			Message: "failed to fetch conversations from the chat bridge",
			Details: err.Error(),
		}
	}
	return pkgmdw.OK(c, result)
}

func (h *conversationController) UpdateCase(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	var req models.CaseUpdate
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	meta, err := h.conversationUsecase.UpdateCase(c.Request().Context(), chatID, &req)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, meta)
}

func (h *conversationController) ListMessages(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	messages, err := h.conversationUsecase.ListMessages(c.Request().Context(), chatID, limit)
	if err != nil {
		log.Warnw(c.Request().Context(), "list messages failed", "chat_id", chatID, "error", err)
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, messages)
}

func (h *conversationController) SendMessage(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.conversationUsecase.SendMessage(c.Request().Context(), chatID, &req); err != nil {
		log.Warnw(c.Request().Context(), "send message failed", "chat_id", chatID, "error", err)
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, map[string]bool{"sent": true})
}

func (h *conversationController) GetCustomer(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	meta, err := h.conversationUsecase.GetCustomer(c.Request().Context(), chatID)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, customerView(meta))
}

func (h *conversationController) UpdateCustomer(c echo.Context) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	var req models.CustomerUpdate
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	meta, err := h.conversationUsecase.UpdateCustomer(c.Request().Context(), chatID, &req)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, customerView(meta))
}

func customerView(meta *models.ChatMetadata) map[string]any {
	return map[string]any{
		"chat_id":  meta.ChatID,
		"customer": meta.Customer,
		"order":    meta.Order,
	}
}

// Media proxies a bridge asset. The payload is written raw, not enveloped.
// Customer supplied files are served from our origin, so only media types
// browsers cannot execute are shown inline; the rest are downloads.
func (h *conversationController) Media(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	header.Set(echo.HeaderContentSecurityPolicy, mediaCSP)

	media, err := h.conversationUsecase.DownloadMedia(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		log.Warnw(c.Request().Context(), "media download failed", "error", err)
		return toHTTPError(err)
	}

	contentType, disposition := media.ContentType, "inline"
	if !inlineMediaType(contentType) {
		contentType, disposition = echo.MIMEOctetStream, "attachment"
	}
	params := map[string]string{}
	if media.FileName != "" {
		params["filename"] = media.FileName
	}
	if disposition == "attachment" || len(params) > 0 {
		header.Set(echo.HeaderContentDisposition, mime.FormatMediaType(disposition, params))
	}
	header.Set("Cache-Control", mediaCacheControl)
	header.Set(echo.HeaderContentLength, strconv.Itoa(len(media.Data)))
	return c.Blob(http.StatusOK, contentType, media.Data)
}

// inlineMediaType reports whether ct is safe to render on our origin.
// SVG is an image type that can carry script.
func inlineMediaType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	switch {
	case ct == "application/pdf":
		return true
	case ct == "image/svg+xml":
		return false
	}
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/")
}

func (h *conversationController) BridgeStatus(c echo.Context) error {
	var retry bool
	if err := echo.QueryParamsBinder(c).Bool("retry", &retry).BindError(); err != nil {
		return pkgmdw.NewResponseError(http.StatusBadRequest, "invalid retry", err)
	}
	return pkgmdw.OK(c, h.conversationUsecase.BridgeStatus(c.Request().Context(), retry))
}
