package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

type AdminController interface {
	ListUsers(c echo.Context) error
	GetUser(c echo.Context) error
	CreateUser(c echo.Context) error
	UpdateUser(c echo.Context) error
}

type adminController struct {
	userUsecase usecase.UserUsecase
}

func NewAdminController(userUsecase usecase.UserUsecase) AdminController {
	return &adminController{userUsecase: userUsecase}
}

func (h *adminController) ListUsers(c echo.Context) error {
	var limit, offset int64
	err := echo.QueryParamsBinder(c).
		Int64("limit", &limit).
		Int64("offset", &offset).
		BindError()
	if err != nil || offset < 0 {
		return pkgmdw.NewResponseError(http.StatusBadRequest, "invalid pagination", err)
	}

	users, err := h.userUsecase.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, users)
}

func (h *adminController) GetUser(c echo.Context) error {
	user, err := h.userUsecase.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return pkgmdw.OK(c, user)
}

func (h *adminController) CreateUser(c echo.Context) error {
	var req models.CreateUserRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userUsecase.CreateUser(ctx, &req)
	if err != nil {
		return toHTTPError(err)
	}
	log.Infow(ctx, "user created", "user_id", user.ID.Hex(), "role", user.Role, "by", pkgmdw.GetUserID(c))
	return pkgmdw.Created(c, user)
}

func (h *adminController) UpdateUser(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	id := c.Param("id")
	if req.IsActive != nil && !*req.IsActive && id == pkgmdw.GetUserID(c) {
		return pkgmdw.NewResponseError(http.StatusBadRequest, "cannot deactivate your own account", nil)
	}

	ctx := c.Request().Context()
	user, err := h.userUsecase.UpdateUser(ctx, id, &req)
	if err != nil {
		return toHTTPError(err)
	}
	log.Infow(ctx, "user updated", "user_id", user.ID.Hex(), "active", user.IsActive, "by", pkgmdw.GetUserID(c))
	return pkgmdw.OK(c, user)
}
