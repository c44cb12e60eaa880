package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
)

// Pinger reports whether the metadata store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Controller interface {
	Health(c echo.Context) error
}

type controller struct {
	db Pinger
}

func NewController(db Pinger) Controller {
	return &controller{db: db}
}

func (h *controller) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{
		"status":  status,
		"service": "chat-crm",
	})
}

// toHTTPError translates usecase and repository errors into the status the
// caller sees. Unknown errors pass through and end up as 500.
func toHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidID):
		return pkgmdw.NewResponseError(http.StatusBadRequest, "invalid id", err)
	case errors.Is(err, usecase.ErrValidation):
		return pkgmdw.NewResponseError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, usecase.ErrInvalidCredentials), errors.Is(err, usecase.ErrInvalidToken):
		return pkgmdw.NewResponseError(http.StatusUnauthorized, err.Error(), err)
	case errors.Is(err, usecase.ErrInactiveAccount):
		return pkgmdw.NewResponseError(http.StatusForbidden, err.Error(), err)
	case errors.Is(err, models.ErrNotFound):
		return pkgmdw.NewResponseError(http.StatusNotFound, "not found", err)
	case errors.Is(err, usecase.ErrConflict), errors.Is(err, models.ErrDuplicate):
		return pkgmdw.NewResponseError(http.StatusConflict, err.Error(), err)
	case usecase.IsBridgeFailure(err):
		return pkgmdw.NewResponseError(http.StatusBadGateway, usecase.ErrBridgeUnavailable.Error(), err)
	}
	return err
}

// session is set by SessionAuth on every route that reaches a handler using it.
func session(c echo.Context) *models.Session {
	return pkgmdw.GetSession(c)
}

func chatIDParam(c echo.Context) (string, error) {
	return pkgmdw.PathParam(c, "id")
}

func queryInt(c echo.Context, name string) (int, error) {
	var v int
	if err := echo.QueryParamsBinder(c).Int(name, &v).BindError(); err != nil {
		return 0, pkgmdw.NewResponseError(http.StatusBadRequest, "invalid "+name, err)
	}
	return v, nil
}
