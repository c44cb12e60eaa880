package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/config"
	"github.com/nguyentranbao-ct/chat-crm/internal/models"
	pkgmdw "github.com/nguyentranbao-ct/chat-crm/internal/server/middleware"
	"github.com/nguyentranbao-ct/chat-crm/internal/usecase"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

type AuthController interface {
	Login(c echo.Context) error
	Me(c echo.Context) error
	Logout(c echo.Context) error
}

type authController struct {
	authUsecase usecase.AuthUsecase
	cookieName  string
	secure      bool
}

func NewAuthController(conf *config.Config, authUsecase usecase.AuthUsecase) AuthController {
	return &authController{
		authUsecase: authUsecase,
		cookieName:  conf.Auth.CookieName,
		secure:      conf.Auth.CookieSecure,
	}
}

func (ac *authController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := pkgmdw.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	resp, err := ac.authUsecase.Login(ctx, req, c.Request().UserAgent(), c.RealIP())
	if err != nil {
		log.Infow(ctx, "login rejected", "email", req.Email, "error", err)
		return toHTTPError(err)
	}

	c.SetCookie(ac.cookie(resp.Token, resp.ExpiresAt))
	return pkgmdw.OK(c, resp)
}

func (ac *authController) Me(c echo.Context) error {
	return pkgmdw.OK(c, session(c))
}

func (ac *authController) Logout(c echo.Context) error {
	if err := ac.authUsecase.Logout(c.Request().Context(), pkgmdw.GetToken(c)); err != nil {
		return toHTTPError(err)
	}

	expired := ac.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	c.SetCookie(expired)
	return pkgmdw.OK(c, map[string]string{"message": "logged out"})
}

func (ac *authController) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     ac.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   ac.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
