package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/internal/models"
)

const (
	sessionKey = "session"
	tokenKey   = "session_token"
)

// SessionValidator resolves a raw token into a session.
type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Session, error)
}

// SessionAuth accepts the session cookie or an "Authorization: Bearer" header.
// Any validation failure is a 401 except a deactivated account, which is 403
// when the validator reports it with an error matching inactive.
func SessionAuth(validator SessionValidator, cookieName string, inactive error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c, cookieName)
			if token == "" {
				return NewResponseError(http.StatusUnauthorized, "authentication required", nil)
			}

			session, err := validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				if inactive != nil && errors.Is(err, inactive) {
					return NewResponseError(http.StatusForbidden, err.Error(), err)
				}
				return NewResponseError(http.StatusUnauthorized, "invalid or expired session", err)
			}

			c.Set(sessionKey, session)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// AdminOnly must run after SessionAuth.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := GetSession(c)
			if session == nil {
				return NewResponseError(http.StatusUnauthorized, "authentication required", nil)
			}
			if !session.IsAdmin() {
				return NewResponseError(http.StatusForbidden, "admin access required", nil)
			}
			return next(c)
		}
	}
}

// ExtractToken reads the cookie first, then the bearer header.
func ExtractToken(c echo.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func GetSession(c echo.Context) *models.Session {
	session, _ := c.Get(sessionKey).(*models.Session)
	return session
}

func GetToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}

func GetUserID(c echo.Context) string {
	if session := GetSession(c); session != nil {
		return session.UserID.Hex()
	}
	return ""
}
