package middleware

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

// CORS allows origins matching pattern to call the API with credentials, so
// the session cookie is sent by the dashboard.
func CORS(pattern *regexp.Regexp) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			respHeader := c.Response().Header()
			respHeader.Add(echo.HeaderVary, echo.HeaderOrigin)
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" || !pattern.MatchString(origin) {
				return next(c)
			}
			respHeader.Set(echo.HeaderAccessControlAllowOrigin, origin)
			respHeader.Set(echo.HeaderAccessControlAllowCredentials, "true")
			if c.Request().Method == http.MethodOptions {
				// a wildcard is not honoured together with credentials
				respHeader.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization, X-Request-Id")
				respHeader.Set(echo.HeaderAccessControlAllowMethods, "OPTIONS, GET, POST, PUT, PATCH, DELETE")
				respHeader.Set(echo.HeaderAccessControlMaxAge, "600")
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
