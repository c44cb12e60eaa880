package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// BindAndValidate binds the request body, path and query into req and runs
// the validator. Both failures are answered with 400.
func BindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return NewResponseError(http.StatusBadRequest, "invalid request body", err)
		}
		return err
	}

	if err := c.Validate(req); err != nil {
		return NewResponseError(http.StatusBadRequest, err.Error(), err)
	}

	return nil
}

// PathParam returns the unescaped path parameter. Chat ids from the bridge
// may contain characters that arrive percent-encoded.
func PathParam(c echo.Context, name string) (string, error) {
	raw := c.Param(name)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", NewResponseError(http.StatusBadRequest, "invalid "+name, err)
	}
	if value == "" {
		return "", NewResponseError(http.StatusBadRequest, name+" is required", nil)
	}
	return value, nil
}
