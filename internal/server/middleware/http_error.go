package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every failure as {"success":false,"error":...}.
// Errors that are neither *echo.HTTPError nor *ResponseError are reported as
// 500 with a generic message.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		resp := &ResponseError{
			Status:  http.StatusInternalServerError,
			Message: http.StatusText(http.StatusInternalServerError),
			Err:     err,
		}

		var (
			he *echo.HTTPError
			re *ResponseError
		)
		switch {
		case errors.As(err, &re):
			resp = re
		case errors.As(err, &he):
			resp.Status = he.Code
			resp.Message = fmt.Sprint(he.Message)
		case errors.Is(err, context.Canceled) && errors.Is(c.Request().Context().Err(), context.Canceled):
			resp.Status = 499
			resp.Message = "request canceled"
		}

		if resp.Status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			resp.Message = "no route matched"
		}
		if resp.Status >= http.StatusInternalServerError && resp.Err != nil {
			log.Errorw("request failed", "status", resp.Status, "path", c.Path(), "error", resp.Err)
		}

		resp.Success = false
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			log.Errorw("could not respond", "code", resp.Status, "response_body", resp)
		}
	}
}
