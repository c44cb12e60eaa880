package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	DefaultSkipper = func(c echo.Context) bool {
		return false
	}
)

type Skipper func(c echo.Context) bool

type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Response is the envelope of every JSON answer.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ResponseError struct {
	Status  int         `json:"-"`
	Err     error       `json:"-"`
	Success bool        `json:"success"`
	Message string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("status: %d; message: %s; cause: %v", e.Status, e.Message, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// NewResponseError builds an error answer. The message is what the caller
// sees; err is kept for logs only.
func NewResponseError(status int, message string, err error) *ResponseError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &ResponseError{Status: status, Err: err, Message: message}
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}
