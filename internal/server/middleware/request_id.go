package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

const (
	XRequestID = log.RequestIDKey
)

// incoming ids are echoed back into logs and headers, so only plain tokens
// are trusted
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

func GetRequestID(c echo.Context) string {
	if id := GetRequestIDFromEchoContext(c); id != "" {
		return id
	}
	if id := GetRequestIDFromContext(c.Request().Context()); id != "" {
		return id
	}
	return GetRequestIDFromHeader(c.Request().Header)
}

func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(XRequestID).(string)
	return id
}

func GetRequestIDFromEchoContext(c echo.Context) string {
	id, _ := c.Get(XRequestID).(string)
	return id
}

func GetRequestIDFromHeader(h http.Header) string {
	id := h.Get(XRequestID)
	if !validRequestID.MatchString(id) {
		return ""
	}
	return id
}

// InjectRequestID stores the id where the context-aware logger finds it.
func InjectRequestID(c echo.Context, reqID string) {
	//lint:ignore SA1029 the logger reads this key
	ctx := context.WithValue(c.Request().Context(), XRequestID, reqID)
	c.SetRequest(c.Request().WithContext(ctx))
	c.Set(XRequestID, reqID)
}

func GenerateRequestID() string {
	return uuid.NewString()
}

type RequestIDConfig struct {
	Skipper      Skipper
	GenerateFunc func() string
	DetectFunc   func(echo.Context) string
	InjectFunc   func(echo.Context, string)
}

var DefaultRequestIDConfig = RequestIDConfig{
	Skipper:      DefaultSkipper,
	GenerateFunc: GenerateRequestID,
	DetectFunc:   GetRequestID,
	InjectFunc:   InjectRequestID,
}

func RequestID() echo.MiddlewareFunc {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

func RequestIDWithConfig(config RequestIDConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultRequestIDConfig.Skipper
	}
	if config.GenerateFunc == nil {
		config.GenerateFunc = DefaultRequestIDConfig.GenerateFunc
	}
	if config.DetectFunc == nil {
		config.DetectFunc = DefaultRequestIDConfig.DetectFunc
	}
	if config.InjectFunc == nil {
		config.InjectFunc = DefaultRequestIDConfig.InjectFunc
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}
			reqID := config.DetectFunc(c)
			if reqID == "" {
				reqID = config.GenerateFunc()
			}
			config.InjectFunc(c, reqID)
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)
			return next(c)
		}
	}
}
