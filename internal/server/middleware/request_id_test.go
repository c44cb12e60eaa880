package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()

	handler := func(c echo.Context) error {
		reqID, ok := c.Get(XRequestID).(string)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "request ID not found in context")
		}
		assert.Equal(t, reqID, GetRequestIDFromContext(c.Request().Context()))
		assert.Equal(t, reqID, GetRequestIDFromEchoContext(c))
		return c.String(http.StatusOK, reqID)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(XRequestID, "custom-request-id")
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	err := RequestID()(handler)(c)

	require.NoError(t, err)
	assert.Equal(t, "custom-request-id", c.Get(XRequestID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "custom-request-id", rec.Body.String())
	assert.Equal(t, "custom-request-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	}

	for _, incoming := range []string{"", "bad id\nwith newline"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if incoming != "" {
			req.Header.Set(XRequestID, incoming)
		}
		rec := httptest.NewRecorder()

		require.NoError(t, RequestID()(handler)(e.NewContext(req, rec)))
		_, err := uuid.Parse(rec.Body.String())
		assert.NoError(t, err, "incoming %q", incoming)
	}
}
