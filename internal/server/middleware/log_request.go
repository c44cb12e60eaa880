package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type (
	// LogRequestConfig store middleware configuration
	LogRequestConfig struct {
		Logger  Logger
		Enabled func(c echo.Context) bool
		// RequestBody decides whether a JSON request body is logged. Routes
		// that carry passwords must return false.
		RequestBody  func(c echo.Context) bool
		RequestID    func(c echo.Context) string
		QueryParams  func(c echo.Context) bool
		KeyAndValues func(c echo.Context) []interface{}
		// MaxBodyBytes truncates logged bodies. Zero means 4 KiB.
		MaxBodyBytes int
	}
	bodyDumpWriter struct {
		io.Writer
		http.ResponseWriter
	}
)

// LogRequest logs one entry per request at a level chosen by status:
// error for 5xx, warn for 4xx, info otherwise. Response bodies are only
// captured for failed requests.
func LogRequest(config LogRequestConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		panic("Logger is required to use LogRequest")
	}
	if config.Enabled == nil {
		config.Enabled = func(echo.Context) bool { return true }
	}
	if config.RequestBody == nil {
		config.RequestBody = func(echo.Context) bool { return false }
	}
	if config.QueryParams == nil {
		config.QueryParams = func(echo.Context) bool { return true }
	}
	if config.RequestID == nil {
		config.RequestID = GetRequestID
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 4 << 10
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !config.Enabled(c) {
				return next(c)
			}

			start := time.Now()
			req := c.Request()
			res := c.Response()

			var reqBody []byte
			logReqBody := config.RequestBody(c) &&
				strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
			if logReqBody && req.Body != nil {
				reqBody, _ = io.ReadAll(req.Body)
				req.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			var resBuf bytes.Buffer
			res.Writer = &bodyDumpWriter{
				Writer:         io.MultiWriter(res.Writer, &limitedBuffer{buf: &resBuf, limit: config.MaxBodyBytes}),
				ResponseWriter: res.Writer,
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			args := make([]interface{}, 0, 24)
			args = append(args,
				"status", res.Status,
				"method", req.Method,
				"path", c.Path(),
				"uri", req.RequestURI,
				"latency_ms", time.Since(start).Milliseconds(),
				"real_ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"request_id", config.RequestID(c),
			)
			if userID := GetUserID(c); userID != "" {
				args = append(args, "user_id", userID)
			}
			if config.QueryParams(c) && len(c.QueryParams()) > 0 {
				args = append(args, "query", c.QueryParams())
			}
			if config.KeyAndValues != nil {
				args = append(args, config.KeyAndValues(c)...)
			}
			if len(reqBody) > 0 {
				args = append(args, "request_body", jsonOrTruncated(reqBody, config.MaxBodyBytes))
			}
			if res.Status >= http.StatusBadRequest &&
				strings.HasPrefix(res.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				args = append(args, "response_body", jsonOrTruncated(resBuf.Bytes(), config.MaxBodyBytes))
			}

			switch {
			case res.Status >= http.StatusInternalServerError:
				if err != nil {
					args = append(args, "error", err.Error())
				}
				config.Logger.Errorw("", args...)
			case res.Status >= http.StatusBadRequest:
				config.Logger.Warnw("", args...)
			default:
				config.Logger.Infow("", args...)
			}

			return err
		}
	}
}

func jsonOrTruncated(b []byte, limit int) interface{} {
	if len(b) <= limit && json.Valid(b) {
		return json.RawMessage(b)
	}
	if len(b) > limit {
		b = b[:limit]
	}
	return string(b)
}

type limitedBuffer struct {
	buf   *bytes.Buffer
	limit int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.limit + 1 - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

func (w *bodyDumpWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyDumpWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func (w *bodyDumpWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *bodyDumpWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.(http.Hijacker).Hijack()
}
