package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ConnectionError means the bridge could not be reached at all.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("bridge %s: connection failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError means the bridge did not answer within the configured timeout.
type TimeoutError struct {
	Endpoint string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bridge %s: no response within %s", e.Endpoint, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// APIError is a non-2xx status or a body that could not be parsed.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bridge %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

var (
	ErrUnreachable  = errors.New("no bridge endpoint family answered")
	ErrInvalidBody  = errors.New("response body is not valid JSON")
	ErrInvalidMedia = errors.New("media url is not a bridge asset")
)

// IsUnavailable reports whether err means the bridge could not serve the call.
func IsUnavailable(err error) bool {
	var (
		connErr    *ConnectionError
		timeoutErr *TimeoutError
		apiErr     *APIError
	)
	return errors.As(err, &connErr) ||
		errors.As(err, &timeoutErr) ||
		errors.As(err, &apiErr) ||
		errors.Is(err, ErrUnreachable)
}

// classifyTransport turns a transport failure into a TimeoutError or a
// ConnectionError.
func classifyTransport(endpoint string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: endpoint, Timeout: timeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Endpoint: endpoint, Timeout: timeout, Err: err}
	}
	return &ConnectionError{Endpoint: endpoint, Err: err}
}
