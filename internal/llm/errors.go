package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrNoAPIKey is returned by New when the client has no credential.
var ErrNoAPIKey = errors.New("llm: api key required")

// ErrBadResponse wraps a 2xx response whose body is not a usable
// chat-completions payload. Retryable.
var ErrBadResponse = errors.New("llm: bad response")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "llm: upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("llm: upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("llm: upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsRetryable reports whether err is a transient transport failure: any
// non-2xx status, an unusable 2xx body, network errors, resets, EOFs and TLS failures. Caller
// cancellation and request-construction errors are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNoAPIKey) {
		return false
	}

	if errors.Is(err, ErrBadResponse) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "connection aborted", "tls:", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
