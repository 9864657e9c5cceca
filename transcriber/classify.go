package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Class is the retry classification of a transcription failure.
type Class int

const (
	// Transient failures may succeed on retry: timeouts, connection
	// errors, throttling, server-side errors.
	Transient Class = iota
	// Fatal failures will not improve with retry: bad credentials,
	// oversized payloads, malformed responses.
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "transient"
}

// HTTPError is a non-2xx response from the backend API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Classify decides whether an attempt failure is worth retrying.
func Classify(err error) Class {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusRequestTimeout,
			httpErr.StatusCode == http.StatusTooManyRequests,
			httpErr.StatusCode >= 500:
			return Transient
		default:
			return Fatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	// Connection-level failures (refused, reset, DNS) arrive as net errors,
	// usually wrapped in a *url.Error by the HTTP client.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}

	return Fatal
}
