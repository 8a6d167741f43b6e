package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// NetworkError is returned when the remote endpoint could not be reached or the
// connection broke before a full response was read.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is returned when a single attempt exceeds the client's ceiling.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upload timeout after %s: %s", e.After, e.URL)
}

// HTTPError is returned for any non-2xx response. Body holds the raw response
// body so adapters can decode provider-specific error payloads.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, body)
}

// RetryPolicy decides whether a failed attempt may be repeated.
type RetryPolicy func(err error) bool

// DefaultRetryPolicy retries transient failures only: network errors, timeouts,
// and HTTP 408, 429 and 5xx. Everything else, including caller cancellation, is final.
func DefaultRetryPolicy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusRequestTimeout,
			httpErr.StatusCode == http.StatusTooManyRequests,
			httpErr.StatusCode >= 500:
			return true
		}
	}
	return false
}
