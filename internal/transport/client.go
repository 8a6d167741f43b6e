// Package transport sends upload payloads to remote endpoints with bounded
// retries and exponential backoff.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

const (
	// DefaultTimeout is the ceiling for a single attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAttempts is the total number of attempts, including the first.
	DefaultMaxAttempts = 3
)

// Request is a fully buffered outgoing request. The body is kept as bytes so
// every attempt can resend it.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw result of a successful (2xx) attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client performs HTTP requests with retries.
type Client struct {
	http        *http.Client
	timeout     time.Duration
	maxAttempts int
	backoff     func(attempt int) time.Duration
	retryable   RetryPolicy
	sleep       Sleeper
	logger      *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxAttempts sets the total number of attempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff replaces the delay schedule.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = fn }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retryable = p }
}

// WithSleeper replaces the backoff sleeper. Tests use it to avoid waiting.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client with a 30s per-attempt ceiling, 3 attempts and
// 2^attempt second backoff.
func New(opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{},
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoff:     ExponentialBackoff,
		retryable:   DefaultRetryPolicy,
		sleep:       SleepContext,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExponentialBackoff returns 2^attempt seconds: 2s after the first failure,
// 4s after the second.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Send performs req, retrying failures the policy accepts. On terminal failure
// it returns the last observed error unchanged.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.do(ctx, req)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("transport: request succeeded after retry",
					"method", req.Method, "url", req.URL, "attempt", attempt)
			}
			return resp, nil
		}

		lastErr = err
		if attempt == c.maxAttempts || !c.retryable(err) {
			break
		}

		wait := c.backoff(attempt)
		c.logger.Warn("transport: attempt failed, retrying",
			"method", req.Method, "url", req.URL,
			"attempt", attempt, "of", c.maxAttempts,
			"wait", wait, "err", err)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	c.logger.Debug("transport: sending request",
		"method", req.Method, "url", req.URL, "size", humanize.IBytes(uint64(len(req.Body))))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, req, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, req, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) classify(parent, attemptCtx context.Context, req *Request, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{URL: req.URL, After: c.timeout}
	}
	return &NetworkError{Method: req.Method, URL: req.URL, Err: err}
}
