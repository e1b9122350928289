package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"watchlist-scanner/internal/logger"
	"watchlist-scanner/internal/types"
)

// Client is a JSON HTTP client shared by the REST collaborators. Failures
// are mapped onto the error kinds in internal/types.
type Client struct {
	rc         *resty.Client
	useLogging bool
}

// ClientOption configures the API client
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetTimeout(timeout)
	}
}

// WithBaseURL sets the base URL for all requests
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.rc.SetBaseURL(baseURL)
	}
}

// WithHeader sets a default header for all requests
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.rc.SetHeader(key, value)
	}
}

// WithLogging enables request/response logging
func WithLogging(enabled bool) ClientOption {
	return func(c *Client) {
		c.useLogging = enabled
	}
}

// WithRetry retries rate-limited, 5xx and network failures with
// exponential backoff between wait and maxWait.
func WithRetry(count int, wait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.rc.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return !errors.Is(err, context.Canceled)
				}
				code := r.StatusCode()
				return code == http.StatusTooManyRequests || code >= 500
			})
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		rc: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request describes one call. Path is joined to the base URL; PathParams
// fill {name} placeholders.
type Request struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      map[string]string
	Body       any
}

// Do executes req and decodes a JSON 2xx body into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	r := c.rc.R().SetContext(ctx)
	if len(req.PathParams) > 0 {
		r.SetPathParams(req.PathParams)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	c.logDebug(ctx, "HTTP Request", "method", req.Method, "path", req.Path)

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.logWarn(ctx, "HTTP request failed", "method", req.Method, "path", req.Path, "error", err)
		return transportError(err)
	}

	c.logDebug(ctx, "HTTP Response",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode(),
		"duration", resp.Time(),
		"bodySize", len(resp.Body()))

	if resp.IsError() || resp.StatusCode() >= 300 {
		c.logWarn(ctx, "HTTP error response",
			"method", req.Method,
			"path", req.Path,
			"status", resp.StatusCode(),
			"body", truncate(resp.String(), 512))
		return &StatusError{Status: resp.StatusCode(), Body: truncate(resp.String(), 512)}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", types.ErrDataUnavailable, err)
	}
	return nil
}

// GetJSON performs a GET request and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query map[string]string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// PostJSON posts body as JSON and decodes the response into out when non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Unwrap maps the status onto an error kind.
func (e *StatusError) Unwrap() error {
	return KindForStatus(e.Status)
}

// KindForStatus maps an HTTP status onto an error kind: 404 is
// DataUnavailable, 429 RateLimited, 5xx Transient, 401/403 Config and any
// other 4xx InvalidInput.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return types.ErrDataUnavailable
	case status == http.StatusTooManyRequests:
		return types.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.ErrConfig
	case status >= 500:
		return types.ErrTransient
	case status >= 400:
		return types.ErrInvalidInput
	default:
		return types.ErrTransient
	}
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: timeout: %w", types.ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", types.ErrTransient, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (c *Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Debug(ctx, msg, args...)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.useLogging {
		logger.Warn(ctx, msg, args...)
	}
}
