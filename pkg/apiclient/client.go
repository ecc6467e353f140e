// Package apiclient provides the REST client for the report-sharing backend.
//
// Every call is bound by a hard timeout and every failure is normalized into
// the pkg/errors taxonomy before it reaches the caller. Calls are never
// retried automatically.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/internal/telemetry"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
	"github.com/marmos91/reportshare/pkg/metrics"
)

// DefaultTimeout bounds every request, including reading the response body.
const DefaultTimeout = 60 * time.Second

// DefaultMaxResponseSize caps how much of a response body is read.
const DefaultMaxResponseSize = 8 << 20

// TokenSource resolves the bearer token for a privileged call.
// *session.Store implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Metrics observes completed requests. A nil Metrics disables collection.
type Metrics = metrics.APIMetrics

// Client is the report-sharing API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
	metrics    Metrics
	userAgent  string
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its own Timeout is
// ignored in favour of the per-call deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where authenticated calls get their token from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithMetrics enables request metrics.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithMaxResponseSize caps how many bytes of a response body are read.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a new API client. baseURL is the REST root, e.g.
// "http://localhost:3000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:   DefaultTimeout,
		userAgent: "rsctl",
		maxBody:   DefaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokenSource returns a copy of the client that authenticates through ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// BaseURL returns the REST root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// call describes one request. route is the path template used for spans and
// metrics; path is the expanded path.
type call struct {
	method string
	route  string
	path   string
	body   any
	result any
	auth   bool
}

// Request performs an unauthenticated request and decodes the response into
// result (which may be nil).
func (c *Client) Request(ctx context.Context, method, path string, body, result any) error {
	return c.do(ctx, call{method: method, route: path, path: path, body: body, result: result})
}

// AuthRequest performs an authenticated request. The token is resolved before
// anything touches the network; with no token it fails with AuthError(NoToken).
func (c *Client) AuthRequest(ctx context.Context, method, path string, body, result any) error {
	return c.do(ctx, call{method: method, route: path, path: path, body: body, result: result, auth: true})
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	var token string
	if cl.auth {
		token, err = c.resolveToken(ctx)
		if err != nil {
			c.observe(cl, err, 0)
			return err
		}
	}

	requestID := uuid.NewString()
	op := cl.method + " " + cl.route

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callCtx, span := telemetry.StartClientSpan(callCtx, cl.method, cl.route, telemetry.RequestID(requestID))
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.observe(cl, err, elapsed)
		if err != nil {
			telemetry.RecordError(callCtx, err)
			span.SetAttributes(telemetry.ErrorType(apierrs.CodeOf(err).String()))
		}
		logger.DebugCtx(callCtx, "API request",
			logger.KeyMethod, cl.method,
			logger.KeyURL, cl.path,
			logger.KeyRequestID, requestID,
			logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0,
			logger.Err(err))
	}()

	var bodyReader io.Reader
	if cl.body != nil {
		data, mErr := json.Marshal(cl.body)
		if mErr != nil {
			return apierrs.NewValidationError(fmt.Sprintf("failed to marshal request body: %v", mErr))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(callCtx, cl.method, c.baseURL+cl.path, bodyReader)
	if err != nil {
		return apierrs.NewValidationError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(callCtx, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(telemetry.HTTPStatus(resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return transportError(callCtx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, respBody)
	}

	if cl.result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, cl.result); err != nil {
			return apierrs.NewServerError(resp.StatusCode, fmt.Sprintf("failed to decode response: %v", err))
		}
	}

	return nil
}

// resolveToken asks the token source for a token, mapping every failure into
// an AuthError so the caller never reaches the network without one.
func (c *Client) resolveToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", apierrs.NewNoTokenError()
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if _, ok := apierrs.As(err); ok {
			return "", err
		}
		e := apierrs.NewNoTokenError()
		e.Err = err
		return "", e
	}
	if token == "" {
		return "", apierrs.NewNoTokenError()
	}
	return token, nil
}

// transportError classifies a failure that produced no usable response.
func transportError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierrs.NewTimeoutError(op)
	case errors.Is(ctx.Err(), context.Canceled):
		return apierrs.NewNetworkError(op, context.Canceled)
	default:
		return apierrs.NewNetworkError(op, err)
	}
}

func (c *Client) observe(cl call, err error, d time.Duration) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apierrs.CodeOf(err).String()
		if apierrs.IsTimeout(err) {
			outcome = "TimeoutError"
		}
	}
	c.metrics.ObserveRequest(cl.method, cl.route, outcome, d)
}
