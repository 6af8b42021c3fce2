package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/stockdash/internal/logger"
)

const maxBodySize = 4 << 20

// TokenSource supplies the current bearer token, or "" when logged out
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

// Token calls f
func (f TokenFunc) Token() string { return f() }

// UnauthorizedHandler is invoked when any call not marked SkipAuthPolicy
// is answered with 401 or 403
type UnauthorizedHandler func(ctx context.Context, status int)

// Client talks to one backend service
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client; nil keeps the default
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler installs the global 401/403 policy
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "stockdash",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource swaps the token source after construction
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetUnauthorizedHandler swaps the 401/403 policy after construction
func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = h
}

func (c *Client) hooks() (TokenSource, UnauthorizedHandler) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens, c.onUnauthorized
}

// Request describes one call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Token overrides the token source when set
	Token string
	// SkipAuthPolicy exempts the call from the unauthorized handler;
	// used by the auth calls themselves
	SkipAuthPolicy bool
	// Op names the operation in fallback error messages
	Op string
}

// Meta describes a successful response
type Meta struct {
	Status  int
	Message string
}

// Do performs req and decodes the response payload into out (if non-nil).
// Every failure is returned as *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) (Meta, error) {
	op := req.Op
	if op == "" {
		op = "request"
	}
	tokens, onUnauthorized := c.hooks()

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Meta{}, &Error{Kind: KindValidation, Message: "could not encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return Meta{}, &Error{Kind: KindValidation, Message: "invalid request", Err: err}
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	bearer := req.Token
	if bearer == "" && tokens != nil {
		bearer = tokens.Token()
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Warn("HTTP request failed",
			logger.F("op", op),
			logger.F("method", method),
			logger.F("url", u),
			logger.F("request_id", requestID),
			logger.F("error", err))
		return Meta{}, &Error{
			Kind:    KindNetwork,
			Message: fmt.Sprintf("could not reach server at %s", c.baseURL),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Meta{}, &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "connection lost while reading response", Err: err}
	}

	logger.Debug("HTTP response",
		logger.F("op", op),
		logger.F("method", method),
		logger.F("url", u),
		logger.F("status", resp.StatusCode),
		logger.F("request_id", requestID),
		logger.F("duration", time.Since(start).String()))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Kind:    KindRejected,
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, op, resp.StatusCode),
		}
		if resp.StatusCode >= 500 {
			apiErr.Kind = KindServer
		}
		if apiErr.Unauthorized() && !req.SkipAuthPolicy && onUnauthorized != nil {
			logger.Info("Unauthorized response, applying session policy",
				logger.F("op", op), logger.F("status", resp.StatusCode))
			onUnauthorized(ctx, resp.StatusCode)
		}
		return Meta{Status: resp.StatusCode}, apiErr
	}

	data, message, err := unwrapData(respBody, op)
	meta := Meta{Status: resp.StatusCode, Message: message}
	if err != nil {
		return meta, err
	}

	if out == nil {
		return meta, nil
	}
	if isNull(data) {
		return meta, &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "response is missing data"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return meta, &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "invalid response format from server", Err: err}
	}
	return meta, nil
}
