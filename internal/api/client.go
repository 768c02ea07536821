package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

const (
	headerUserID         = "X-User-Id"
	headerCorrelationID  = "X-Correlation-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

type idempotencyKey struct{}

// WithIdempotencyKey makes the POST sent with ctx carry key, so the server
// answers a retry with the resource the first attempt created.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKey returns the key set by WithIdempotencyKey.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey{}).(string)
	return key, ok && key != ""
}

// Credentials supplies the bearer token and user id sent with each request.
type Credentials interface {
	Credentials() (token string, userID int64, ok bool)
}

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials Credentials
	// OnUnauthorized runs after any 401 response, before the error is returned.
	OnUnauthorized func()
	HTTPClient     *http.Client
}

type Client struct {
	baseURL        string
	http           *http.Client
	creds          Credentials
	onUnauthorized func()
	logger         *zap.Logger
}

func New(logger *zap.Logger, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           hc,
		creds:          opts.Credentials,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logger,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerCorrelationID, correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := IdempotencyKey(ctx); ok && method == http.MethodPost {
		req.Header.Set(headerIdempotencyKey, key)
	}
	if c.creds != nil {
		if token, userID, ok := c.creds.Credentials(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set(headerUserID, fmt.Sprint(userID))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("correlation_id", correlationID),
	)

	if resp.StatusCode >= 300 {
		return c.statusError(resp, path)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, path string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, Path: path, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindNetwork, Path: path, Message: err.Error(), Err: err}
}

func (c *Client) statusError(resp *http.Response, path string) error {
	e := &Error{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Path:    path,
		Message: http.StatusText(resp.StatusCode),
	}

	var body model.APIError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Message != "" {
		e.Message = body.Message
	}

	if e.Kind == KindUnauthorized && c.onUnauthorized != nil {
		c.logger.Warn("session rejected by server", zap.String("path", path))
		c.onUnauthorized()
	}
	return e
}
