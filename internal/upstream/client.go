// Package upstream is the typed client for the restaurant API the
// gateway fronts. The API owns users, guests, tables and orders; the
// gateway only consumes its contracts.
//
// The API wraps every success payload as {message, data}; some routes
// nest a second {message, data} inside. Both shapes are flattened once
// here, so nothing downstream ever inspects response shapes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tabletap/gateway/internal/apperrors"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/models"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

type Config struct {
	// Base URL of the upstream API, e.g. "https://api.tabletap.example"
	BaseURL string

	// Per-request timeout. Default 10s.
	Timeout time.Duration

	// Retry budget for idempotent reads. Writes are never retried.
	MaxRetries uint64

	Logger logger.Logger
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
	logger     logger.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("upstream base url must not be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}, nil
}

// FieldError is one per-field validation failure, passed through to the
// caller unchanged
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the upstream's field errors
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upstream validation failed on %d field(s)", len(e.Fields))
}

// envelope is the outer success/failure shape of every upstream response
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors"`
}

// flatten unwraps the possibly nested success envelope into a single
// message and payload. This is the only place response shapes are
// inspected.
func flatten(body []byte) (string, json.RawMessage, error) {
	var outer envelope
	if err := json.Unmarshal(body, &outer); err != nil {
		return "", nil, fmt.Errorf("decode upstream response: %w", err)
	}

	var inner envelope
	if len(outer.Data) > 0 && json.Unmarshal(outer.Data, &inner) == nil && len(inner.Data) > 0 {
		message := inner.Message
		if message == "" {
			message = outer.Message
		}
		return message, inner.Data, nil
	}

	return outer.Message, outer.Data, nil
}

// LoginResult is the payload of a successful staff login
type LoginResult struct {
	Tokens  models.TokenPair
	Account models.Account
}

func (c *Client) Login(ctx context.Context, email string, password string) (LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	var payload struct {
		models.TokenPair
		Account models.Account `json:"account"`
	}
	if err := c.post(ctx, "/auth/login", "", body, &payload); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Tokens: payload.TokenPair, Account: payload.Account}, nil
}

// Logout revokes the refresh token upstream. An unauthorized answer is
// fine here: the session is dead either way and the local teardown must
// proceed.
func (c *Client) Logout(ctx context.Context, accessToken string, refreshToken string) error {
	err := c.post(ctx, "/auth/logout", accessToken, map[string]string{"refreshToken": refreshToken}, nil)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return nil
	}
	return err
}

// Refresh exchanges the refresh token for a fresh pair. Never retried:
// the upstream invalidates the old token on use, a second attempt would
// race the first.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var pair models.TokenPair
	err := c.post(ctx, "/auth/refresh-token", "", map[string]string{"refreshToken": refreshToken}, &pair)
	return pair, err
}

// GuestLoginResult is the payload of a successful guest login
type GuestLoginResult struct {
	Tokens models.TokenPair
	Guest  models.Guest
}

func (c *Client) GuestLogin(ctx context.Context, name string, tableNumber int64, tableToken string) (GuestLoginResult, error) {
	body := map[string]any{
		"name":        name,
		"tableNumber": tableNumber,
		"token":       tableToken,
	}

	var payload struct {
		models.TokenPair
		Guest models.Guest `json:"guest"`
	}
	if err := c.post(ctx, "/guest/auth/login", "", body, &payload); err != nil {
		return GuestLoginResult{}, err
	}

	return GuestLoginResult{Tokens: payload.TokenPair, Guest: payload.Guest}, nil
}

func (c *Client) GuestLogout(ctx context.Context, accessToken string, refreshToken string) error {
	err := c.post(ctx, "/guest/auth/logout", accessToken, map[string]string{"refreshToken": refreshToken}, nil)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) GuestRefresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var pair models.TokenPair
	err := c.post(ctx, "/guest/auth/refresh-token", "", map[string]string{"refreshToken": refreshToken}, &pair)
	return pair, err
}

// ListOrders fetches the staff order list, optionally bounded by time
func (c *Client) ListOrders(ctx context.Context, accessToken string, from time.Time, to time.Time) ([]models.Order, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("fromDate", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("toDate", to.Format(time.RFC3339))
	}

	var list []models.Order
	if err := c.get(ctx, "/orders", accessToken, query, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GuestOrders fetches the calling guest's own order list
func (c *Client) GuestOrders(ctx context.Context, accessToken string) ([]models.Order, error) {
	var list []models.Order
	if err := c.get(ctx, "/guest/orders", accessToken, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// post sends a state-changing request. Not retried automatically to
// avoid duplicate side effects.
func (c *Client) post(ctx context.Context, path string, accessToken string, body any, out any) error {
	data, err := c.do(ctx, http.MethodPost, path, accessToken, body, nil)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

// get sends an idempotent read, retrying connectivity failures with
// exponential backoff up to the configured budget
func (c *Client) get(ctx context.Context, path string, accessToken string, query url.Values, out any) error {
	operation := func() (json.RawMessage, error) {
		data, err := c.do(ctx, http.MethodGet, path, accessToken, nil, query)
		if err != nil && !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}

	data, err := backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx),
	)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

func (c *Client) do(ctx context.Context, method string, path string, accessToken string, body any, query url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connectivity failures are the retryable class
		return nil, fmt.Errorf("%w: %s %s: %v", apperrors.ErrUpstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("upstream request", "method", method, "path", path, "status", resp.StatusCode)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, data, err := flatten(buf.Bytes())
		return data, err

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s %s: %w", method, path, apperrors.ErrUnauthorized)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		var env envelope
		if err := json.Unmarshal(buf.Bytes(), &env); err == nil && len(env.Errors) > 0 {
			return nil, &ValidationError{Fields: env.Errors}
		}
		return nil, fmt.Errorf("%s %s: unprocessable entity", method, path)

	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s %s: status %d", apperrors.ErrUpstreamUnavailable, method, path, resp.StatusCode)

	default:
		var env envelope
		message := "request failed"
		if err := json.Unmarshal(buf.Bytes(), &env); err == nil && env.Message != "" {
			message = env.Message
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, message)
	}
}

func decodeInto(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode upstream payload: %w", err)
	}
	return nil
}
