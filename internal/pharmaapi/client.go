// Package pharmaapi talks to the remote pharmacy REST API on behalf of the
// signed-in staff member.
package pharmaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRetryWaitMax = 2 * time.Second
	expiryLeeway        = 10 * time.Second
	maxErrorBody        = 2048
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
}

// TokenStore holds the tokens of one signed-in session.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string)
	Logout()
}

// Client is shared by all requests. Bind it to a TokenStore to call
// authenticated endpoints.
type Client struct {
	reads   *http.Client
	writes  *http.Client
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
	refresh singleflight.Group

	Auth *AuthService
}

// NewClient constructs a Client. GET requests are retried on transport
// errors and 5xx responses; writes are sent once.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = defaultRetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
			return true, nil
		}
		return false, nil
	}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		reads:   retryClient.StandardClient(),
		writes:  &http.Client{Timeout: cfg.Timeout, Transport: retryClient.HTTPClient.Transport},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
	c.Auth = &AuthService{c: c}
	return c
}

// Bind returns a Session issuing requests with the tokens in store.
func (c *Client) Bind(store TokenStore) *Session {
	s := &Session{client: c, tokens: store}
	s.Orders = &OrderService{s: s}
	s.Employees = &EmployeeService{s: s}
	s.Pharmacies = &PharmacyService{s: s}
	s.Stocks = &StockService{s: s}
	s.Notifications = &NotificationService{s: s}
	return s
}

// Session is a Client bound to the tokens of one signed-in user. It is
// safe for concurrent use.
type Session struct {
	client *Client
	mu     sync.Mutex
	tokens TokenStore

	Orders        *OrderService
	Employees     *EmployeeService
	Pharmacies    *PharmacyService
	Stocks        *StockService
	Notifications *NotificationService
}

func (s *Session) accessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken()
}

// renew exchanges the refresh token for a new access token. Concurrent
// callers holding the same refresh token share one exchange, which runs
// detached from any single caller. The session is cleared only when the
// refresh endpoint rejects the token; timeouts and outages leave it intact.
func (s *Session) renew(ctx context.Context) (string, error) {
	s.mu.Lock()
	refresh := ""
	if s.tokens != nil {
		refresh = s.tokens.RefreshToken()
	}
	s.mu.Unlock()

	if refresh == "" {
		s.logout()
		return "", ErrUnauthenticated
	}
	shared := context.WithoutCancel(ctx)
	ch := s.client.refresh.DoChan(refresh, func() (any, error) {
		return s.client.Auth.Refresh(shared, refresh)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		if !refreshRejected(res.Err) {
			s.client.logger.Warn("token refresh failed", slog.Any("error", res.Err))
			return "", res.Err
		}
		s.client.logger.Info("refresh token rejected, clearing session", slog.Any("error", res.Err))
		s.logout()
		return "", ErrUnauthenticated
	}
	access := res.Val.(string)
	s.mu.Lock()
	s.tokens.SetAccessToken(access)
	s.mu.Unlock()
	return access, nil
}

// refreshRejected reports whether the refresh endpoint refused the token
// itself, as opposed to failing to answer.
func refreshRejected(err error) bool {
	var status *StatusError
	if !errors.As(err, &status) {
		return false
	}
	return status.Code == http.StatusUnauthorized || status.Code == http.StatusBadRequest
}

func (s *Session) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens != nil {
		s.tokens.Logout()
	}
}

// call performs an authenticated request. An access token already past its
// expiry is refreshed first; a 401 triggers one refresh and one retry.
func (s *Session) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token := s.accessToken()
	if token == "" {
		return ErrUnauthenticated
	}
	if s.client.expired(token) {
		var err error
		if token, err = s.renew(ctx); err != nil {
			return err
		}
	}
	raw, status, err := s.client.send(ctx, method, path, query, body, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if token, err = s.renew(ctx); err != nil {
			return err
		}
		raw, status, err = s.client.send(ctx, method, path, query, body, token)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			s.logout()
			return ErrUnauthenticated
		}
	}
	if err := checkStatus(method, path, status, raw); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if list, ok := out.(listTarget); ok {
		return list.decode(raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pharmaapi: decode %s %s: %w", method, path, err)
	}
	return nil
}

// expired reads exp without verifying the signature; the remote API does
// that. Tokens that do not parse are sent as is.
func (c *Client) expired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return c.now().Add(expiryLeeway).After(claims.ExpiresAt.Time)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, token string) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("pharmaapi: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("pharmaapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := c.writes
	if method == http.MethodGet {
		client = c.reads
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("pharmaapi: read body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func checkStatus(method, path string, status int, raw []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusForbidden:
		return ErrForbidden
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, status)
	}
	body := string(raw)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Method: method, Path: path, Code: status, Body: body}
}

type listTarget interface {
	decode(raw []byte) error
}

type listOf[T any] struct {
	items *[]T
}

func (l listOf[T]) decode(raw []byte) error {
	items, err := decodeList[T](raw)
	if err != nil {
		return fmt.Errorf("pharmaapi: decode list: %w", err)
	}
	*l.items = items
	return nil
}

// AuthService covers the unauthenticated token endpoints.
type AuthService struct {
	c *Client
}

// Login exchanges staff credentials for tokens.
func (a *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	raw, status, err := a.c.send(ctx, http.MethodPost, "/auth/pharmacy-login/", nil, loginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrInvalidCredentials
	}
	if err := checkStatus(http.MethodPost, "/auth/pharmacy-login/", status, raw); err != nil {
		return nil, err
	}
	var out LoginResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pharmaapi: decode login: %w", err)
	}
	if out.Access == "" {
		return nil, errors.New("pharmaapi: login response without access token")
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token.
func (a *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	raw, status, err := a.c.send(ctx, http.MethodPost, "/auth/refresh/", nil, refreshRequest{Refresh: refresh}, "")
	if err != nil {
		return "", err
	}
	if err := checkStatus(http.MethodPost, "/auth/refresh/", status, raw); err != nil {
		return "", err
	}
	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("pharmaapi: decode refresh: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("pharmaapi: refresh response without access token")
	}
	return out.Access, nil
}
