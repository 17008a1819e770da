// Package api implements the REST client for the auth and profile
// endpoints. It is the only component that talks to the network; every
// failure is classified into the TransportError / StatusError /
// DecodeError taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/amanpay/appcore/internal/models"
	"go.uber.org/zap"
)

const (
	loginPath    = "/api/auth/login/"
	registerPath = "/api/auth/register/"
	refreshPath  = "/api/auth/refresh/"
)

// profilePaths are the candidate profile endpoints, tried in order.
// Endpoint location varies by deployment; the first 2xx wins.
var profilePaths = []string{"/api/auth/me/", "/api/users/me/", "/api/auth/user/"}

// Client talks to the AmanPay backend.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// New creates a client for the given base URL.
func New(baseURL string, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}, nil
}

// Login authenticates with phone+password and returns the token pair and
// profile.
func (c *Client) Login(ctx context.Context, phone, password string) (*models.AuthSuccess, error) {
	var res models.AuthSuccess
	body := models.LoginRequest{PhoneNumber: phone, Password: password}
	if err := c.post(ctx, loginPath, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register creates an account; the success path is identical to Login.
func (c *Client) Register(ctx context.Context, phone, first, last, password string) (*models.AuthSuccess, error) {
	var res models.AuthSuccess
	body := models.RegisterRequest{
		PhoneNumber: phone,
		FirstName:   first,
		LastName:    last,
		Password:    password,
	}
	if err := c.post(ctx, registerPath, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh exchanges the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refresh string) (string, error) {
	var res models.RefreshResponse
	if err := c.post(ctx, refreshPath, models.RefreshRequest{Refresh: refresh}, &res); err != nil {
		return "", err
	}
	return res.Access, nil
}

// Me fetches the authenticated profile, trying each candidate path in
// order and accepting the first success. The last classified failure is
// returned when every candidate fails.
func (c *Client) Me(ctx context.Context, access string) (*models.ProfileRecord, error) {
	var lastErr error
	for _, path := range profilePaths {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath(path).String(), nil)
		if err != nil {
			lastErr = &TransportError{Err: err}
			continue
		}
		req.Header.Set("Accept", "application/json")
		if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}

		var profile models.ProfileRecord
		if err := c.do(req, &profile); err != nil {
			lastErr = err
			continue
		}
		return &profile, nil
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &DecodeError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes the request and decodes a 2xx body into out. Non-2xx
// responses become StatusError with the server detail when the body
// carries one.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("api response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return &StatusError{Code: resp.StatusCode, Detail: detail.Detail}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
