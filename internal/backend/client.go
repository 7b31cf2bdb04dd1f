// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend is the client for the external REST backend that owns
// credentials and the cooperative's business data.
package backend

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

	"github.com/jaalnock/dairy-project-sub000/internal/session"
)

// Client configuration constants
const (
	DefaultTimeout  = 10 * time.Second
	MaxErrorBody    = 4 * 1024
	MaxResponseBody = 64 * 1024
	UserAgent       = "dairy-portal/1.0"
)

var (
	// ErrUnauthorized is returned when the backend rejects credentials.
	ErrUnauthorized = errors.New("backend: invalid credentials")

	// ErrUnsupportedRole is returned for roles without a backend section.
	ErrUnsupportedRole = errors.New("backend: role has no backend endpoint")
)

// Credentials are forwarded to the backend for verification.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StatusError is returned for unexpected backend responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("backend %s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

// Client calls the backend's authentication endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL. Non-positive timeouts use
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// section maps a role to its backend path segment.
func section(role session.Role) (string, error) {
	switch role {
	case session.RoleAdmin:
		return "admin", nil
	case session.RoleSubAdmin:
		return "subadmin", nil
	default:
		return "", ErrUnsupportedRole
	}
}

// Login verifies credentials for role and returns the backend credential
// that identifies the new backend session. The credential is opaque to
// callers and empty when the backend issued neither a token nor cookies.
// It returns ErrUnauthorized when the backend answers 401 or 403.
func (c *Client) Login(ctx context.Context, role session.Role, creds Credentials) (string, error) {
	seg, err := section(role)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("encoding credentials: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/"+seg+"/login", payload, "")
	if err != nil {
		return "", fmt.Errorf("backend login: %w", err)
	}

	switch {
	case resp.status >= 200 && resp.status < 300:
		return encodeCredential(credential{
			Token:   tokenFromBody(resp.body),
			Cookies: cookieHeader(resp.cookies),
		}), nil
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return "", ErrUnauthorized
	default:
		return "", &StatusError{Op: "login", Status: resp.status, Body: truncate(resp.body, MaxErrorBody)}
	}
}

// SignOut ends the backend session for role, identified by the credential
// Login returned. It implements session.SignOuter.
func (c *Client) SignOut(ctx context.Context, role session.Role, cred string) error {
	seg, err := section(role)
	if err != nil {
		return err
	}

	resp, err := c.post(ctx, "/api/v1/"+seg+"/logout", nil, cred)
	if err != nil {
		return fmt.Errorf("backend sign-out: %w", err)
	}
	if resp.status < 200 || resp.status >= 300 {
		return &StatusError{Op: "sign-out", Status: resp.status, Body: truncate(resp.body, MaxErrorBody)}
	}
	return nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &StatusError{Op: "ping", Status: resp.StatusCode}
	}
	return nil
}

// response is the part of a backend answer the client looks at.
type response struct {
	status  int
	body    string
	cookies []*http.Cookie
}

// post sends payload to path, identifying the backend session with cred
// when it is not empty.
func (c *Client) post(ctx context.Context, path string, payload []byte, cred string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	decodeCredential(cred).apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	return response{
		status:  resp.StatusCode,
		body:    strings.TrimSpace(string(body)),
		cookies: resp.Cookies(),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ session.SignOuter = (*Client)(nil)
