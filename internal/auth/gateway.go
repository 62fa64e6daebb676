// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Configuration constants for the authentication endpoints.
const (
	// DefaultTimeout is the default timeout for authentication requests.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 1 * 1024 * 1024 // 1MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all authentication requests.
// SECURITY: TLS verification required for production
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: false, // SECURITY: TLS verification required for production
		},
	},
	Timeout: DefaultTimeout,
}

// Error variables for common authentication failures.
var (
	// ErrInvalidCredentials indicates the server rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailInUse indicates registration failed because the email is taken.
	ErrEmailInUse = errors.New("email already registered")

	// ErrMalformedResponse indicates the server answered with a body the
	// client could not interpret.
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")
)

// APIError represents a non-success response from the trading API.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// CheckResult classifies the outcome of a server-side credential check.
//
// The three-way split matters: only a definitive rejection may end the
// session. Anything that leaves the credential's standing unknown must be
// reported as CheckIndeterminate so the caller keeps the session.
type CheckResult int

const (
	// CheckValid means the server accepted the credential.
	CheckValid CheckResult = iota

	// CheckInvalid means the server definitively rejected the credential.
	CheckInvalid

	// CheckIndeterminate means the check could not be completed: network
	// failure, server error, or an uninterpretable response.
	CheckIndeterminate
)

// String returns a human-readable name for the result.
func (r CheckResult) String() string {
	switch r {
	case CheckValid:
		return "valid"
	case CheckInvalid:
		return "invalid"
	case CheckIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// loginRequest mirrors the backend's login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// registerRequest mirrors the backend's registration payload.
type registerRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// loginResponse is the success body of POST /auth/login.
type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        *Profile `json:"usuario"`
}

// apiErrorBody is the backend's error envelope.
type apiErrorBody struct {
	Detail string `json:"detail"`
}

// Gateway performs authentication calls against the trading API.
//
// The base URL is fixed at construction; every method performs a single
// attempt with no retries, so a caller always learns the outcome of exactly
// one exchange.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewGateway creates a gateway for the API rooted at baseURL.
func NewGateway(baseURL string) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
	}
}

// WithHTTPClient overrides the HTTP client, primarily for tests.
func (g *Gateway) WithHTTPClient(client *http.Client) *Gateway {
	g.httpClient = client
	return g
}

// BaseURL returns the API root this gateway talks to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Login exchanges an email/password pair for a credential and profile.
//
// A 401 maps to ErrInvalidCredentials. A 2xx body missing the token or the
// profile maps to ErrMalformedResponse: a success the client cannot use is
// treated as a failure, never as a half-authenticated state.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, *Profile, error) {
	body, status, err := g.post(ctx, "/auth/login", loginRequest{
		Email:    email,
		Password: password,
	}, "")
	if err != nil {
		return "", nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errorDetail(body))
	case status < 200 || status >= 300:
		return "", nil, &APIError{Status: status, Detail: errorDetail(body)}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return "", nil, fmt.Errorf("%w: incomplete login payload", ErrMalformedResponse)
	}

	return resp.AccessToken, resp.User, nil
}

// Register creates a new account. The backend returns the created user but
// no credential; callers follow up with Login to establish a session.
func (g *Gateway) Register(ctx context.Context, name, email, password string) (*Profile, error) {
	body, status, err := g.post(ctx, "/auth/registro", registerRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, "")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrEmailInUse, errorDetail(body))
	case status < 200 || status >= 300:
		return nil, &APIError{Status: status, Detail: errorDetail(body)}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &profile, nil
}

// CheckValidity asks the server whether the credential is still honored.
//
// The contract is total: every outcome maps to one of the three results.
// RELIABILITY: Only an explicit 401 may report CheckInvalid. A network
// failure or a 5xx proves nothing about the credential and must never be
// treated as a rejection.
func (g *Gateway) CheckValidity(ctx context.Context, token string) (CheckResult, *Profile) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/usuario/atual", nil)
	if err != nil {
		return CheckIndeterminate, nil
	}
	g.setHeaders(req, token)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Printf("Validity check failed before response: %v", err)
		return CheckIndeterminate, nil
	}
	defer resp.Body.Close()
	g.logResponse(req, resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return CheckIndeterminate, nil
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var profile Profile
		if err := json.Unmarshal(body, &profile); err != nil {
			// A 200 the client cannot read proves nothing either way.
			return CheckIndeterminate, nil
		}
		return CheckValid, &profile
	case http.StatusUnauthorized:
		return CheckInvalid, nil
	default:
		return CheckIndeterminate, nil
	}
}

// post performs a single JSON POST and returns the raw body and status.
// A nil error with a non-2xx status is still a completed exchange; only
// transport-level failures map to ErrNetwork.
func (g *Gateway) post(ctx context.Context, path string, payload any, token string) ([]byte, int, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req, token)

	start := time.Now()
	resp, err := g.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	g.logResponse(req, resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return body, resp.StatusCode, nil
}

// setHeaders sets the required headers for trading API requests.
func (g *Gateway) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tradewatch/0.3.0")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// logResponse logs an API response with duration.
// SECURITY: Only method, path, status, and duration. Never headers or bodies.
func (g *Gateway) logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	log.Printf("API %s %s: %d (%v)", req.Method, req.URL.Path, resp.StatusCode, duration)
}

// readResponse reads the response body with size limits.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorDetail extracts the backend's error message, falling back to a
// truncated raw body when the envelope does not parse.
func errorDetail(body []byte) string {
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return envelope.Detail
	}
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// TokenFingerprint returns a short SHA-256 fingerprint of a credential for
// logging.
// SECURITY: Never log token fragments; use the fingerprint instead.
func TokenFingerprint(token string) string {
	if token == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:4])
}
