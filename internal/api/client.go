// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Configuration constants for trading API requests.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
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

// Error variables for common API failures.
var (
	// ErrUnauthorized indicates the server no longer honors the credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

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

// Client talks to the trading backend's protected endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// tokenSource returns the live credential. Empty means no session.
	tokenSource func() string

	// onUnauthorized fires whenever any endpoint answers 401, so the
	// session layer can end the session app-wide.
	onUnauthorized func()
}

// NewClient creates a client for the API rooted at baseURL. tokenSource
// supplies the credential per request.
func NewClient(baseURL string, tokenSource func() string) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  sharedHTTPClient,
		tokenSource: tokenSource,
	}
}

// WithHTTPClient overrides the HTTP client, primarily for tests.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// SetUnauthorizedCallback registers the 401 hook.
func (c *Client) SetUnauthorizedCallback(fn func()) {
	c.onUnauthorized = fn
}

// =============================================================================
// STOCKS
// =============================================================================

// ListStocks returns all watched stocks.
func (c *Client) ListStocks(ctx context.Context) ([]Stock, error) {
	var stocks []Stock
	if err := c.do(ctx, http.MethodGet, "/api/acoes", nil, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// AddStock adds a stock to the watchlist.
func (c *Client) AddStock(ctx context.Context, code string) (*Stock, error) {
	var stock Stock
	payload := map[string]string{"codigo": code}
	if err := c.do(ctx, http.MethodPost, "/api/acoes", payload, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// RemoveStock removes a stock from the watchlist.
func (c *Client) RemoveStock(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/api/acoes/"+url.PathEscape(code), nil, nil)
}

// ActivateStock resumes monitoring of a stock.
func (c *Client) ActivateStock(ctx context.Context, code string) (*Stock, error) {
	var stock Stock
	path := "/api/acoes/" + url.PathEscape(code) + "/ativar"
	if err := c.do(ctx, http.MethodPatch, path, nil, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// DeactivateStock pauses monitoring of a stock.
func (c *Client) DeactivateStock(ctx context.Context, code string) (*Stock, error) {
	var stock Stock
	path := "/api/acoes/" + url.PathEscape(code) + "/desativar"
	if err := c.do(ctx, http.MethodPatch, path, nil, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

// Analyze runs technical analysis for one stock.
func (c *Client) Analyze(ctx context.Context, code string) (*Analysis, error) {
	var analysis Analysis
	path := "/api/acoes/" + url.PathEscape(code) + "/analise"
	if err := c.do(ctx, http.MethodGet, path, nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// =============================================================================
// PORTFOLIO
// =============================================================================

// ListPortfolio returns all holdings.
func (c *Client) ListPortfolio(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.do(ctx, http.MethodGet, "/api/carteira", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// AddPosition adds a holding to the portfolio.
func (c *Client) AddPosition(ctx context.Context, p NewPosition) (*Position, error) {
	var position Position
	if err := c.do(ctx, http.MethodPost, "/api/carteira", p, &position); err != nil {
		return nil, err
	}
	return &position, nil
}

// RemovePosition removes a holding.
func (c *Client) RemovePosition(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/api/carteira/"+url.PathEscape(code), nil, nil)
}

// UpdatePosition partially updates a holding. The backend takes the fields
// as query parameters, not a body.
func (c *Client) UpdatePosition(ctx context.Context, code string, update PositionUpdate) (*Position, error) {
	query := url.Values{}
	if update.Quantity != nil {
		query.Set("quantidade", strconv.Itoa(*update.Quantity))
	}
	if update.AvgPrice != nil {
		query.Set("preco_medio", formatFloat(*update.AvgPrice))
	}
	if update.StopLoss != nil {
		query.Set("stop_loss", formatFloat(*update.StopLoss))
	}
	if update.TakeProfit != nil {
		query.Set("take_profit", formatFloat(*update.TakeProfit))
	}

	path := "/api/carteira/" + url.PathEscape(code)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var position Position
	if err := c.do(ctx, http.MethodPatch, path, nil, &position); err != nil {
		return nil, err
	}
	return &position, nil
}

// Sell sells part or all of a holding. A full sale removes the position;
// the result says which happened.
func (c *Client) Sell(ctx context.Context, sale SaleRequest) (*SaleResult, error) {
	var result SaleResult
	path := "/api/carteira/" + url.PathEscape(sale.Code) + "/vender"
	if err := c.do(ctx, http.MethodPost, path, sale, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// ListTransactions returns the sale history with aggregates.
func (c *Client) ListTransactions(ctx context.Context) (*TransactionSummary, error) {
	var summary TransactionSummary
	if err := c.do(ctx, http.MethodGet, "/api/transacoes", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs a single authenticated JSON exchange. out may be nil when the
// response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tradewatch/0.3.0")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	log.Printf("API %s %s: %d (%v)", method, req.URL.Path, resp.StatusCode, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// handleErrorResponse maps HTTP error responses to Go errors. A 401 also
// fires the unauthorized hook: the session ends once, app-wide, no matter
// which call surfaced it.
func (c *Client) handleErrorResponse(status int, body []byte) error {
	detail := errorDetail(body)

	switch status {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	default:
		return &APIError{Status: status, Detail: detail}
	}
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

// errorDetail extracts the backend's error message.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
	}
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

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
