// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package salus provides the HTTP client for the Dr. Salus AI service.
package salus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the Dr. Salus AI service API.
const (
	// DefaultBaseURL is the base URL for a locally running AI service.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// Keeps a misbehaving service from exhausting client memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// requestsPerSecond caps outbound chat requests. Rapid edit and
	// version-switch sequences are smoothed instead of hammering the
	// service.
	requestsPerSecond = 4
	requestBurst      = 2
)

// Error variables for common service errors.
var (
	// ErrUnavailable indicates the service could not be reached.
	ErrUnavailable = errors.New("AI service unavailable")

	// ErrEmptyReply indicates the service reported success but returned
	// no reply text.
	ErrEmptyReply = errors.New("empty reply from AI service")

	// ErrEmptyMessage indicates a chat request with no message text.
	ErrEmptyMessage = errors.New("message must not be empty")
)

// APIError represents an error reported by the AI service.
type APIError struct {
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("AI service error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("AI service error (HTTP %d)", e.Status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// HistoryMessage is one prior conversation turn in wire order.
type HistoryMessage struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for the chat endpoint.
type ChatRequest struct {
	Message   string           `json:"message"`
	SessionID string           `json:"session_id,omitempty"`
	History   []HistoryMessage `json:"conversation_history,omitempty"`
}

// ChatReply is the decoded payload of a successful chat response.
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// chatEnvelope is the full response envelope from the service.
type chatEnvelope struct {
	Success bool       `json:"success"`
	Data    *ChatReply `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// healthResponse is the body of the health endpoint.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the Dr. Salus AI chat service.
//
// Chat makes exactly one attempt per call: a failed send becomes the
// conversation's fallback turn, never a silent retry, so the user always
// sees that something happened.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates a new client for the service at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		timeout: DefaultTimeout,
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient sets a custom HTTP client (used by tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit overrides the outbound request rate limit.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// LOGGING
// =============================================================================

// logRequest logs an API request. Never logs the body: user messages may
// contain personal details about them and their pets.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration. Status and timing only,
// no response body.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends a message to the AI service and returns its reply.
//
// Exactly one attempt is made. Any failure (transport error, non-2xx
// status, success=false envelope, empty reply) is returned to the caller,
// which turns it into the fallback turn.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/v1/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "salus-tui/0.1.0")

	c.logRequest(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logResponse(resp, duration)

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp.StatusCode, body)
	}

	var envelope chatEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !envelope.Success {
		return nil, &APIError{Message: envelope.Error, Status: resp.StatusCode}
	}
	if envelope.Data == nil || strings.TrimSpace(envelope.Data.Response) == "" {
		return nil, ErrEmptyReply
	}

	return envelope.Data, nil
}

// ClearSession asks the service to drop server-side state for a session.
// Best effort: the client's own conversation reset does not depend on it.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/v1/session/clear"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return decodeErrorResponse(resp.StatusCode, body)
	}
	return nil
}

// Health probes the service health endpoint. Returns nil when the service
// reports healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Message: "health check failed", Status: resp.StatusCode}
	}

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if health.Status != "healthy" && health.Status != "ok" {
		return &APIError{Message: "service reports " + health.Status, Status: resp.StatusCode}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// readResponse reads the response body with a size limit.
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

// decodeErrorResponse converts an HTTP error response into an *APIError,
// pulling the message out of the envelope when the body parses.
func decodeErrorResponse(statusCode int, body []byte) error {
	var envelope chatEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &APIError{Message: envelope.Error, Status: statusCode}
	}
	return &APIError{Message: strings.TrimSpace(string(body)), Status: statusCode}
}
