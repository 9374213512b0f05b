// Package supabase is a thin typed client for the Supabase surface the bot
// consumes: password auth, row-level CRUD on the tasks table through PostgREST,
// and the reminder RPCs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one Supabase project with its anon key.
// Per-user calls additionally carry the session's bearer token so row level
// security scopes them to that user.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// New creates a Supabase client. timeout bounds every remote call; a call that
// exceeds it surfaces as an APIError at the command/tick boundary.
func New(baseURL, anonKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a failed Supabase call. Message carries the backend's own text
// verbatim so command replies can pass it through.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("supabase error (status %d)", e.Status)
}

// postgrestError is PostgREST's error body shape.
type postgrestError struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Code    string `json:"code"`
}

// authError covers both GoTrue error shapes seen in the wild.
type authError struct {
	Msg              string `json:"msg"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) do(ctx context.Context, method, path string, token string, payload any, extraHeaders map[string]string) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, c.parseError(resp.StatusCode, data)
	}

	return data, resp.StatusCode, nil
}

// parseError extracts the most specific message the backend offered.
func (c *Client) parseError(status int, body []byte) error {
	var ae authError
	if err := json.Unmarshal(body, &ae); err == nil {
		switch {
		case ae.ErrorDescription != "":
			return &APIError{Status: status, Message: ae.ErrorDescription}
		case ae.Msg != "":
			return &APIError{Status: status, Message: ae.Msg}
		}
	}

	var pe postgrestError
	if err := json.Unmarshal(body, &pe); err == nil && pe.Message != "" {
		return &APIError{Status: status, Message: pe.Message}
	}

	return &APIError{Status: status}
}
