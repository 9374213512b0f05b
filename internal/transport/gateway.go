package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruzziq8-cell/buzzlab/internal/logging"
)

var gatewayLog = logging.Component("gateway")

// Gateway is the HTTP client for the whatsapp-web.js sidecar. Outgoing sends
// and registration checks go through here; inbound messages arrive separately
// as webhook POSTs from the sidecar to this service.
type Gateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewGateway creates a gateway client authenticated with the shared token.
func NewGateway(baseURL, token string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendMessage posts one outgoing message to the gateway.
func (g *Gateway) SendMessage(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{To: to, Body: text})
	if err != nil {
		return fmt.Errorf("failed to encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway send failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// IsRegistered asks the gateway whether an address maps to a real account.
func (g *Gateway) IsRegistered(ctx context.Context, to string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/registered/"+url.PathEscape(to), nil)
	if err != nil {
		return false, err
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("gateway registration check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("gateway registration check failed (status %d)", resp.StatusCode)
	}

	var result struct {
		Registered bool `json:"registered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to parse registration response: %w", err)
	}
	return result.Registered, nil
}

// Ready reports whether the sidecar's WhatsApp client is paired and connected
// (client.info present on the whatsapp-web.js side). Any error counts as not
// ready; the scheduler just skips the tick.
func (g *Gateway) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	g.authorize(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		gatewayLog.WithError(err).Debug("gateway status check failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false
	}

	var result struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	return result.Ready
}

func (g *Gateway) authorize(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}
