package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ruzziq8-cell/buzzlab/internal/middleware"
	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/reminder"
	"github.com/ruzziq8-cell/buzzlab/internal/session"
	"github.com/ruzziq8-cell/buzzlab/internal/templates"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

type stubTransport struct {
	ready   bool
	sends   []string
	sendErr error
}

func (s *stubTransport) SendMessage(ctx context.Context, to, text string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sends = append(s.sends, to+": "+text)
	return nil
}

func (s *stubTransport) IsRegistered(ctx context.Context, to string) (bool, error) {
	return true, nil
}

func (s *stubTransport) Ready(ctx context.Context) bool { return s.ready }

type stubBot struct {
	reply   string
	handled bool
	seen    int
}

func (s *stubBot) HandleMessage(ctx context.Context, msg transport.Message) (string, bool) {
	s.seen++
	return s.reply, s.handled
}

type emptySource struct{}

func (emptySource) Name() string                                     { return "rpc" }
func (emptySource) Fetch(ctx context.Context) ([]models.Task, error) { return nil, nil }

type noopMark struct{}

func (noopMark) UpdateLastReminded(ctx context.Context, taskID string, at time.Time) error {
	return nil
}

func parseBody(t *testing.T, resp io.Reader) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	return result
}

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	store := session.NewStore(time.Hour)
	store.Set("628111@c.us", &session.Session{SenderID: "628111@c.us", AccessToken: "tok"})
	tc := &stubTransport{ready: true}

	app.Get("/health", NewHealthHandler(store, tc).Handle)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	result := parseBody(t, resp.Body)
	if result["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", result["status"])
	}
	if result["sessions"] != float64(1) {
		t.Errorf("Expected 1 session, got %v", result["sessions"])
	}
	if result["transport_ready"] != true {
		t.Errorf("Expected transport_ready true, got %v", result["transport_ready"])
	}
}

func newTestEngine(t *testing.T, tc *stubTransport) *reminder.Engine {
	t.Helper()
	deliverer := reminder.NewDeliverer(tc, noopMark{}, templates.Load(""), nil, 600, false)
	engine, err := reminder.NewEngine(emptySource{}, deliverer, tc, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func TestStatusHandler(t *testing.T) {
	app := fiber.New()
	tc := &stubTransport{ready: true}
	engine := newTestEngine(t, tc)
	handler := NewStatusHandler(engine, session.NewStore(time.Hour))

	app.Get("/status", handler.Handle)
	app.Post("/admin/trigger", handler.Trigger)

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	result := parseBody(t, resp.Body)
	engineStatus, ok := result["engine"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected engine object, got %v", result["engine"])
	}
	if engineStatus["strategy"] != "rpc" {
		t.Errorf("Expected strategy 'rpc', got %v", engineStatus["strategy"])
	}
	if engineStatus["last_tick"] != nil {
		t.Errorf("Expected no last_tick before the first run, got %v", engineStatus["last_tick"])
	}

	// A manual trigger runs a tick synchronously, so last_tick appears.
	resp2, err := app.Test(httptest.NewRequest("POST", "/admin/trigger", nil))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp2.Body.Close()

	result2 := parseBody(t, resp2.Body)
	if result2["triggered"] != true {
		t.Errorf("Expected triggered true, got %v", result2["triggered"])
	}
	engineStatus2 := result2["engine"].(map[string]interface{})
	if engineStatus2["last_tick"] == nil {
		t.Error("Expected last_tick after a manual trigger")
	}
}

func TestWebhookHandler_RepliesToCommand(t *testing.T) {
	app := fiber.New()
	tc := &stubTransport{ready: true}
	bot := &stubBot{reply: "pong", handled: true}

	app.Post("/webhook/wa/message", NewWebhookHandler(bot, tc).HandleMessage)

	payload := `{"body":"!help","from":"628111@c.us"}`
	req := httptest.NewRequest("POST", "/webhook/wa/message", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	result := parseBody(t, resp.Body)
	if result["handled"] != true || result["delivered"] != true {
		t.Errorf("Unexpected response: %v", result)
	}
	if len(tc.sends) != 1 || tc.sends[0] != "628111@c.us: pong" {
		t.Errorf("Reply not sent back to sender: %v", tc.sends)
	}
}

func TestWebhookHandler_IgnoredMessageSendsNothing(t *testing.T) {
	app := fiber.New()
	tc := &stubTransport{ready: true}
	bot := &stubBot{handled: false}

	app.Post("/webhook/wa/message", NewWebhookHandler(bot, tc).HandleMessage)

	payload := `{"body":"hello there","from":"628111@c.us"}`
	req := httptest.NewRequest("POST", "/webhook/wa/message", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	result := parseBody(t, resp.Body)
	if result["handled"] != false {
		t.Errorf("Expected handled false, got %v", result["handled"])
	}
	if len(tc.sends) != 0 {
		t.Errorf("No reply expected, got %v", tc.sends)
	}
}

func TestWebhookHandler_MissingSenderRejected(t *testing.T) {
	app := fiber.New()
	tc := &stubTransport{}
	bot := &stubBot{reply: "pong", handled: true}

	app.Post("/webhook/wa/message", NewWebhookHandler(bot, tc).HandleMessage)

	req := httptest.NewRequest("POST", "/webhook/wa/message", strings.NewReader(`{"body":"!help"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
	if bot.seen != 0 {
		t.Error("Message without a sender must not reach the interpreter")
	}
}

func TestWebhookHandler_ReplySendFailureStays200(t *testing.T) {
	app := fiber.New()
	tc := &stubTransport{sendErr: io.ErrClosedPipe}
	bot := &stubBot{reply: "pong", handled: true}

	app.Post("/webhook/wa/message", NewWebhookHandler(bot, tc).HandleMessage)

	payload := `{"body":"!help","from":"628111@c.us"}`
	req := httptest.NewRequest("POST", "/webhook/wa/message", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	// A retry would re-run the command, so the gateway must not see an error.
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	result := parseBody(t, resp.Body)
	if result["handled"] != true || result["delivered"] != false {
		t.Errorf("Unexpected response: %v", result)
	}
}

func TestWebhookAuth(t *testing.T) {
	scenarios := []struct {
		name       string
		configured string
		header     string
		value      string
		wantStatus int
	}{
		{"empty configured token allows all", "", "", "", fiber.StatusOK},
		{"missing token rejected", "secret", "", "", fiber.StatusUnauthorized},
		{"wrong token rejected", "secret", "X-Gateway-Token", "nope", fiber.StatusUnauthorized},
		{"gateway header accepted", "secret", "X-Gateway-Token", "secret", fiber.StatusOK},
		{"bearer header accepted", "secret", fiber.HeaderAuthorization, "Bearer secret", fiber.StatusOK},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.WebhookAuth(sc.configured))
			app.Post("/webhook", func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{"ok": true})
			})

			req := httptest.NewRequest("POST", "/webhook", nil)
			if sc.header != "" {
				req.Header.Set(sc.header, sc.value)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to send request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != sc.wantStatus {
				t.Errorf("Expected status %d, got %d", sc.wantStatus, resp.StatusCode)
			}
		})
	}
}
