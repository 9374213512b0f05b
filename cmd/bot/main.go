package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/ruzziq8-cell/buzzlab/internal/bot"
	"github.com/ruzziq8-cell/buzzlab/internal/config"
	"github.com/ruzziq8-cell/buzzlab/internal/handlers"
	"github.com/ruzziq8-cell/buzzlab/internal/logging"
	"github.com/ruzziq8-cell/buzzlab/internal/middleware"
	"github.com/ruzziq8-cell/buzzlab/internal/reminder"
	"github.com/ruzziq8-cell/buzzlab/internal/services"
	"github.com/ruzziq8-cell/buzzlab/internal/session"
	"github.com/ruzziq8-cell/buzzlab/internal/supabase"
	"github.com/ruzziq8-cell/buzzlab/internal/templates"
	"github.com/ruzziq8-cell/buzzlab/internal/transport"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting BuzzLab Bot...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		log.Fatal("❌ SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	log.Printf("📋 Configuration loaded (Port: %s, Strategy: %s)", cfg.Port, cfg.ReminderStrategy)

	// Supabase backend client
	backend := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.RequestTimeout)

	// WhatsApp gateway sidecar client
	gateway := transport.NewGateway(cfg.GatewayURL, cfg.GatewayToken, cfg.RequestTimeout)
	log.Printf("📱 WhatsApp gateway: %s", cfg.GatewayURL)

	// In-memory session store, entries expire with their access tokens
	store := session.NewStore(cfg.SessionTTL)

	// Reply templates, optionally overridden from a YAML file with hot reload
	tmpl := templates.Load(cfg.TemplatesPath)
	if cfg.TemplatesPath != "" {
		stopWatch, err := tmpl.Watch()
		if err != nil {
			log.Printf("⚠️  Template hot reload unavailable: %v", err)
		} else {
			defer stopWatch()
			log.Printf("📝 Watching %s for template changes", cfg.TemplatesPath)
		}
	}

	// Prometheus metrics, the sessions gauge reads the store
	metrics := services.InitMetrics(store)

	// Reminder candidate source per configured strategy
	var source reminder.CandidateSource
	switch cfg.ReminderStrategy {
	case config.StrategySession:
		source = reminder.NewSessionSource(store, backend)
	case config.StrategyRPC:
		source = reminder.NewRPCSource(backend)
	default:
		log.Fatalf("❌ Unknown REMINDER_STRATEGY %q (want %q or %q)", cfg.ReminderStrategy, config.StrategyRPC, config.StrategySession)
	}

	deliverer := reminder.NewDeliverer(gateway, backend, tmpl, metrics, cfg.SendRatePerMinute, cfg.VerifyRecipients)

	engine, err := reminder.NewEngine(source, deliverer, gateway, cfg.ReminderPoll, metrics)
	if err != nil {
		log.Fatalf("❌ Failed to create reminder engine: %v", err)
	}

	// Command interpreter, !trigger runs one engine tick synchronously
	interpreter := bot.New(backend, store, tmpl, metrics, cfg.DefaultLoginDomain, engine.RunNow)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("❌ Failed to start reminder engine: %v", err)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "BuzzLab Bot",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("buzzlab")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Handlers
	healthHandler := handlers.NewHealthHandler(store, gateway)
	statusHandler := handlers.NewStatusHandler(engine, store)
	webhookHandler := handlers.NewWebhookHandler(interpreter, gateway)

	app.Get("/health", healthHandler.Handle)
	app.Get("/status", statusHandler.Handle)

	// Token-guarded endpoints: the inbound webhook pushed by the gateway and
	// the manual tick trigger share the gateway token.
	if cfg.GatewayToken == "" {
		log.Println("⚠️  WA_GATEWAY_TOKEN not set, webhook and trigger endpoints are unauthenticated")
	}
	tokenAuth := middleware.WebhookAuth(cfg.GatewayToken)
	app.Post("/webhook/wa/message", tokenAuth, webhookHandler.HandleMessage)
	app.Post("/admin/trigger", tokenAuth, statusHandler.Trigger)

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down bot...")

		cancel()

		// Stop the reminder engine first, waits for a running tick
		if err := engine.Stop(); err != nil {
			log.Printf("⚠️ Error stopping reminder engine: %v", err)
		}

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := listenWithRetry(app, cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// listenWithRetry walks up from the configured port when it is already taken,
// so a second instance (or a lingering one during restarts) still comes up.
func listenWithRetry(app *fiber.App, port string) error {
	base, err := strconv.Atoi(port)
	if err != nil {
		return app.Listen(":" + port)
	}

	const maxAttempts = 10
	for attempt := 0; ; attempt++ {
		addr := ":" + strconv.Itoa(base+attempt)
		err := app.Listen(addr)
		if err == nil {
			return nil
		}
		if attempt < maxAttempts-1 && strings.Contains(err.Error(), "address already in use") {
			log.Printf("⚠️  Port %d in use, trying %d", base+attempt, base+attempt+1)
			continue
		}
		return err
	}
}
