package config

import (
	"os"
	"strconv"
	"time"
)

// Reminder candidate strategies (see internal/reminder).
const (
	StrategyRPC     = "rpc"     // privileged get_due_reminders RPC across all users
	StrategySession = "session" // per logged-in session queries only
)

// Config holds all application configuration
type Config struct {
	Port string

	// Supabase backend
	SupabaseURL     string
	SupabaseAnonKey string
	RequestTimeout  time.Duration

	// WhatsApp gateway sidecar
	GatewayURL   string
	GatewayToken string

	// Reminder engine
	ReminderStrategy  string // "rpc" or "session"
	ReminderPoll      time.Duration
	VerifyRecipients  bool
	SendRatePerMinute int

	// Bot behavior
	DefaultLoginDomain string // appended to !login usernames without an '@'
	TemplatesPath      string
	SessionTTL         time.Duration // fallback when the access token has no usable exp claim
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		RequestTimeout:  time.Duration(getIntEnv("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,

		GatewayURL:   getEnv("WA_GATEWAY_URL", "http://localhost:3000"),
		GatewayToken: getEnv("WA_GATEWAY_TOKEN", ""),

		ReminderStrategy:  getEnv("REMINDER_STRATEGY", StrategyRPC),
		ReminderPoll:      time.Duration(getIntEnv("REMINDER_POLL_SECONDS", 5)) * time.Second,
		VerifyRecipients:  getBoolEnv("VERIFY_RECIPIENTS", false),
		SendRatePerMinute: getIntEnv("SEND_RATE_PER_MINUTE", 30),

		DefaultLoginDomain: getEnv("DEFAULT_LOGIN_DOMAIN", "todolist.app"),
		TemplatesPath:      getEnv("TEMPLATES_PATH", ""),
		SessionTTL:         time.Duration(getIntEnv("SESSION_TTL_MINUTES", 60)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
