package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime setting. Values come from the environment so the
// same binary runs in dev, CI and production.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	CORSOrigins []string
	StaticDir   string

	AnthropicAPIKey   string
	OpenAIAPIKey      string
	BraveSearchAPIKey string
	SendGridAPIKey    string
	FromEmail         string

	PaddleVendorID      string
	PaddleAPIKey        string
	PaddleWebhookSecret string
	PaddleSandbox       bool
	PaddleWebhookMaxAge time.Duration

	WorkerConcurrency int
	ScheduleInterval  time.Duration

	Features Features
}

type Features struct {
	BillingEnabled     bool
	SchedulerEnabled   bool
	SearchMockFallback bool
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StaticDir:   getEnv("STATIC_DIR", "./static"),

		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		BraveSearchAPIKey: os.Getenv("BRAVE_SEARCH_API_KEY"),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		FromEmail:         getEnv("NEWSLETTER_FROM_EMAIL", "newsletter@newsforge.dev"),

		PaddleVendorID:      os.Getenv("PADDLE_VENDOR_ID"),
		PaddleAPIKey:        os.Getenv("PADDLE_API_KEY"),
		PaddleWebhookSecret: os.Getenv("PADDLE_WEBHOOK_SECRET"),
		PaddleSandbox:       getBool("PADDLE_SANDBOX", true),
		PaddleWebhookMaxAge: getDuration("PADDLE_WEBHOOK_MAX_AGE", 0),

		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 4),
		ScheduleInterval:  getDuration("SCHEDULE_INTERVAL", 15*time.Minute),

		Features: LoadFeatures(),
	}
}

func LoadFeatures() Features {
	return Features{
		BillingEnabled:     getBool("BILLING_ENABLED", true),
		SchedulerEnabled:   getBool("SCHEDULER_ENABLED", true),
		SearchMockFallback: getBool("SEARCH_MOCK_FALLBACK", true),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
