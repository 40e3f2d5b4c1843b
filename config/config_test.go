package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFeatureFlagSpellings(t *testing.T) {
	cases := []struct {
		value   string
		enabled bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"1", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"garbage", true}, // unparseable keeps the default
	}

	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("BILLING_ENABLED", tc.value)
			assert.Equal(t, tc.enabled, LoadFeatures().BillingEnabled)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "PADDLE_SANDBOX", "BILLING_ENABLED", "SCHEDULER_ENABLED",
		"WORKER_CONCURRENCY", "SCHEDULE_INTERVAL", "PADDLE_WEBHOOK_MAX_AGE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.PaddleSandbox)
	assert.True(t, cfg.Features.BillingEnabled)
	assert.True(t, cfg.Features.SchedulerEnabled)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.ScheduleInterval)
	assert.Zero(t, cfg.PaddleWebhookMaxAge)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PADDLE_SANDBOX", "0")
	t.Setenv("SCHEDULE_INTERVAL", "5m")
	t.Setenv("PADDLE_WEBHOOK_MAX_AGE", "10m")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := Load()

	assert.False(t, cfg.PaddleSandbox)
	assert.Equal(t, 5*time.Minute, cfg.ScheduleInterval)
	assert.Equal(t, 10*time.Minute, cfg.PaddleWebhookMaxAge)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}
