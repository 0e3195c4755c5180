package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-cart/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"CAFE_API_BASE_URL": "https://cafe.example.edu/api/",
		"REDIS_URL":         "redis://localhost:6379/0",
		"CART_BACKEND":      "",
		"CART_TTL":          "",
		"RATE_LIMIT_DRIVER": "",
		"QUOTA_PER_DAY":     "",
		"PORT":              "",
	})
	require.NoError(t, err)
	require.Equal(t, "https://cafe.example.edu/api", cfg.CafeAPIBaseURL)
	require.Equal(t, "redis", cfg.CartBackend)
	require.Equal(t, 72*time.Hour, cfg.CartTTL)
	require.Equal(t, "sliding", cfg.RateLimitDriver)
	require.Zero(t, cfg.QuotaPerDay)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"CAFE_API_BASE_URL":    "http://localhost:9000",
		"REDIS_URL":            "",
		"CART_BACKEND":         "memory",
		"CART_TTL":             "1h",
		"RATE_LIMIT_DRIVER":    "fixed",
		"QUOTA_PER_ORDER":      "8",
		"RETRY_MAX_ATTEMPTS":   "0",
		"CORS_ALLOWED_ORIGINS": "https://kiosk.example.edu, https://staff.example.edu",
		"PORT":                 ":9090",
	})
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.CartBackend)
	require.Equal(t, time.Hour, cfg.CartTTL)
	require.Equal(t, "fixed", cfg.RateLimitDriver)
	require.Equal(t, 8, cfg.QuotaPerOrder)
	require.Equal(t, 1, cfg.RetryMaxAttempts)
	require.Equal(t, []string{"https://kiosk.example.edu", "https://staff.example.edu"}, cfg.CORSAllowedOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadValidation(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"CAFE_API_BASE_URL": "", "REDIS_URL": "redis://x"})
	require.ErrorContains(t, err, "CAFE_API_BASE_URL")

	_, err = config.LoadForTests(map[string]string{"CAFE_API_BASE_URL": "http://x", "REDIS_URL": "", "CART_BACKEND": "redis"})
	require.ErrorContains(t, err, "REDIS_URL")

	_, err = config.LoadForTests(map[string]string{"CAFE_API_BASE_URL": "http://x", "CART_BACKEND": "memory", "RATE_LIMIT_DRIVER": "token"})
	require.ErrorContains(t, err, "RATE_LIMIT_DRIVER")
}
