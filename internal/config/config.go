package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CafeAPIBaseURL     string
	CORSAllowedOrigins []string
	AccessCookieName   string

	CartBackend    string
	CartTTL        time.Duration
	CartKeyPrefix  string
	CartLockTTL    time.Duration
	CartLockWait   time.Duration
	CartFilePath   string
	IdempotencyTTL time.Duration

	CatalogCacheTTL time.Duration
	StatsCacheTTL   time.Duration
	StatsMaxLimit   int

	QuotaPerOrder int
	QuotaPerDay   int

	OutboundTimeout    time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent int
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	RateLimitDriver string
	RateLimitWindow time.Duration
	RateLimitMax    int
	BodyLimitBytes  int64
	SecureHeaders   bool

	LogFormat          string
	LogLevel           string
	MetricsEnabled     bool
	MetricsNamespace   string
	MetricsBucketsMS   string
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	TracingSampleRatio float64
	PprofEnabled       bool
	PprofUser          string
	PprofPass          string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()
	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	return build(k)
}

// LoadForTests reads the environment with overrides layered on top. An empty
// override hides the variable. The process environment is left untouched.
func LoadForTests(overrides map[string]string) (*Config, error) {
	k, err := fromEnv()
	if err != nil {
		return nil, err
	}
	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}
	return build(k)
}

func fromEnv() (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

func build(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CafeAPIBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("CAFE_API_BASE_URL")), "/"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessCookieName:   strings.TrimSpace(k.String("ACCESS_COOKIE_NAME")),

		CartBackend:    strings.ToLower(valueOrDefault(k.String("CART_BACKEND"), "redis")),
		CartTTL:        parseDuration(k.String("CART_TTL"), "72h"),
		CartKeyPrefix:  valueOrDefault(k.String("CART_KEY_PREFIX"), "cafe:"),
		CartLockTTL:    parseDuration(k.String("CART_LOCK_TTL"), "5s"),
		CartLockWait:   parseDuration(k.String("CART_LOCK_WAIT"), "2s"),
		CartFilePath:   valueOrDefault(k.String("CART_FILE"), "cart.json"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "30s"),
		StatsCacheTTL:   parseDuration(k.String("STATS_CACHE_TTL"), "1m"),
		StatsMaxLimit:   parseInt(k.String("STATS_MAX_LIMIT"), 365),

		QuotaPerOrder: parseInt(k.String("QUOTA_PER_ORDER"), 0),
		QuotaPerDay:   parseInt(k.String("QUOTA_PER_DAY"), 0),

		OutboundTimeout:    parseDuration(k.String("OUTBOUND_TIMEOUT"), "5s"),
		RetryBase:          parseDuration(k.String("RETRY_BASE"), "100ms"),
		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		CircuitMinRequests: parseInt(k.String("CIRCUIT_CAFE_MIN_REQ"), 10),
		CircuitFailureRate: parseFloat(k.String("CIRCUIT_CAFE_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_CAFE_OPEN_FOR"), "30s"),

		RateLimitDriver: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_DRIVER"), "sliding")),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 120),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
		SecureHeaders:   parseBoolDefault(k.String("SECURE_HEADERS"), true),

		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:     parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "cafe"),
		MetricsBucketsMS:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:     parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:    valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:       strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampleRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		PprofEnabled:       parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:          strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:          strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
	}

	if cfg.CafeAPIBaseURL == "" {
		return nil, errors.New("CAFE_API_BASE_URL is required")
	}
	switch cfg.CartBackend {
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("CART_BACKEND must be redis or memory, got %q", cfg.CartBackend)
	}
	if cfg.RateLimitDriver != "sliding" && cfg.RateLimitDriver != "fixed" {
		return nil, fmt.Errorf("RATE_LIMIT_DRIVER must be sliding or fixed, got %q", cfg.RateLimitDriver)
	}
	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
