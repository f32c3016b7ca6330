package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	NATSSubjectPrefix  string
	CORSAllowedOrigins []string

	CatalogCacheTTL        time.Duration
	CatalogRefreshInterval time.Duration
	SessionTTL             time.Duration
	LockTTL                time.Duration
	LockRetryBackoff       time.Duration
	IdempotencyTTL         time.Duration
	EventRetention         time.Duration

	QuoteLoanTerms             []int
	QuoteDefaultPrepaidPercent decimal.Decimal
	QuoteDefaultServiceFee     decimal.Decimal
	QuoteDefaultInsuranceRate  decimal.Decimal

	RateLimitQuotePerMin int
	MaxBodyBytes         int64

	CircuitCatalogFailureRate float64
	CircuitCatalogMinRequests int
	CircuitCatalogOpenFor     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		NATSURL:            strings.TrimSpace(k.String("NATS_URL")),
		NATSSubjectPrefix:  valueOrDefault(k.String("NATS_SUBJECT_PREFIX"), "showroom"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CatalogCacheTTL:        parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		CatalogRefreshInterval: parseDuration(k.String("CATALOG_REFRESH_INTERVAL"), "5m"),
		SessionTTL:             parseDuration(k.String("SESSION_TTL"), "72h"),
		LockTTL:                parseDuration(k.String("LOCK_TTL"), "5s"),
		LockRetryBackoff:       parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		EventRetention:         parseDuration(k.String("EVENT_RETENTION"), "2160h"),

		QuoteDefaultPrepaidPercent: parseDecimal(k.String("QUOTE_DEFAULT_PREPAID_PERCENT"), "20"),
		QuoteDefaultServiceFee:     parseDecimal(k.String("QUOTE_DEFAULT_SERVICE_FEE"), "3000000"),
		QuoteDefaultInsuranceRate:  parseDecimal(k.String("QUOTE_DEFAULT_INSURANCE_RATE"), "1.2"),

		RateLimitQuotePerMin: parseInt(k.String("RATE_LIMIT_QUOTE_PER_MIN"), 120),
		MaxBodyBytes:         int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),

		CircuitCatalogFailureRate: parseFloat(k.String("CIRCUIT_CATALOG_FAILURE_RATE"), 0.5),
		CircuitCatalogMinRequests: parseInt(k.String("CIRCUIT_CATALOG_MIN_REQUESTS"), 5),
		CircuitCatalogOpenFor:     parseDuration(k.String("CIRCUIT_CATALOG_OPEN_FOR"), "30s"),
	}

	terms, err := parseTerms(k.String("QUOTE_LOAN_TERMS"))
	if err != nil {
		return nil, err
	}
	cfg.QuoteLoanTerms = terms

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.QuoteDefaultPrepaidPercent.IsNegative() || cfg.QuoteDefaultPrepaidPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("QUOTE_DEFAULT_PREPAID_PERCENT must be between 0 and 100")
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
		return value
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

func parseDecimal(value, fallback string) decimal.Decimal {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := decimal.NewFromString(base)
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}

// parseTerms reads a csv of loan terms in years. An empty value yields the
// default 3..8 range.
func parseTerms(value string) ([]int, error) {
	parts := splitAndTrim(value)
	if len(parts) == 0 {
		return []int{3, 4, 5, 6, 7, 8}, nil
	}
	terms := make([]int, 0, len(parts))
	for _, part := range parts {
		years, err := strconv.Atoi(part)
		if err != nil || years <= 0 {
			return nil, fmt.Errorf("QUOTE_LOAN_TERMS: invalid term %q", part)
		}
		terms = append(terms, years)
	}
	return terms, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
