package config

import (
	"errors"
	"fmt"
	"os"
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
	PublicBaseURL      string
	RedisURL           string
	CORSAllowedOrigins []string

	LiqPayPublicKey   string
	LiqPayPrivateKey  string
	WayForPayMerchant string
	WayForPaySecret   string
	Currency          string
	AllowUnverified   bool

	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string

	TelegramCourseLink string

	DedupeTTL       time.Duration
	ReplayTTL       time.Duration
	DispatchTimeout time.Duration
	IdempotencyTTL  time.Duration

	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	BodyLimitBytes     int64

	LogFormat string
	LogLevel  string

	TracingEnabled  bool
	TracingEndpoint string
	TracingRatio    float64
	MetricsBuckets  string
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
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("PUBLIC_BASE_URL")), "/"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LiqPayPublicKey:   k.String("LIQPAY_PUBLIC_KEY"),
		LiqPayPrivateKey:  k.String("LIQPAY_PRIVATE_KEY"),
		WayForPayMerchant: k.String("WAYFORPAY_MERCHANT_ACCOUNT"),
		WayForPaySecret:   k.String("WAYFORPAY_MERCHANT_SECRET"),
		Currency:          valueOrDefault(k.String("PAYMENT_CURRENCY"), "UAH"),
		AllowUnverified:   parseBool(k.String("ALLOW_UNVERIFIED_CALLBACKS")),

		SMTPHost:      k.String("SMTP_HOST"),
		SMTPPort:      valueOrDefault(k.String("SMTP_PORT"), "587"),
		SMTPUsername:  k.String("SMTP_USERNAME"),
		SMTPPassword:  k.String("SMTP_PASSWORD"),
		EmailFrom:     k.String("EMAIL_FROM"),
		EmailFromName: valueOrDefault(k.String("EMAIL_FROM_NAME"), "Anna Beauty School"),

		TelegramCourseLink: k.String("TELEGRAM_COURSE_LINK"),

		DedupeTTL:       parseDuration(k.String("EMAIL_DEDUPE_TTL"), "1h"),
		ReplayTTL:       parseDuration(k.String("CALLBACK_REPLAY_TTL"), "24h"),
		DispatchTimeout: parseDuration(k.String("EMAIL_DISPATCH_TIMEOUT"), "10s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		CheckoutRateLimit:  parseInt(k.String("CHECKOUT_RATE_LIMIT"), 30),
		CheckoutRateWindow: parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		TracingEnabled:  parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint: k.String("TRACING_ENDPOINT"),
		TracingRatio:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
		MetricsBuckets:  k.String("METRICS_BUCKETS_MS"),
	}

	if cfg.PublicBaseURL == "" {
		return nil, errors.New("PUBLIC_BASE_URL is required")
	}
	if cfg.AllowUnverified && cfg.IsProduction() {
		return nil, errors.New("ALLOW_UNVERIFIED_CALLBACKS must not be enabled in production")
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with a production environment tag.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
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
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var f float64
	if _, err := fmt.Sscanf(trimmed, "%g", &f); err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
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
