package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "WalletEngine"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultCatalogCacheTTL = 5 * time.Minute
	defaultLockTimeout     = 5 * time.Second
	defaultNotifyTimeout   = 2 * time.Second
	defaultMaxTxRetries    = 3
	defaultSpendRateLimit  = 30
	defaultCurrency        = "NGN"
	defaultKafkaTopic      = "wallet.events"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	DBMaxConns     int32
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	IdentityJWTSecret string
	// ServiceKeyHash is the bcrypt hash operators' X-Service-Key is checked against.
	ServiceKeyHash []byte

	PaystackSecretKey   string
	StripeWebhookSecret string
	DefaultCurrency     string

	CatalogCacheTTL time.Duration
	LockTimeout     time.Duration
	NotifyTimeout   time.Duration
	MaxTxRetries    int
	SpendRateLimit  int

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		IdentityJWTSecret:   os.Getenv("IDENTITY_JWT_SECRET"),
		PaystackSecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		DefaultCurrency:     strings.ToUpper(getEnv("DEFAULT_CURRENCY", defaultCurrency)),
		KafkaTopic:          getEnv("KAFKA_TOPIC", defaultKafkaTopic),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.CatalogCacheTTL, err = durationEnv("CATALOG_CACHE_TTL", defaultCatalogCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = durationEnv("LOCK_TIMEOUT", defaultLockTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NotifyTimeout, err = durationEnv("NOTIFY_TIMEOUT", defaultNotifyTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxTxRetries, err = intEnv("MAX_TX_RETRIES", defaultMaxTxRetries); err != nil {
		return Config{}, err
	}
	maxConns, err := intEnv("DB_MAX_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)
	if cfg.SpendRateLimit, err = intEnv("SPEND_RATE_LIMIT_PER_MIN", defaultSpendRateLimit); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SERVICE_KEY_HASH"); v != "" {
		cfg.ServiceKeyHash = []byte(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.IdentityJWTSecret == "" {
			return Config{}, fmt.Errorf("IDENTITY_JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a local environment, where Postgres
// and Redis are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as an integer or KEY as a Go duration.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// maskSecret renders a secret for logs as presence and length only.
func maskSecret(s string) string {
	if s == "" {
		return "<unset>"
	}
	return fmt.Sprintf("<set, %d bytes>", len(s))
}

// LogValue implements slog.LogValuer without leaking secrets.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("app", c.AppName),
		slog.String("env", c.AppEnv),
		slog.String("port", c.Port),
		slog.Bool("postgres", c.DatabaseURL != ""),
		slog.Bool("redis", c.RedisURL != ""),
		slog.Int("kafka_brokers", len(c.KafkaBrokers)),
		slog.String("identity_secret", maskSecret(c.IdentityJWTSecret)),
		slog.String("paystack_secret", maskSecret(c.PaystackSecretKey)),
		slog.String("stripe_secret", maskSecret(c.StripeWebhookSecret)),
		slog.Int("max_tx_retries", c.MaxTxRetries),
	)
}
