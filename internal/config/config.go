// Package config loads storefront settings from the environment, an optional
// .env file and an optional YAML file named by CONFIG_FILE. Environment
// variables win over the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCatalogURL = "https://dudeabides.wopr.systems/graphql/"
	DefaultChannel    = "the-dude-abides-shop"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	Catalog   CatalogConfig
	Stripe    StripeConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Database  DatabaseConfig
	Log       LogConfig
	Telemetry TelemetryConfig

	PricingPolicy string
}

type CatalogConfig struct {
	APIURL             string
	Channel            string
	FeaturedSlug       string
	MediaInternalHosts []string
	MediaPublicURL     string
	Timeout            time.Duration
}

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Timeout        time.Duration
	// MaxRetries is the processor client's network retry count. Zero disables
	// retries.
	MaxRetries int64
}

type RedisConfig struct {
	Addr           string
	Password       string
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type DatabaseConfig struct {
	Driver         string
	Path           string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

type LogConfig struct {
	Level string
	Env   string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Stdout       bool
}

// source resolves a key from the environment, then the YAML file.
type source struct {
	file map[string]string
	errs []error
}

func (s *source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s *source) duration(key string, defaultValue time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func (s *source) int(key string, defaultValue int) int {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func (s *source) bool(key string) bool {
	b, _ := strconv.ParseBool(s.get(key, "false"))
	return b
}

func (s *source) list(key string) []string {
	var out []string
	for _, part := range strings.Split(s.get(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the
// environment. Malformed numbers and durations are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	src := &source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := &Config{
		HTTPPort:           src.get("HTTP_PORT", "8080"),
		RequestTimeout:     src.duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    src.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(src.int("MAX_REQUEST_BODY_BYTES", 1<<20)), // 1MB
		Catalog: CatalogConfig{
			APIURL:             src.get("SALEOR_API_URL", DefaultCatalogURL),
			Channel:            src.get("SALEOR_CHANNEL", DefaultChannel),
			FeaturedSlug:       src.get("SALEOR_FEATURED_COLLECTION", "featured"),
			MediaInternalHosts: src.list("SALEOR_MEDIA_INTERNAL_HOSTS"),
			MediaPublicURL:     src.get("SALEOR_MEDIA_PUBLIC_URL", ""),
			Timeout:            src.duration("CATALOG_TIMEOUT", 10*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:      src.get("STRIPE_SECRET_KEY", ""),
			PublishableKey: src.get("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:  src.get("STRIPE_WEBHOOK_SECRET", ""),
			Timeout:        src.duration("PAYMENT_TIMEOUT", 15*time.Second),
			MaxRetries:     int64(src.int("STRIPE_MAX_RETRIES", 0)),
		},
		Redis: RedisConfig{
			Addr:           src.get("REDIS_ADDR", ""),
			Password:       src.get("REDIS_PASSWORD", ""),
			IdempotencyTTL: src.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: src.list("KAFKA_BROKERS"),
			Topic:   src.get("KAFKA_TOPIC", "checkout-events"),
		},
		Database: DatabaseConfig{
			Driver:         src.get("DATABASE_DRIVER", "sqlite"),
			Path:           src.get("DB_PATH", "./storefront.db"),
			Host:           src.get("DB_HOST", "localhost"),
			Port:           src.int("DB_PORT", 5432),
			User:           src.get("DB_USER", "postgres"),
			Password:       src.get("DB_PASSWORD", "postgres"),
			Name:           src.get("DB_NAME", "storefront"),
			MigrationsPath: src.get("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},
		Log: LogConfig{
			Level: src.get("LOG_LEVEL", "info"),
			Env:   src.get("APP_ENV", "development"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: src.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Stdout:       src.bool("OTEL_TRACES_STDOUT"),
		},
		PricingPolicy: src.get("PRICING_POLICY", "fail-open"),
	}

	if len(src.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(src.errs...))
	}
	return cfg, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// Validate rejects settings the storefront cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.PricingPolicy) {
	case "fail-open", "fail-closed":
	default:
		errs = append(errs, fmt.Errorf("PRICING_POLICY must be fail-open or fail-closed, got %q", c.PricingPolicy))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}

	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Catalog.APIURL == "" {
		errs = append(errs, errors.New("SALEOR_API_URL is required"))
	}
	if c.Stripe.MaxRetries < 0 {
		errs = append(errs, errors.New("STRIPE_MAX_RETRIES must not be negative"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_BYTES must be positive"))
	}

	return errors.Join(errs...)
}
