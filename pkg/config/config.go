package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/platinummonkey/grafana-sync/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Auth0 configuration
	Auth0 Auth0Config

	// Grafana configuration
	Grafana GrafanaConfig

	// Signing configuration for datasource credentials
	Signing SigningConfig

	// Sync loop configuration
	Sync SyncConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Auth0Config holds identity provider settings
type Auth0Config struct {
	Domain       string
	Audience     string
	ClientID     string
	ClientSecret string
}

// GrafanaConfig holds dashboard platform settings
type GrafanaConfig struct {
	URL      string
	Username string
	Password string
}

// SigningConfig holds datasource token signing settings
type SigningConfig struct {
	Algorithm string
	Secret    string
}

// SyncConfig holds reconciliation loop settings
type SyncConfig struct {
	Interval         time.Duration
	RateLimitBackoff time.Duration
	RateLimitRetries int
	// IdentityRPS paces Auth0 lookups, 0 disables pacing
	IdentityRPS float64
	// AdminCacheTTL bounds admin membership staleness, 0 never expires
	AdminCacheTTL time.Duration
	HTTPTimeout   time.Duration
	RunOnce       bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Ops server (metrics and health probes), empty disables it
	OpsAddr string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is read first when present; it never overrides variables that are
// already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Auth0:         loadAuth0Config(),
		Grafana:       loadGrafanaConfig(),
		Signing:       loadSigningConfig(),
		Sync:          loadSyncConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadAuth0Config loads identity provider configuration from environment
func loadAuth0Config() Auth0Config {
	domain := strings.TrimRight(getEnv("AUTH0_DOMAIN", "https://screepsplus.auth0.com"), "/")
	return Auth0Config{
		Domain:       domain,
		Audience:     getEnv("AUTH0_AUDIENCE", domain+"/api/v2/"),
		ClientID:     getEnv("AUTH0_CLIENT_ID", ""),
		ClientSecret: getEnv("AUTH0_CLIENT_SECRET", ""),
	}
}

// loadGrafanaConfig loads dashboard configuration from environment
func loadGrafanaConfig() GrafanaConfig {
	return GrafanaConfig{
		URL:      getEnv("GRAFANA_URL", ""),
		Username: getEnv("GRAFANA_USERNAME", ""),
		Password: getEnv("GRAFANA_PASSWORD", ""),
	}
}

// loadSigningConfig loads signing configuration from environment
func loadSigningConfig() SigningConfig {
	return SigningConfig{
		Algorithm: getEnv("JWT_ALGORITHM", "HS256"),
		Secret:    getEnv("JWT_SECRET", ""),
	}
}

// loadSyncConfig loads loop configuration from environment
func loadSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:         getEnvDuration("SYNC_INTERVAL", 10*time.Second),
		RateLimitBackoff: getEnvDuration("SYNC_RATE_LIMIT_BACKOFF", time.Second),
		RateLimitRetries: getEnvInt("SYNC_RATE_LIMIT_RETRIES", 5),
		IdentityRPS:      getEnvFloat("SYNC_IDENTITY_RPS", 0),
		AdminCacheTTL:    getEnvDuration("SYNC_ADMIN_CACHE_TTL", 0),
		HTTPTimeout:      getEnvDuration("SYNC_HTTP_TIMEOUT", 0),
		RunOnce:          getEnvBool("SYNC_RUN_ONCE", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("SYNC_LOG_LEVEL", "info")),
		OpsAddr:            getEnvAllowEmpty("SYNC_OPS_ADDR", ":9090"),
		MetricsEnabled:     getEnvBool("SYNC_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SYNC_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SYNC_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SYNC_OTEL_SERVICE_NAME", "grafana-sync"),
		OTelServiceVersion: getEnv("SYNC_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SYNC_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Auth0.ClientID == "" {
		return fmt.Errorf("AUTH0_CLIENT_ID is required")
	}
	if c.Auth0.ClientSecret == "" {
		return fmt.Errorf("AUTH0_CLIENT_SECRET is required")
	}
	if !strings.HasPrefix(c.Auth0.Domain, "http://") && !strings.HasPrefix(c.Auth0.Domain, "https://") {
		return fmt.Errorf("AUTH0_DOMAIN must be an http(s) URL: %s", c.Auth0.Domain)
	}

	if c.Grafana.URL == "" {
		return fmt.Errorf("GRAFANA_URL is required")
	}
	if c.Grafana.Username == "" {
		return fmt.Errorf("GRAFANA_USERNAME is required")
	}

	if c.Signing.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.Sync.RateLimitBackoff < 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT_BACKOFF must not be negative")
	}
	if c.Sync.RateLimitRetries < 0 {
		return fmt.Errorf("SYNC_RATE_LIMIT_RETRIES must not be negative")
	}
	if c.Sync.IdentityRPS < 0 {
		return fmt.Errorf("SYNC_IDENTITY_RPS must not be negative")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is like getEnv but an explicitly empty variable wins over the default
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
