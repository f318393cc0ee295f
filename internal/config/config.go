// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/solvine-ai/solvine/internal/model"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// HEAD agent.
	HeadAgent     string
	HeadRole      string
	HeadStability float64

	// MockCatalogPath replaces the embedded MOCK catalog when set.
	MockCatalogPath string
	// DefaultStability is assigned when a create request omits stability.
	DefaultStability float64

	// Storage settings.
	Store       string // "memory", "sqlite", or "postgres"
	SQLitePath  string
	DatabaseURL string

	// Auth settings. Mutating routes are open when AdminAPIKey is empty.
	AdminAPIKey       string
	JWTPrivateKeyPath string // Path to Ed25519 private key PEM file.
	JWTPublicKeyPath  string // Path to Ed25519 public key PEM file.
	JWTExpiration     time.Duration

	// Rate limiting.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	CORSAllowedOrigins []string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Parse reads configuration from environment variables without validating
// it, so callers can apply overrides first. Every malformed variable is
// reported, not only the first.
func Parse() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var cfg Config
	var err error

	cfg.Port, err = envInt("SOLVINE_PORT", 8080)
	collect(err)
	cfg.ReadTimeout, err = envDuration("SOLVINE_READ_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("SOLVINE_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.ShutdownTimeout, err = envDuration("SOLVINE_SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)

	cfg.HeadAgent = envStr("SOLVINE_HEAD_AGENT", "jasper")
	cfg.HeadRole = envStr("SOLVINE_HEAD_ROLE", "Head Agent & Coordinator")
	cfg.HeadStability, err = envFloat("SOLVINE_HEAD_STABILITY", 0.85)
	collect(err)
	cfg.MockCatalogPath = envStr("SOLVINE_MOCK_CATALOG", "")
	cfg.DefaultStability, err = envFloat("SOLVINE_DEFAULT_STABILITY", 0.8)
	collect(err)

	cfg.Store = strings.ToLower(envStr("SOLVINE_STORE", StoreMemory))
	cfg.SQLitePath = envStr("SOLVINE_SQLITE_PATH", "solvine.db")
	cfg.DatabaseURL = envStr("DATABASE_URL", "")

	cfg.AdminAPIKey = envStr("SOLVINE_ADMIN_API_KEY", "")
	cfg.JWTPrivateKeyPath = envStr("SOLVINE_JWT_PRIVATE_KEY", "")
	cfg.JWTPublicKeyPath = envStr("SOLVINE_JWT_PUBLIC_KEY", "")
	cfg.JWTExpiration, err = envDuration("SOLVINE_JWT_EXPIRATION", 24*time.Hour)
	collect(err)

	cfg.RateLimitEnabled, err = envBool("SOLVINE_RATE_LIMIT_ENABLED", true)
	collect(err)
	cfg.RateLimitRPS, err = envFloat("SOLVINE_RATE_LIMIT_RPS", 10)
	collect(err)
	cfg.RateLimitBurst, err = envInt("SOLVINE_RATE_LIMIT_BURST", 30)
	collect(err)

	cfg.CORSAllowedOrigins = envList("SOLVINE_CORS_ALLOWED_ORIGINS", []string{"*"})

	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "solvine")
	cfg.OTELInsecure, err = envBool("SOLVINE_OTEL_INSECURE", false)
	collect(err)

	cfg.LogLevel = envStr("SOLVINE_LOG_LEVEL", "info")
	bodyBytes, err := envInt("SOLVINE_MAX_REQUEST_BODY_BYTES", 1*1024*1024) // 1 MB default
	collect(err)
	cfg.MaxRequestBodyBytes = int64(bodyBytes)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: SOLVINE_PORT must be between 1 and 65535")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: SOLVINE_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if err := model.ValidateName(model.NormalizeName(c.HeadAgent)); err != nil {
		return fmt.Errorf("config: SOLVINE_HEAD_AGENT: %w", err)
	}
	if err := model.ValidateStability(c.HeadStability); err != nil {
		return fmt.Errorf("config: SOLVINE_HEAD_STABILITY: %w", err)
	}
	if err := model.ValidateStability(c.DefaultStability); err != nil {
		return fmt.Errorf("config: SOLVINE_DEFAULT_STABILITY: %w", err)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when SOLVINE_STORE=postgres")
		}
	default:
		return fmt.Errorf("config: SOLVINE_STORE %q is not one of memory, sqlite, postgres", c.Store)
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("config: SOLVINE_SQLITE_PATH is required when SOLVINE_STORE=sqlite")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: SOLVINE_RATE_LIMIT_RPS and SOLVINE_RATE_LIMIT_BURST must be positive")
	}
	if c.JWTExpiration <= 0 {
		return fmt.Errorf("config: SOLVINE_JWT_EXPIRATION must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
