// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq-backed scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepCron() string
}

// LeadPolicyConfig provides the business rules of the lead lifecycle.
type LeadPolicyConfig interface {
	GetStaleThresholdDays() int
	GetFallbackOwnerID() uuid.UUID
	GetBusinessLocation() *time.Location
	GetPhoneDefaultRegion() string
	GetShippingInTotal() bool
}

// ImportConfig bounds bulk ingestion.
type ImportConfig interface {
	GetImportMaxRows() int
	GetImportTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	MigrationsEnabled  bool
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	SweepCron          string
	StaleThresholdDays int
	FallbackOwnerID    uuid.UUID
	BusinessTimezone   string
	BusinessLocation   *time.Location
	PhoneDefaultRegion string
	ShippingInTotal    bool
	ImportMaxRows      int
	ImportTimeout      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSweepCron() string      { return c.SweepCron }

// LeadPolicyConfig implementation
func (c *Config) GetStaleThresholdDays() int          { return c.StaleThresholdDays }
func (c *Config) GetFallbackOwnerID() uuid.UUID       { return c.FallbackOwnerID }
func (c *Config) GetBusinessLocation() *time.Location { return c.BusinessLocation }
func (c *Config) GetPhoneDefaultRegion() string       { return c.PhoneDefaultRegion }
func (c *Config) GetShippingInTotal() bool            { return c.ShippingInTotal }

// ImportConfig implementation
func (c *Config) GetImportMaxRows() int           { return c.ImportMaxRows }
func (c *Config) GetImportTimeout() time.Duration { return c.ImportTimeout }

// Load reads configuration from environment variables.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MigrationsEnabled:  strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "2"), 2),
		SweepCron:          getEnv("SWEEP_CRON", "0 6 * * *"),
		StaleThresholdDays: mustInt(getEnv("STALE_THRESHOLD_DAYS", "20"), 20),
		BusinessTimezone:   getEnv("BUSINESS_TIMEZONE", "Asia/Shanghai"),
		PhoneDefaultRegion: strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "CN")),
		ShippingInTotal:    strings.EqualFold(getEnv("PRICING_SHIPPING_IN_TOTAL", "false"), "true"),
		ImportMaxRows:      mustInt(getEnv("IMPORT_MAX_ROWS", "5000"), 5000),
		ImportTimeout:      mustDuration(getEnv("IMPORT_TIMEOUT", "60s"), time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	fallback, err := uuid.Parse(strings.TrimSpace(getEnv("FALLBACK_OWNER_ID", "")))
	if err != nil {
		return nil, fmt.Errorf("FALLBACK_OWNER_ID must be a valid uuid: %w", err)
	}
	cfg.FallbackOwnerID = fallback

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	cfg.BusinessLocation = loc

	if cfg.StaleThresholdDays < 1 {
		return nil, fmt.Errorf("STALE_THRESHOLD_DAYS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
