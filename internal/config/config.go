package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	LogLevel string

	// Backend
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Circuit breaker
	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration

	// Observability
	OTLPEndpoint string // empty disables the exporter

	// Session persistence
	SessionDBPath string

	// Screens
	LeadsPageSize     int
	ContactSource     string
	ContactSuccessTTL time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "warn"),

		APIBaseURL:  strings.TrimRight(getEnv("CRM_API_URL", "http://localhost:8080"), "/"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		BreakerMaxRequests: uint32(getEnvInt("BREAKER_MAX_REQUESTS", 3)),
		BreakerTimeout:     getEnvDuration("BREAKER_TIMEOUT", 10*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SessionDBPath: getEnv("CRM_SESSION_DB", defaultSessionDBPath()),

		LeadsPageSize:     getEnvInt("LEADS_PAGE_SIZE", 10),
		ContactSource:     getEnv("CONTACT_SOURCE", "portfolio_v2"),
		ContactSuccessTTL: getEnvDuration("CONTACT_SUCCESS_TTL", 5*time.Second),
	}
}

func defaultSessionDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".crmctl-session.db"
	}
	return filepath.Join(dir, "crmctl", "session.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
