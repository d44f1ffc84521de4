package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Remote key-value store. Both must be set to enable it.
	KVURL        string
	KVToken      string
	KVTimeout    time.Duration
	KVMessageTTL time.Duration

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations

	// Proxies allowed to report the client address in X-Forwarded-For
	TrustedProxies []string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		KVURL:              strings.TrimSpace(os.Getenv("KV_URL")),
		KVToken:            strings.TrimSpace(os.Getenv("KV_TOKEN")),
		KVTimeout:          getDuration("KV_TIMEOUT", 2*time.Second),
		KVMessageTTL:       getDuration("KV_MESSAGE_TTL", 0),
		AutoBlockEnabled:   getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
		RateLimitWhitelist: splitList(os.Getenv("RATE_LIMIT_WHITELIST")),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	// In production, require the remote store
	if cfg.Env == "production" {
		if cfg.KVURL == "" {
			panic("KV_URL is required in production")
		}
		if cfg.KVToken == "" {
			panic("KV_TOKEN is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// KVConfigured reports whether both the remote endpoint and credential are set.
func (c *Config) KVConfigured() bool {
	return c.KVURL != "" && c.KVToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration, falling back on empty or invalid input.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
