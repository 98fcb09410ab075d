// Package config loads process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Addr           string
	RequestTimeout time.Duration

	JWTSigningKey string
	SessionTTL    time.Duration

	AdminUsername string
	AdminPassword string
	AdminTokenTTL time.Duration

	RedisURL    string
	PostgresDSN string

	KafkaBrokers string

	MatcherURL         string
	MatcherMaxInFlight int
	ScanWorkers        int

	GalleryDir string

	TerminalAPIKeys map[string]string
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything but external endpoints.
func FromEnv() Config {
	return Config{
		Addr:           envString("BIOENTRY_ADDR", ":8080"),
		RequestTimeout: envDuration("BIOENTRY_REQUEST_TIMEOUT", 60*time.Second),

		JWTSigningKey: envString("BIOENTRY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:    envDuration("BIOENTRY_SESSION_TTL", 2*time.Minute),

		AdminUsername: envString("BIOENTRY_ADMIN_USERNAME", "admin"),
		AdminPassword: envString("BIOENTRY_ADMIN_PASSWORD", "admin"),
		AdminTokenTTL: envDuration("BIOENTRY_ADMIN_TOKEN_TTL", 30*time.Minute),

		RedisURL:    envString("BIOENTRY_REDIS_URL", ""),
		PostgresDSN: envString("BIOENTRY_POSTGRES_DSN", ""),

		KafkaBrokers: envString("BIOENTRY_KAFKA_BROKERS", ""),

		MatcherURL:         envString("BIOENTRY_MATCHER_URL", "http://localhost:5000"),
		MatcherMaxInFlight: envInt("BIOENTRY_MATCHER_MAX_IN_FLIGHT", 4),
		ScanWorkers:        envInt("BIOENTRY_SCAN_WORKERS", 4),

		GalleryDir: envString("BIOENTRY_GALLERY_DIR", "data/gallery"),

		TerminalAPIKeys: parseKeyPairs(os.Getenv("BIOENTRY_TERMINAL_API_KEYS")),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// parseKeyPairs parses "terminal-1=key1,terminal-2=key2" into a map.
// Malformed entries are skipped.
func parseKeyPairs(raw string) map[string]string {
	pairs := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, key, ok := strings.Cut(entry, "=")
		if !ok || id == "" || key == "" {
			continue
		}
		pairs[id] = key
	}
	return pairs
}
