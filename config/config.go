package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Batch     BatchConfig
	Rules     RulesConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// FetchConfig controls the outbound page fetcher.
type FetchConfig struct {
	// UserAgent, Accept and AcceptLanguage form the client identity.
	UserAgent      string // default: desktop Chrome 120
	Accept         string
	AcceptLanguage string // default: "en-US,en;q=0.5"

	// ProductTimeout bounds a product page fetch.
	ProductTimeout time.Duration // default: 10s

	// SocialTimeout bounds a social profile fetch, in batches too.
	SocialTimeout time.Duration // default: 15s

	// MaxBodyBytes caps how much of each response is read.
	MaxBodyBytes int64 // default: 10 MiB

	// Proxy is an optional http(s) proxy URL.
	Proxy string

	// TLSProfile is "" (standard library TLS) or "chrome".
	TLSProfile string // default: ""

	// HostRPS paces requests per destination host; 0 disables pacing.
	HostRPS   float64 // default: 0
	HostBurst int     // default: 2
}

// BatchConfig controls follower batch extraction.
type BatchConfig struct {
	// Workers is the number of profiles fetched concurrently.
	Workers int // default: 5

	// MaxEntries is the largest batch the API accepts.
	MaxEntries int // default: 100
}

// RulesConfig points at optional platform rule overrides.
type RulesConfig struct {
	// File is a YAML rule file layered over the built-in platform rules.
	File string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the extraction response cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string // default: "memory"

	// MaxEntries is the maximum number of entries in the memory backend.
	MaxEntries int // default: 1000

	// TTL is how long entries are kept.
	TTL time.Duration // default: 1h

	RedisAddr     string // default: "localhost:6379"
	RedisPassword string
	RedisDB       int // default: 0
}

// WebhookConfig controls batch completion callbacks.
type WebhookConfig struct {
	// Timeout bounds each delivery attempt.
	Timeout time.Duration // default: 10s

	// RetryDelays are the waits before each retry.
	RetryDelays []time.Duration // default: [1s, 5s, 30s]
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SIGNAL_HOST", "0.0.0.0"),
			Port: envIntOr("SIGNAL_PORT", 8080),
			Mode: envOr("SIGNAL_MODE", "release"),
		},
		Fetch: FetchConfig{
			UserAgent:      envOr("SIGNAL_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Accept:         envOr("SIGNAL_ACCEPT", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"),
			AcceptLanguage: envOr("SIGNAL_ACCEPT_LANGUAGE", "en-US,en;q=0.5"),
			ProductTimeout: envDurationOr("SIGNAL_PRODUCT_TIMEOUT", 10*time.Second),
			SocialTimeout:  envDurationOr("SIGNAL_SOCIAL_TIMEOUT", 15*time.Second),
			MaxBodyBytes:   int64(envIntOr("SIGNAL_MAX_BODY_BYTES", 10<<20)),
			Proxy:          os.Getenv("SIGNAL_PROXY"),
			TLSProfile:     os.Getenv("SIGNAL_TLS_PROFILE"),
			HostRPS:        envFloatOr("SIGNAL_HOST_RPS", 0),
			HostBurst:      envIntOr("SIGNAL_HOST_BURST", 2),
		},
		Batch: BatchConfig{
			Workers:    envIntOr("SIGNAL_BATCH_WORKERS", 5),
			MaxEntries: envIntOr("SIGNAL_BATCH_MAX", 100),
		},
		Rules: RulesConfig{
			File: os.Getenv("SIGNAL_PLATFORM_RULES"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SIGNAL_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SIGNAL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SIGNAL_RATE_RPS", 5.0),
			Burst:             envIntOr("SIGNAL_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			Backend:       envOr("SIGNAL_CACHE_BACKEND", "memory"),
			MaxEntries:    envIntOr("SIGNAL_CACHE_MAX_ENTRIES", 1000),
			TTL:           envDurationOr("SIGNAL_CACHE_TTL", time.Hour),
			RedisAddr:     envOr("SIGNAL_REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("SIGNAL_REDIS_PASSWORD"),
			RedisDB:       envIntOr("SIGNAL_REDIS_DB", 0),
		},
		Webhook: WebhookConfig{
			Timeout:     envDurationOr("SIGNAL_WEBHOOK_TIMEOUT", 10*time.Second),
			RetryDelays: envDurationSliceOr("SIGNAL_WEBHOOK_RETRY_DELAYS", []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}),
		},
		Log: LogConfig{
			Level:  envOr("SIGNAL_LOG_LEVEL", "info"),
			Format: envOr("SIGNAL_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
