package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	// Outreach API (external SMS/campaign service)
	OutreachAPIURL  string
	OutreachTimeout time.Duration

	// SessionJWTSecret verifies HS256 access tokens issued by the auth provider.
	SessionJWTSecret   string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Watchlist behaviour
	ContactCooldown      time.Duration
	InFlightTTL          time.Duration
	SessionCacheSize     int
	ProgressPollInterval time.Duration

	// Outreach action rate limiting (per user)
	ActionRateLimit float64
	ActionRateBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		OutreachAPIURL:       strings.TrimRight(getEnv("OUTREACH_API_URL", "http://localhost:8000"), "/"),
		OutreachTimeout:      getEnvAsDuration("OUTREACH_TIMEOUT", 15*time.Second),
		SessionJWTSecret:     getEnv("SESSION_JWT_SECRET", ""),
		CORSAllowedOrigins:   getEnvAsList("CORS_ORIGINS"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		ContactCooldown:      getEnvAsDuration("CONTACT_COOLDOWN", 24*time.Hour),
		InFlightTTL:          getEnvAsDuration("INFLIGHT_TTL", 30*time.Second),
		SessionCacheSize:     getEnvAsInt("SESSION_CACHE_SIZE", 1024),
		ProgressPollInterval: getEnvAsDuration("PROGRESS_POLL_INTERVAL", 3*time.Second),
		ActionRateLimit:      getEnvAsFloat("ACTION_RATE_LIMIT", 1),
		ActionRateBurst:      getEnvAsInt("ACTION_RATE_BURST", 5),
	}
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
