// Package config provides environment configuration for the chat client
// and the stand-in server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Reconnect policies.
const (
	ReconnectBackoff = "backoff"
	ReconnectFixed   = "fixed"
)

// Config holds all configuration for the application.
type Config struct {
	// Client settings
	APIBaseURL  string
	SessionFile string
	HTTPTimeout time.Duration
	DialTimeout time.Duration

	// Live channel retry
	ReconnectPolicy   string
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration

	// Chat timings
	TypingIdle         time.Duration
	UnreadPollInterval time.Duration

	// Server settings (stand-in backend)
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	SeedDemo           bool
	// AllowedOrigins are browser origin host patterns, e.g. "becayis.gov.tr"
	AllowedOrigins []string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Client
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080/api"),
		SessionFile: getEnv("SESSION_FILE", defaultSessionFile()),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		DialTimeout: getDurationEnv("DIAL_TIMEOUT", 10*time.Second),

		// Live channel retry
		ReconnectPolicy:   getEnv("RECONNECT_POLICY", ReconnectBackoff),
		ReconnectDelay:    getDurationEnv("RECONNECT_DELAY", 3*time.Second),
		ReconnectMaxDelay: getDurationEnv("RECONNECT_MAX_DELAY", 30*time.Second),

		// Chat timings
		TypingIdle:         getDurationEnv("TYPING_IDLE", 2*time.Second),
		UnreadPollInterval: getDurationEnv("UNREAD_POLL_INTERVAL", 30*time.Second),

		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		SeedDemo:           getBoolEnv("SEED_DEMO", false),
		AllowedOrigins:     getListEnv("ALLOWED_ORIGINS", []string{"localhost:*", "127.0.0.1:*"}),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".becayis-session.json"
	}
	return dir + string(os.PathSeparator) + "becayis" + string(os.PathSeparator) + "session.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
