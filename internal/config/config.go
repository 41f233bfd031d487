package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const minSessionSecretLength = 16

type Config struct {
	// HTTP Server
	Port               string
	CORSAllowedOrigins []string
	LoginRateLimit     int
	// TrustedProxies may set X-Forwarded-For, in addition to private networks.
	TrustedProxies     []string

	// Database
	SQLiteDBPath      string
	SQLiteBusyTimeout time.Duration

	// Session
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SummaryCacheTTL time.Duration
	LogLevel        string

	// ParamsFile points at optional YAML site parameters.
	ParamsFile string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		LoginRateLimit:     getEnvInt("LOGIN_RATE_LIMIT", 20),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/budgetbook.db"),
		SQLiteBusyTimeout: getEnvDuration("SQLITE_BUSY_TIMEOUT", 5*time.Second),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", time.Minute),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		ParamsFile: getEnv("PARAMS_FILE", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if c.SQLiteBusyTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid SQLite busy timeout %v: must not be negative", c.SQLiteBusyTimeout))
	}

	if len(c.SessionSecret) < minSessionSecretLength {
		errors = append(errors, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s'", origin))
		}
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.LoginRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate limit %d: must be at least 1", c.LoginRateLimit))
	}
	if c.SummaryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must not be negative", c.SummaryCacheTTL))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if c.ParamsFile != "" {
		if _, err := os.Stat(c.ParamsFile); err != nil {
			errors = append(errors, fmt.Sprintf("params file '%s' is not readable: %v", c.ParamsFile, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether ledger events go to a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
