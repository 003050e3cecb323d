package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// GatewayConfig holds everything the gateway client needs. It is built once
// here and injected at construction; the client never reads the environment.
type GatewayConfig struct {
	BaseURL         string
	APIKey          string
	APISecret       string
	CallbackBaseURL string
	Timeout         time.Duration
}

type Config struct {
	Port string

	DBHost    string
	DBPort    string
	DBUser    string
	DBPass    string
	DBName    string
	DBSSLMode string

	Gateway GatewayConfig

	// PollInterval / PollMaxAttempts bound the caller-side confirmation loop.
	PollInterval    time.Duration
	PollMaxAttempts int

	// PendingGrace is how long an ambiguous submission (no gateway txn id)
	// may stay PENDING before the reconciler fails it.
	PendingGrace time.Duration

	// Sweep settings: RetryAge is the minimum age before the sweep re-confirms
	// a PENDING row; ExpireAge is the age at which it becomes EXPIRED.
	SweepInterval time.Duration
	SweepRetryAge time.Duration
	SweepExpire   time.Duration
}

// Load reads configuration from the environment, merging in a .env file if
// present without overwriting variables that are already set.
func Load() (*Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DBHost:    getEnv("DB_HOST", "localhost"),
		DBPort:    getEnv("DB_PORT", "5432"),
		DBUser:    getEnv("DB_USER", "postgres"),
		DBPass:    getEnv("DB_PASS", "postgres"),
		DBName:    getEnv("DB_NAME", "donations"),
		DBSSLMode: getEnv("DB_SSLMODE", "disable"),
		Gateway: GatewayConfig{
			BaseURL:         getEnv("GATEWAY_BASE_URL", ""),
			APIKey:          getEnv("GATEWAY_API_KEY", ""),
			APISecret:       getEnv("GATEWAY_API_SECRET", ""),
			CallbackBaseURL: getEnv("CALLBACK_BASE_URL", ""),
			Timeout:         getEnvSeconds("GATEWAY_TIMEOUT_SECONDS", 5*time.Second),
		},
		PollInterval:    getEnvSeconds("POLL_INTERVAL_SECONDS", 5*time.Second),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 6),
		PendingGrace:    getEnvSeconds("PENDING_GRACE_SECONDS", 90*time.Second),
		SweepInterval:   getEnvSeconds("SWEEP_INTERVAL_SECONDS", 60*time.Second),
		SweepRetryAge:   getEnvMinutes("SWEEP_RETRY_AGE_MINUTES", 2*time.Minute),
		SweepExpire:     getEnvHours("SWEEP_EXPIRE_AGE_HOURS", 24*time.Hour),
	}

	for _, required := range []struct{ key, val string }{
		{"GATEWAY_BASE_URL", cfg.Gateway.BaseURL},
		{"GATEWAY_API_KEY", cfg.Gateway.APIKey},
		{"GATEWAY_API_SECRET", cfg.Gateway.APISecret},
		{"CALLBACK_BASE_URL", cfg.Gateway.CallbackBaseURL},
	} {
		if required.val == "" {
			return nil, fmt.Errorf("required environment variable %s is not set", required.key)
		}
	}

	return cfg, nil
}

// DSN returns the postgres connection string for the pgx stdlib driver.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	if v := getEnvInt(key, -1); v > 0 {
		return time.Duration(v) * time.Second
	}
	return def
}

func getEnvMinutes(key string, def time.Duration) time.Duration {
	if v := getEnvInt(key, -1); v > 0 {
		return time.Duration(v) * time.Minute
	}
	return def
}

func getEnvHours(key string, def time.Duration) time.Duration {
	if v := getEnvInt(key, -1); v > 0 {
		return time.Duration(v) * time.Hour
	}
	return def
}
