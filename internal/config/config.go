package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL    string        // base URL of the quiz backend
	HTTPTimeout   time.Duration // per-request timeout for backend calls
	LogLevel      string
	TickInterval  time.Duration // elapsed-time display refresh interval
	UserID        string        // persisted authenticated-user descriptor
	UserName      string
	UserRole      string
	SandboxAddr   string // listen address for the local sandbox backend
	SandboxDBPath string
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the CLI still works when .env is absent.
	_ = godotenv.Load()

	return Config{
		BackendURL:    envOr("BACKEND_URL", "http://localhost/seriousgame/public"),
		HTTPTimeout:   envDurationOr("HTTP_TIMEOUT", 15*time.Second),
		LogLevel:      envOr("LOG_LEVEL", "INFO"),
		TickInterval:  envDurationOr("TICK_INTERVAL", time.Second),
		UserID:        envOr("USER_ID", ""),
		UserName:      envOr("USER_NAME", ""),
		UserRole:      envOr("USER_ROLE", "player"),
		SandboxAddr:   envOr("SANDBOX_ADDR", ":8080"),
		SandboxDBPath: envOr("SANDBOX_DB_PATH", "periogame.db"),
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.SandboxAddr == "" {
		return fmt.Errorf("SANDBOX_ADDR cannot be empty")
	}
	if c.SandboxDBPath == "" {
		return fmt.Errorf("SANDBOX_DB_PATH cannot be empty")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}
