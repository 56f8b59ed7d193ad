package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BACKEND_URL", "HTTP_TIMEOUT", "LOG_LEVEL", "TICK_INTERVAL",
		"USER_ID", "USER_NAME", "USER_ROLE", "SANDBOX_ADDR", "SANDBOX_DB_PATH",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "http://localhost/seriousgame/public", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, "player", cfg.UserRole)
	assert.Equal(t, ":8080", cfg.SandboxAddr)
	assert.Equal(t, "periogame.db", cfg.SandboxDBPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://quiz.example.test/api")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("USER_ID", "user-7")
	t.Setenv("USER_NAME", "Dana")

	cfg := Load()

	assert.Equal(t, "http://quiz.example.test/api", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "user-7", cfg.UserID)
	assert.Equal(t, "Dana", cfg.UserName)
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soonish")

	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	valid := Config{
		BackendURL:    "http://localhost:8080",
		HTTPTimeout:   15 * time.Second,
		TickInterval:  time.Second,
		SandboxAddr:   ":8080",
		SandboxDBPath: "periogame.db",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"empty backend url", func(c *Config) { c.BackendURL = "" }, "BACKEND_URL"},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, "HTTP_TIMEOUT"},
		{"negative tick", func(c *Config) { c.TickInterval = -time.Second }, "TICK_INTERVAL"},
		{"empty sandbox addr", func(c *Config) { c.SandboxAddr = "" }, "SANDBOX_ADDR"},
		{"empty sandbox db path", func(c *Config) { c.SandboxDBPath = "" }, "SANDBOX_DB_PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
