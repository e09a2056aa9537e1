package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SweepInterval converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SweepIntervalSeconds: 300}
		assert.Equal(t, 300*time.Second, cfg.SweepInterval())
	})

	t.Run("LogRetention converts days to duration", func(t *testing.T) {
		cfg := &Config{LogRetentionDays: 90}
		assert.Equal(t, 90*24*time.Hour, cfg.LogRetention())
	})
}

func TestValidate(t *testing.T) {
	t.Run("weak admin token fails in production", func(t *testing.T) {
		cfg := &Config{AdminToken: "secret", SweepIntervalSeconds: 300}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("short admin token fails in production", func(t *testing.T) {
		cfg := &Config{AdminToken: "short", SweepIntervalSeconds: 300}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("weak admin token passes outside production", func(t *testing.T) {
		cfg := &Config{AdminToken: "secret", SweepIntervalSeconds: 300}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("strong admin token passes in production", func(t *testing.T) {
		cfg := &Config{AdminToken: "0123456789abcdef0123456789abcdef", SweepIntervalSeconds: 300}
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                   os.Getenv("PORT"),
		"DATABASE_URL":           os.Getenv("DATABASE_URL"),
		"REDIS_URL":              os.Getenv("REDIS_URL"),
		"ADMIN_TOKEN":            os.Getenv("ADMIN_TOKEN"),
		"SWEEP_INTERVAL_SECONDS": os.Getenv("SWEEP_INTERVAL_SECONDS"),
		"LOG_RETENTION_DAYS":     os.Getenv("LOG_RETENTION_DAYS"),
		"LOG_LEVEL":              os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("ADMIN_TOKEN", "test-token")
		os.Unsetenv("PORT")
		os.Unsetenv("SWEEP_INTERVAL_SECONDS")
		os.Unsetenv("LOG_RETENTION_DAYS")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 300, cfg.SweepIntervalSeconds)
		assert.Equal(t, 90, cfg.LogRetentionDays)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("ADMIN_TOKEN", "test-token")
		os.Setenv("PORT", "3000")
		os.Setenv("SWEEP_INTERVAL_SECONDS", "60")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 60, cfg.SweepIntervalSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("ADMIN_TOKEN", "test-token")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required ADMIN_TOKEN", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("ADMIN_TOKEN")

		_, err := Load()
		assert.Error(t, err)
	})
}
