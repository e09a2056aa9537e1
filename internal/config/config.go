package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakTokens = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password", "token",
}

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	AdminToken           string `env:"ADMIN_TOKEN,required"`
	SweepIntervalSeconds int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"300"`
	LogRetentionDays     int    `env:"LOG_RETENTION_DAYS" envDefault:"90"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.LogRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks for obviously unsafe settings. The admin token is a
// static shared secret, not a real auth scheme; the least we can do is
// refuse weak values in production.
func (c *Config) Validate(isProduction bool) error {
	if isProduction {
		if len(c.AdminToken) < 32 {
			return fmt.Errorf("ADMIN_TOKEN must be at least 32 characters in production (generate with: openssl rand -base64 32)")
		}
		for _, weak := range knownWeakTokens {
			if c.AdminToken == weak {
				return fmt.Errorf("ADMIN_TOKEN is a known weak default; set a strong secret in production")
			}
		}
	}

	if c.SweepIntervalSeconds < 10 {
		log.Warn().Int("seconds", c.SweepIntervalSeconds).Msg("SWEEP_INTERVAL_SECONDS is very low: the sweep will hammer the database")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
