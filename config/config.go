// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DBPath string `mapstructure:"DB_PATH"`

	// Redis result cache. Empty disables caching.
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// HTTP
	CORSOrigins string `mapstructure:"CORS_ORIGINS"` // comma separated

	// Statistics
	StatsTimeout time.Duration `mapstructure:"STATS_TIMEOUT"`

	// Background ledger audit. Zero disables it.
	AuditInterval time.Duration `mapstructure:"AUDIT_INTERVAL"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	return load(".")
}

func load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	// Sensible defaults for development
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "./data/stock.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("STATS_TIMEOUT", "30s")
	v.SetDefault("AUDIT_INTERVAL", "1h")

	// Optional .env file for local development; missing is fine
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AllowedOrigins splits CORS_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
