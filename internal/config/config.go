// Package config loads fsmconv settings.
//
// Sources are applied in order, each overriding the previous one: built-in
// defaults, an optional YAML (or JSON) file, an optional .env file, then
// FSMCONV_-prefixed environment variables. Command-line flags are applied by
// the caller on top of the result.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/fsmconv/internal/logging"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/parser"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FSMCONV_"

// Config is the full application configuration.
type Config struct {
	Port           int             `yaml:"port" json:"port" env:"PORT"`
	Log            LogConfig       `yaml:"log" json:"log" envPrefix:"LOG_"`
	Limits         parser.Limits   `yaml:"limits" json:"limits" envPrefix:"LIMITS_"`
	Naming         string          `yaml:"naming" json:"naming" env:"NAMING"`
	SelfCheck      bool            `yaml:"self_check" json:"self_check" env:"SELF_CHECK"`
	AllowedOrigins []string        `yaml:"allowed_origins" json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	RateLimit      RateLimitConfig `yaml:"rate_limit" json:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

// RateLimitConfig configures per-client request limits on the HTTP API.
// A zero Limit disables rate limiting. With RedisURL set the counters are
// shared through Redis, otherwise they live in process memory.
type RateLimitConfig struct {
	Limit    int           `yaml:"limit" json:"limit" env:"LIMIT"`
	Window   time.Duration `yaml:"window" json:"window" env:"WINDOW"`
	RedisURL string        `yaml:"redis_url" json:"redis_url" env:"REDIS_URL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           8080,
		Log:            LogConfig{Level: "info", Format: string(logging.FormatText)},
		Limits:         parser.DefaultLimits,
		Naming:         convert.NamingSequential.String(),
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimit:      RateLimitConfig{Window: time.Minute},
	}
}

// Load builds a Config from the defaults, the file at path (skipped when
// path is empty), envFiles (".env" when none are given, ignored if missing)
// and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		// JSON has no duration literal; accept the window as a string.
		var raw struct {
			*Config
			RateLimit struct {
				RateLimitConfig
				Window string `json:"window"`
			} `json:"rate_limit"`
		}
		raw.Config = c
		raw.RateLimit.RateLimitConfig = c.RateLimit
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		c.RateLimit = raw.RateLimit.RateLimitConfig
		if raw.RateLimit.Window != "" {
			d, err := time.ParseDuration(raw.RateLimit.Window)
			if err != nil {
				return fmt.Errorf("failed to parse %s: rate_limit.window: %w", path, err)
			}
			c.RateLimit.Window = d
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	if _, err := convert.ParseNaming(c.Naming); err != nil {
		return err
	}
	if c.Limits.MaxBytes < 0 || c.Limits.MaxStates < 0 || c.Limits.MaxInputs < 0 {
		return errors.New("limits must not be negative")
	}
	if c.RateLimit.Limit < 0 {
		return fmt.Errorf("rate limit %d must not be negative", c.RateLimit.Limit)
	}
	if c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}
