package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/fsmconv/internal/config"
	"github.com/aretw0/fsmconv/pkg/parser"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// noEnv points Load at an empty env file so a stray .env in the working
// directory cannot leak into the test.
func noEnv(t *testing.T) string {
	return write(t, ".env", "")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", noEnv(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, parser.DefaultLimits, cfg.Limits)
	assert.Equal(t, "sequential", cfg.Naming)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.RateLimit.Limit)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "fsmconv.yaml", `
port: 9090
log:
  level: debug
  format: json
limits:
  max_states: 16
naming: composite
rate_limit:
  limit: 30
  window: 10s
  redis_url: redis://localhost:6379/0
`)

	cfg, err := config.Load(path, noEnv(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 16, cfg.Limits.MaxStates)
	assert.Equal(t, parser.DefaultLimits.MaxBytes, cfg.Limits.MaxBytes)
	assert.Equal(t, "composite", cfg.Naming)
	assert.Equal(t, 30, cfg.RateLimit.Limit)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RateLimit.RedisURL)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "fsmconv.json", `{"port": 7070, "rate_limit": {"limit": 5, "window": "2m"}}`)

	cfg, err := config.Load(path, noEnv(t))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Precedence(t *testing.T) {
	path := write(t, "fsmconv.yaml", "port: 9090\nnaming: composite\n")
	envFile := write(t, ".env", "FSMCONV_PORT=9191\nFSMCONV_LOG_LEVEL=warn\n")

	t.Setenv("FSMCONV_PORT", "9292")
	t.Setenv("FSMCONV_LIMITS_MAX_INPUTS", "4")
	t.Setenv("FSMCONV_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("FSMCONV_RATE_LIMIT_WINDOW", "30s")
	// godotenv only sets unset variables; restore whatever it adds.
	t.Setenv("FSMCONV_LOG_LEVEL", "")
	os.Unsetenv("FSMCONV_LOG_LEVEL")

	cfg, err := config.Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, 9292, cfg.Port, "environment beats .env and file")
	assert.Equal(t, "warn", cfg.Log.Level, ".env beats defaults")
	assert.Equal(t, "composite", cfg.Naming, "file beats defaults")
	assert.Equal(t, 4, cfg.Limits.MaxInputs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnv(t))
		assert.ErrorContains(t, err, "failed to read config")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := config.Load(write(t, "c.yaml", "port: [1"), noEnv(t))
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("missing env file", func(t *testing.T) {
		_, err := config.Load("", filepath.Join(t.TempDir(), ".env.missing"))
		assert.ErrorContains(t, err, "failed to load env files")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("FSMCONV_PORT", "eighty")
		_, err := config.Load("", noEnv(t))
		assert.ErrorContains(t, err, "failed to parse environment")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port", func(c *config.Config) { c.Port = 70000 }, "port"},
		{"level", func(c *config.Config) { c.Log.Level = "loud" }, "log level"},
		{"format", func(c *config.Config) { c.Log.Format = "xml" }, "log format"},
		{"naming", func(c *config.Config) { c.Naming = "fancy" }, "naming"},
		{"limits", func(c *config.Config) { c.Limits.MaxStates = -1 }, "negative"},
		{"rate", func(c *config.Config) { c.RateLimit.Limit = -1 }, "negative"},
		{"window", func(c *config.Config) { c.RateLimit.Limit, c.RateLimit.Window = 1, 0 }, "window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, config.Default().Validate())
}
