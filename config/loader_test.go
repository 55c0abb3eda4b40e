package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 100, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.FallbackModel)
	assert.Equal(t, time.Hour, cfg.CacheTTL.Review)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL.Workflow)
	assert.Equal(t, 10, cfg.Faults.PatternThreshold)
	assert.Equal(t, 10*time.Second, cfg.Monitor.SlowThreshold)
	assert.False(t, cfg.Acrolinx.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docuflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9000
  jwt_secret: file-secret
openai:
  api_key: sk-test
  model: gpt-4o
acrolinx:
  enabled: true
  base_url: https://acrolinx.example.com
  max_polls: 5
cache_ttl:
  query: 5m
flare:
  project_dir: /srv/docs
  content_patterns:
    howto: howto/*.md
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "file-secret", cfg.Server.JWTSecret)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.True(t, cfg.Acrolinx.Enabled)
	assert.Equal(t, 5, cfg.Acrolinx.MaxPolls)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL.Query)
	assert.Equal(t, "/srv/docs", cfg.Flare.ProjectDir)
	assert.Equal(t, "howto/*.md", cfg.Flare.ContentPatterns["howto"])

	// Untouched values keep their defaults.
	assert.Equal(t, time.Hour, cfg.CacheTTL.Review)
	assert.Equal(t, 2*time.Second, cfg.Acrolinx.PollInterval)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docuflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9000
`), 0o644))

	t.Setenv("DOCUFLOW_SERVER_HTTP_PORT", "9100")
	t.Setenv("DOCUFLOW_OPENAI_API_KEY", "sk-env")
	t.Setenv("DOCUFLOW_OPENAI_TIMEOUT", "90s")
	t.Setenv("DOCUFLOW_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DOCUFLOW_TELEMETRY_ENABLED", "true")
	t.Setenv("DOCUFLOW_TELEMETRY_SAMPLE_RATE", "0.25")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, 90*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRate, 0.001)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/docuflow.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docuflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_Validator(t *testing.T) {
	_, err := NewLoader().WithValidator(func(c *Config) error {
		return c.Validate()
	}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret is required")
	assert.Contains(t, err.Error(), "openai api_key is required")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.JWTSecret = "secret"
	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Server.HTTPPort = 0
	cfg.OpenAI.Temperature = 3
	cfg.Acrolinx.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "temperature")
	assert.Contains(t, err.Error(), "acrolinx base_url")
}
