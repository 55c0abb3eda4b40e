// Package config loads the service configuration from defaults, an
// optional YAML file, and environment variable overrides, in that
// order of precedence.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("docuflow.yaml").
//	    WithEnvPrefix("DOCUFLOW").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	// Server holds the HTTP server settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// OpenAI holds the language model provider settings.
	OpenAI OpenAIConfig `yaml:"openai" env:"OPENAI"`

	// Acrolinx holds the quality checking settings.
	Acrolinx AcrolinxConfig `yaml:"acrolinx" env:"ACROLINX"`

	// Jira holds the issue tracker settings.
	Jira JiraConfig `yaml:"jira" env:"JIRA"`

	// Confluence holds the wiki settings.
	Confluence ConfluenceConfig `yaml:"confluence" env:"CONFLUENCE"`

	// Redis holds the cache backend settings.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// CacheTTL holds the per-operation result cache lifetimes.
	CacheTTL CacheTTLConfig `yaml:"cache_ttl" env:"CACHE_TTL"`

	// Faults holds the error handler settings.
	Faults FaultsConfig `yaml:"faults" env:"FAULTS"`

	// Monitor holds the performance monitor settings.
	Monitor MonitorConfig `yaml:"monitor" env:"MONITOR"`

	// Flare holds the documentation project analyzer settings.
	Flare FlareConfig `yaml:"flare" env:"FLARE"`

	// Log holds the logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry holds the tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// HTTP port
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics port
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout, sized for synchronous model calls
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Allowed CORS origins, "*" for any
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// Secret used to verify bearer tokens
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	// Requests allowed per key per minute
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	// Burst allowance on top of the steady rate
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// OpenAIConfig holds the model provider settings.
type OpenAIConfig struct {
	// API key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL, defaults to the public API
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Primary model
	Model string `yaml:"model" env:"MODEL"`
	// Model tried once when the primary keeps failing
	FallbackModel string `yaml:"fallback_model" env:"FALLBACK_MODEL"`
	// Organization header, optional
	Organization string `yaml:"organization" env:"ORGANIZATION"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// Completion token cap
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Retry attempts for retryable failures
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// AcrolinxConfig holds the quality platform settings.
type AcrolinxConfig struct {
	// Enabled toggles quality checks
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Platform base URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API token
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
	// Guidance profile applied to checks
	GuidanceProfile string `yaml:"guidance_profile" env:"GUIDANCE_PROFILE"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// Poll attempts before a check times out
	MaxPolls int `yaml:"max_polls" env:"MAX_POLLS"`
	// Delay between polls
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

// JiraConfig holds the issue tracker settings.
type JiraConfig struct {
	// Enabled toggles issue context retrieval
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Site base URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Account email for basic auth
	Email string `yaml:"email" env:"EMAIL"`
	// API token for basic auth
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ConfluenceConfig holds the wiki settings.
type ConfluenceConfig struct {
	// Enabled toggles page context retrieval
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Site base URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Account email for basic auth
	Email string `yaml:"email" env:"EMAIL"`
	// API token for basic auth
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RedisConfig holds the cache backend settings.
type RedisConfig struct {
	// Address
	Addr string `yaml:"addr" env:"ADDR"`
	// Password
	Password string `yaml:"password" env:"PASSWORD"`
	// Database number
	DB int `yaml:"db" env:"DB"`
	// Connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Minimum idle connections
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// CacheTTLConfig holds per-operation result cache lifetimes.
type CacheTTLConfig struct {
	// Review result lifetime
	Review time.Duration `yaml:"review" env:"REVIEW"`
	// Draft result lifetime
	Draft time.Duration `yaml:"draft" env:"DRAFT"`
	// Query result lifetime
	Query time.Duration `yaml:"query" env:"QUERY"`
	// Workflow result lifetime
	Workflow time.Duration `yaml:"workflow" env:"WORKFLOW"`
}

// FaultsConfig holds the error handler settings.
type FaultsConfig struct {
	// Webhook notified on high and critical errors, optional
	NotifyURL string `yaml:"notify_url" env:"NOTIFY_URL"`
	// Bearer token sent to the webhook
	NotifyToken string `yaml:"notify_token" env:"NOTIFY_TOKEN"`
	// Occurrences per hour before a category escalates
	PatternThreshold int `yaml:"pattern_threshold" env:"PATTERN_THRESHOLD"`
	// Error record retention
	RecordTTL time.Duration `yaml:"record_ttl" env:"RECORD_TTL"`
	// Pattern counter window
	PatternTTL time.Duration `yaml:"pattern_ttl" env:"PATTERN_TTL"`
}

// MonitorConfig holds the performance monitor settings.
type MonitorConfig struct {
	// Duration above which an operation is flagged slow
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"SLOW_THRESHOLD"`
	// Operation metric retention
	MetricTTL time.Duration `yaml:"metric_ttl" env:"METRIC_TTL"`
}

// FlareConfig holds the documentation project analyzer settings.
type FlareConfig struct {
	// Root of the documentation project, empty disables analysis
	ProjectDir string `yaml:"project_dir" env:"PROJECT_DIR"`
	// Content type to file glob, YAML only
	ContentPatterns map[string]string `yaml:"content_patterns" env:"-"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Include caller info
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Include stack traces on errors
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig holds the tracing settings.
type TelemetryConfig struct {
	// Enabled toggles trace export
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP gRPC endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name on exported spans
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sample rate
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader builds a Config from defaults, file, and environment.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a config loader with the DOCUFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "DOCUFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation step run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration. Precedence is defaults, then the
// YAML file, then environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads the configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks the resolved configuration for deployment errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort != 0 && (c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535) {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.RateLimitPerMinute <= 0 {
		errs = append(errs, "rate_limit_per_minute must be positive")
	}
	if c.Server.JWTSecret == "" {
		errs = append(errs, "jwt_secret is required")
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, "openai api_key is required")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, "openai temperature must be between 0 and 2")
	}
	if c.Acrolinx.Enabled && c.Acrolinx.BaseURL == "" {
		errs = append(errs, "acrolinx base_url is required when enabled")
	}
	if c.Jira.Enabled && c.Jira.BaseURL == "" {
		errs = append(errs, "jira base_url is required when enabled")
	}
	if c.Confluence.Enabled && c.Confluence.BaseURL == "" {
		errs = append(errs, "confluence base_url is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
