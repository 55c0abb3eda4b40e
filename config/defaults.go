package config

import "time"

// DefaultConfig returns the configuration used when nothing else is
// provided. Credentials have no defaults and must come from the file
// or the environment.
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		OpenAI:     DefaultOpenAIConfig(),
		Acrolinx:   DefaultAcrolinxConfig(),
		Jira:       DefaultJiraConfig(),
		Confluence: DefaultConfluenceConfig(),
		Redis:      DefaultRedisConfig(),
		CacheTTL:   DefaultCacheTTLConfig(),
		Faults:     DefaultFaultsConfig(),
		Monitor:    DefaultMonitorConfig(),
		Flare:      DefaultFlareConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       120 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: 100,
		RateLimitBurst:     20,
	}
}

// DefaultOpenAIConfig returns the default provider settings.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:       "https://api.openai.com",
		Model:         "gpt-4",
		FallbackModel: "gpt-3.5-turbo",
		Temperature:   0.3,
		MaxTokens:     2048,
		Timeout:       60 * time.Second,
		MaxRetries:    3,
	}
}

// DefaultAcrolinxConfig returns the default quality check settings.
func DefaultAcrolinxConfig() AcrolinxConfig {
	return AcrolinxConfig{
		Enabled:      false,
		Timeout:      30 * time.Second,
		MaxPolls:     10,
		PollInterval: 2 * time.Second,
	}
}

// DefaultJiraConfig returns the default issue tracker settings.
func DefaultJiraConfig() JiraConfig {
	return JiraConfig{
		Enabled: false,
		Timeout: 15 * time.Second,
	}
}

// DefaultConfluenceConfig returns the default wiki settings.
func DefaultConfluenceConfig() ConfluenceConfig {
	return ConfluenceConfig{
		Enabled: false,
		Timeout: 15 * time.Second,
	}
}

// DefaultRedisConfig returns the default cache backend settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultCacheTTLConfig returns the default result cache lifetimes.
func DefaultCacheTTLConfig() CacheTTLConfig {
	return CacheTTLConfig{
		Review:   time.Hour,
		Draft:    30 * time.Minute,
		Query:    15 * time.Minute,
		Workflow: 24 * time.Hour,
	}
}

// DefaultFaultsConfig returns the default error handler settings.
func DefaultFaultsConfig() FaultsConfig {
	return FaultsConfig{
		PatternThreshold: 10,
		RecordTTL:        7 * 24 * time.Hour,
		PatternTTL:       time.Hour,
	}
}

// DefaultMonitorConfig returns the default monitor settings.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SlowThreshold: 10 * time.Second,
		MetricTTL:     24 * time.Hour,
	}
}

// DefaultFlareConfig returns the default project analyzer settings.
func DefaultFlareConfig() FlareConfig {
	return FlareConfig{
		ContentPatterns: map[string]string{
			"guide":     "guides/*.md",
			"reference": "reference/*.md",
			"tutorial":  "tutorials/*.md",
			"topic":     "*.md",
		},
	}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default tracing settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "docuflow",
		SampleRate:   1.0,
	}
}
