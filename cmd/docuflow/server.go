package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/agent"
	"github.com/docuflow/docuflow/api/handlers"
	"github.com/docuflow/docuflow/config"
	"github.com/docuflow/docuflow/flare"
	"github.com/docuflow/docuflow/integrations/acrolinx"
	"github.com/docuflow/docuflow/integrations/confluence"
	"github.com/docuflow/docuflow/integrations/jira"
	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/internal/faults"
	"github.com/docuflow/docuflow/internal/metrics"
	"github.com/docuflow/docuflow/internal/monitor"
	"github.com/docuflow/docuflow/internal/server"
	"github.com/docuflow/docuflow/internal/telemetry"
	"github.com/docuflow/docuflow/llm/openai"
)

// Server assembles and runs the documentation assistant.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	cacheManager *cache.Manager
	collector    *metrics.Collector
	orchestrator *agent.Orchestrator
	otel         *telemetry.Providers

	healthHandler   *handlers.HealthHandler
	reviewHandler   *handlers.ReviewHandler
	draftHandler    *handlers.DraftHandler
	queryHandler    *handlers.QueryHandler
	workflowHandler *handlers.WorkflowHandler
	statusHandler   *handlers.StatusHandler

	rateLimiterCancel context.CancelFunc
}

// NewServer creates a server from resolved configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otel,
	}
}

// Start brings up every component and both listeners.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("docuflow", s.logger)

	if err := s.initComponents(); err != nil {
		return fmt.Errorf("failed to init components: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

// providerConfig maps the loaded configuration onto the OpenAI client
// config. Temperature narrows to float32, the width the chat API takes.
func providerConfig(cfg *config.Config) openai.Config {
	return openai.Config{
		APIKey:        cfg.OpenAI.APIKey,
		BaseURL:       cfg.OpenAI.BaseURL,
		Model:         cfg.OpenAI.Model,
		FallbackModel: cfg.OpenAI.FallbackModel,
		Organization:  cfg.OpenAI.Organization,
		Temperature:   float32(cfg.OpenAI.Temperature),
		MaxTokens:     cfg.OpenAI.MaxTokens,
		Timeout:       cfg.OpenAI.Timeout,
		MaxRetries:    cfg.OpenAI.MaxRetries,
	}
}

// initComponents builds the cache, the integrations, the agents, and
// the handlers. The cache and the integrations are optional: when one
// is unavailable or disabled the service degrades instead of refusing
// to start.
func (s *Server) initComponents() error {
	cacheManager, err := cache.NewManager(cache.Config{
		Addr:         s.cfg.Redis.Addr,
		Password:     s.cfg.Redis.Password,
		DB:           s.cfg.Redis.DB,
		PoolSize:     s.cfg.Redis.PoolSize,
		MinIdleConns: s.cfg.Redis.MinIdleConns,
	}, s.logger)
	if err != nil {
		s.logger.Warn("redis not available, caching disabled", zap.Error(err))
	} else {
		s.cacheManager = cacheManager
	}

	provider := openai.New(providerConfig(s.cfg), s.logger)

	probes := make(map[string]agent.HealthProbe)

	var checker agent.QualityChecker
	if s.cfg.Acrolinx.Enabled {
		client := acrolinx.NewClient(acrolinx.Config{
			BaseURL:         s.cfg.Acrolinx.BaseURL,
			APIToken:        s.cfg.Acrolinx.APIToken,
			GuidanceProfile: s.cfg.Acrolinx.GuidanceProfile,
			Timeout:         s.cfg.Acrolinx.Timeout,
			MaxPolls:        s.cfg.Acrolinx.MaxPolls,
			PollInterval:    s.cfg.Acrolinx.PollInterval,
		}, s.logger)
		checker = client
		probes["acrolinx"] = client
	}

	var issues agent.IssueSource
	if s.cfg.Jira.Enabled {
		client := jira.NewClient(jira.Config{
			BaseURL:  s.cfg.Jira.BaseURL,
			Email:    s.cfg.Jira.Email,
			APIToken: s.cfg.Jira.APIToken,
			Timeout:  s.cfg.Jira.Timeout,
		}, s.logger)
		issues = client
		probes["jira"] = client
	}

	var pages agent.PageSource
	if s.cfg.Confluence.Enabled {
		client := confluence.NewClient(confluence.Config{
			BaseURL:  s.cfg.Confluence.BaseURL,
			Email:    s.cfg.Confluence.Email,
			APIToken: s.cfg.Confluence.APIToken,
			Timeout:  s.cfg.Confluence.Timeout,
		}, s.logger)
		pages = client
		probes["confluence"] = client
	}

	faultHandler := faults.NewHandler(faults.Config{
		NotifyURL:        s.cfg.Faults.NotifyURL,
		NotifyToken:      s.cfg.Faults.NotifyToken,
		PatternThreshold: s.cfg.Faults.PatternThreshold,
		RecordTTL:        s.cfg.Faults.RecordTTL,
		PatternTTL:       s.cfg.Faults.PatternTTL,
	}, s.cacheManager, s.logger)

	perfMonitor := monitor.New(monitor.Config{
		SlowThreshold: s.cfg.Monitor.SlowThreshold,
		MetricTTL:     s.cfg.Monitor.MetricTTL,
	}, s.cacheManager, s.collector, s.logger)

	reviewAgent := agent.NewReviewAgent(provider, checker, s.logger)
	draftingAgent := agent.NewDraftingAgent(provider, issues, pages, s.logger)
	queryAgent := agent.NewQueryAgent(provider, pages, s.cacheManager, s.logger)

	s.orchestrator = agent.NewOrchestrator(
		reviewAgent,
		draftingAgent,
		queryAgent,
		provider,
		s.cacheManager,
		perfMonitor,
		faultHandler,
		s.collector,
		probes,
		agent.CacheTTLs{
			Review:   s.cfg.CacheTTL.Review,
			Draft:    s.cfg.CacheTTL.Draft,
			Query:    s.cfg.CacheTTL.Query,
			Workflow: s.cfg.CacheTTL.Workflow,
		},
		s.logger,
	)

	if s.cfg.Flare.ProjectDir != "" {
		analyzer := flare.NewAnalyzer(flare.Config{
			ProjectDir:      s.cfg.Flare.ProjectDir,
			ContentPatterns: s.cfg.Flare.ContentPatterns,
		}, s.logger)
		s.orchestrator.SetProjectAnalyzer(analyzer)
	}

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.cacheManager != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingHealthCheck("redis", s.cacheManager.Ping))
	}

	s.reviewHandler = handlers.NewReviewHandler(s.orchestrator, s.logger)
	s.draftHandler = handlers.NewDraftHandler(s.orchestrator, s.logger)
	s.queryHandler = handlers.NewQueryHandler(s.orchestrator, s.logger)
	s.workflowHandler = handlers.NewWorkflowHandler(s.orchestrator, s.logger)
	s.statusHandler = handlers.NewStatusHandler(s.orchestrator, s.logger)

	s.logger.Info("components initialized",
		zap.Bool("cache", s.cacheManager != nil),
		zap.Bool("acrolinx", checker != nil),
		zap.Bool("jira", issues != nil),
		zap.Bool("confluence", pages != nil),
	)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("POST /api/v1/review", s.reviewHandler.HandleReview)
	mux.HandleFunc("POST /api/v1/draft", s.draftHandler.HandleDraft)
	mux.HandleFunc("POST /api/v1/query", s.queryHandler.HandleQuery)
	mux.HandleFunc("GET /api/v1/query/history/{session_id}", s.queryHandler.HandleHistory)
	mux.HandleFunc("POST /api/v1/workflows", s.workflowHandler.HandleRun)
	mux.HandleFunc("GET /api/v1/workflows/{id}", s.workflowHandler.HandleStatus)
	mux.HandleFunc("GET /api/v1/status", s.statusHandler.HandleStatus)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		BearerAuth(s.cfg.Server.JWTSecret, skipAuthPaths, s.logger),
		RateLimiter(rateLimiterCtx, s.cacheManager, s.cfg.Server.RateLimitPerMinute, s.cfg.Server.RateLimitBurst, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		s.logger.Info("metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until a termination signal arrives, then
// shuts everything down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops the listeners and releases resources.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("cache shutdown error", zap.Error(err))
		}
	}

	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}
