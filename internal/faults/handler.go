// Package faults centralizes error handling: every failure that
// reaches a handler or agent boundary is categorized, counted,
// persisted for later analysis, and escalated over a webhook when
// serious enough.
package faults

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/internal/tlsutil"
	"github.com/docuflow/docuflow/types"
)

// Severity ranks how urgent an error is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category groups errors by origin.
type Category string

const (
	CategoryAPI           Category = "api_error"
	CategoryValidation    Category = "validation_error"
	CategoryIntegration   Category = "integration_error"
	CategorySystem        Category = "system_error"
	CategoryResource      Category = "resource_error"
	CategoryConfiguration Category = "configuration_error"
)

// Record is a stored error occurrence.
type Record struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Severity     Severity       `json:"severity"`
	Category     Category       `json:"category"`
	Code         string         `json:"code,omitempty"`
	Message      string         `json:"message"`
	Operation    string         `json:"operation,omitempty"`
	Service      string         `json:"service,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	RecoveryHint string         `json:"recovery_hint,omitempty"`
}

// Config tunes the handler.
type Config struct {
	// NotifyURL is posted high and critical records. Empty disables
	// webhook notifications.
	NotifyURL string `yaml:"notify_url" json:"notify_url"`

	// NotifyToken is sent as a bearer token with notifications.
	NotifyToken string `yaml:"notify_token" json:"notify_token"`

	// PatternThreshold is the per-hour occurrence count past which a
	// recurring category is escalated to high severity. Defaults to 10.
	PatternThreshold int `yaml:"pattern_threshold" json:"pattern_threshold"`

	// RecordTTL bounds how long stored records live. Defaults to 7d.
	RecordTTL time.Duration `yaml:"record_ttl" json:"record_ttl"`

	// PatternTTL is the sliding window for pattern counters.
	// Defaults to 1h.
	PatternTTL time.Duration `yaml:"pattern_ttl" json:"pattern_ttl"`
}

// DefaultConfig returns the default fault handling configuration.
func DefaultConfig() Config {
	return Config{
		PatternThreshold: 10,
		RecordTTL:        7 * 24 * time.Hour,
		PatternTTL:       time.Hour,
	}
}

// Handler categorizes and records errors. The cache is optional:
// without it records are only logged.
type Handler struct {
	cfg    Config
	cache  *cache.Manager
	client *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	patterns map[Category]int64
}

// NewHandler creates a fault handler. cache may be nil.
func NewHandler(cfg Config, cacheMgr *cache.Manager, logger *zap.Logger) *Handler {
	if cfg.PatternThreshold == 0 {
		cfg.PatternThreshold = 10
	}
	if cfg.RecordTTL == 0 {
		cfg.RecordTTL = 7 * 24 * time.Hour
	}
	if cfg.PatternTTL == 0 {
		cfg.PatternTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		cache:    cacheMgr,
		client:   tlsutil.SecureHTTPClient(10 * time.Second),
		logger:   logger.With(zap.String("component", "faults")),
		patterns: make(map[Category]int64),
	}
}

// Handle categorizes err, records it, and escalates if needed. The
// returned record is safe to expose in responses (message and hint
// only). operation names the failing operation, extra carries
// request-scoped context.
func (h *Handler) Handle(ctx context.Context, err error, operation string, extra map[string]any) *Record {
	if err == nil {
		return nil
	}

	severity, category := Categorize(err)

	record := &Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Severity:     severity,
		Category:     category,
		Message:      err.Error(),
		Operation:    operation,
		Context:      extra,
		RecoveryHint: recoveryHint(category),
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		record.Code = string(typed.Code)
		record.Service = typed.Service
	}
	if extra != nil {
		if rid, ok := extra["request_id"].(string); ok {
			record.RequestID = rid
		}
	}

	// A category firing repeatedly inside the window is a systemic
	// problem even when individual occurrences are benign.
	count := h.bumpPattern(ctx, category)
	if count > int64(h.cfg.PatternThreshold) && record.Severity != SeverityCritical {
		record.Severity = SeverityHigh
	}

	h.log(record, count)
	h.store(ctx, record)

	if record.Severity == SeverityHigh || record.Severity == SeverityCritical {
		h.notify(ctx, record)
	}

	return record
}

// Categorize derives severity and category from an error.
func Categorize(err error) (Severity, Category) {
	var typed *types.Error
	if errors.As(err, &typed) {
		switch typed.Code {
		case types.ErrInvalidRequest:
			return SeverityLow, CategoryValidation
		case types.ErrAuthentication, types.ErrUnauthorized, types.ErrForbidden:
			return SeverityMedium, CategoryAPI
		case types.ErrNotFound:
			return SeverityLow, CategoryAPI
		case types.ErrRateLimited, types.ErrQuotaExceeded:
			return SeverityMedium, CategoryResource
		case types.ErrUpstreamTimeout, types.ErrTimeout, types.ErrCheckTimeout:
			return SeverityMedium, CategoryIntegration
		case types.ErrUpstreamError, types.ErrProviderUnavailable, types.ErrContentFiltered:
			return SeverityMedium, CategoryIntegration
		case types.ErrConfiguration:
			return SeverityCritical, CategoryConfiguration
		case types.ErrServiceUnavailable:
			return SeverityHigh, CategorySystem
		default:
			return SeverityHigh, CategorySystem
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return SeverityMedium, CategoryIntegration
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SeverityLow, CategoryAPI
	}

	return SeverityHigh, CategorySystem
}

func recoveryHint(category Category) string {
	switch category {
	case CategoryValidation:
		return "Check the request payload against the API documentation"
	case CategoryAPI:
		return "Verify credentials and retry the request"
	case CategoryIntegration:
		return "The upstream service is degraded, retry after a short delay"
	case CategoryResource:
		return "Reduce request rate or wait for the quota window to reset"
	case CategoryConfiguration:
		return "Review service configuration and restart"
	default:
		return "Contact the operations team if the problem persists"
	}
}

// bumpPattern increments the per-category counter, preferring the
// Redis counter so the window is shared across replicas.
func (h *Handler) bumpPattern(ctx context.Context, category Category) int64 {
	if h.cache != nil {
		key := cache.Key(cache.PrefixErrorPattern, string(category))
		count, err := h.cache.Incr(ctx, key)
		if err == nil {
			if count == 1 {
				if err := h.cache.Expire(ctx, key, h.cfg.PatternTTL); err != nil {
					h.logger.Warn("failed to expire pattern counter", zap.Error(err))
				}
			}
			return count
		}
		h.logger.Warn("pattern counter failed, using local count", zap.Error(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.patterns[category]++
	return h.patterns[category]
}

func (h *Handler) log(record *Record, patternCount int64) {
	fields := []zap.Field{
		zap.String("error_id", record.ID),
		zap.String("severity", string(record.Severity)),
		zap.String("category", string(record.Category)),
		zap.String("operation", record.Operation),
		zap.Int64("pattern_count", patternCount),
	}
	if record.Code != "" {
		fields = append(fields, zap.String("code", record.Code))
	}
	if record.Service != "" {
		fields = append(fields, zap.String("service", record.Service))
	}

	switch record.Severity {
	case SeverityCritical, SeverityHigh:
		h.logger.Error(record.Message, fields...)
	case SeverityMedium:
		h.logger.Warn(record.Message, fields...)
	default:
		h.logger.Info(record.Message, fields...)
	}
}

func (h *Handler) store(ctx context.Context, record *Record) {
	if h.cache == nil {
		return
	}
	key := cache.Key(cache.PrefixError, record.ID)
	if err := h.cache.SetJSON(ctx, key, record, h.cfg.RecordTTL); err != nil {
		h.logger.Warn("failed to store error record", zap.Error(err))
	}
}

func (h *Handler) notify(ctx context.Context, record *Record) {
	if h.cfg.NotifyURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"error_id":  record.ID,
		"severity":  record.Severity,
		"category":  record.Category,
		"message":   record.Message,
		"operation": record.Operation,
		"timestamp": record.Timestamp,
	})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.NotifyURL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.NotifyToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.NotifyToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("error notification failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		h.logger.Warn("error notification rejected", zap.Int("status", resp.StatusCode))
	}
}

// Summary aggregates stored records by severity and category.
type Summary struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByCategory map[Category]int `json:"by_category"`
}

// Summarize scans stored records and aggregates them. Returns an
// empty summary when no cache is configured.
func (h *Handler) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[Category]int),
	}
	if h.cache == nil {
		return summary, nil
	}

	keys, err := h.cache.Scan(ctx, cache.PrefixError+":*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan error records: %w", err)
	}

	for _, key := range keys {
		var record Record
		if err := h.cache.GetJSON(ctx, key, &record); err != nil {
			continue
		}
		summary.Total++
		summary.BySeverity[record.Severity]++
		summary.ByCategory[record.Category]++
	}

	return summary, nil
}
