// Package monitor tracks agent operation timings. Completed
// operations feed the Prometheus collector and a Redis-backed record
// used for the performance summary surface.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/internal/metrics"
)

// Config tunes the monitor.
type Config struct {
	// SlowThreshold is the duration past which a completed operation
	// is logged as slow. Defaults to 10s.
	SlowThreshold time.Duration `yaml:"slow_threshold" json:"slow_threshold"`

	// MetricTTL bounds how long per-operation records live in Redis.
	// Defaults to 24h.
	MetricTTL time.Duration `yaml:"metric_ttl" json:"metric_ttl"`
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		SlowThreshold: 10 * time.Second,
		MetricTTL:     24 * time.Hour,
	}
}

// OperationRecord is a completed operation measurement.
type OperationRecord struct {
	ID        string        `json:"id"`
	Agent     string        `json:"agent"`
	Operation string        `json:"operation"`
	Success   bool          `json:"success"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Slow      bool          `json:"slow"`
}

// Monitor measures operations. cache and collector are optional.
type Monitor struct {
	cfg       Config
	cache     *cache.Manager
	collector *metrics.Collector
	logger    *zap.Logger

	mu     sync.Mutex
	active map[string]*activeOperation
}

type activeOperation struct {
	agent     string
	operation string
	startedAt time.Time
}

// New creates a monitor.
func New(cfg Config, cacheMgr *cache.Manager, collector *metrics.Collector, logger *zap.Logger) *Monitor {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = 10 * time.Second
	}
	if cfg.MetricTTL == 0 {
		cfg.MetricTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:       cfg,
		cache:     cacheMgr,
		collector: collector,
		logger:    logger.With(zap.String("component", "monitor")),
		active:    make(map[string]*activeOperation),
	}
}

// Start begins tracking an operation and returns its token.
func (m *Monitor) Start(agent, operation string) string {
	id := uuid.NewString()

	m.mu.Lock()
	m.active[id] = &activeOperation{
		agent:     agent,
		operation: operation,
		startedAt: time.Now(),
	}
	m.mu.Unlock()

	return id
}

// End completes an operation and records its outcome. Unknown tokens
// are ignored.
func (m *Monitor) End(ctx context.Context, id string, success bool) *OperationRecord {
	m.mu.Lock()
	op, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("unknown operation token", zap.String("id", id))
		return nil
	}

	record := &OperationRecord{
		ID:        id,
		Agent:     op.agent,
		Operation: op.operation,
		Success:   success,
		StartedAt: op.startedAt,
		Duration:  time.Since(op.startedAt),
	}
	record.Slow = record.Duration > m.cfg.SlowThreshold

	if record.Slow {
		m.logger.Warn("slow operation",
			zap.String("agent", record.Agent),
			zap.String("operation", record.Operation),
			zap.Duration("duration", record.Duration),
			zap.Duration("threshold", m.cfg.SlowThreshold),
		)
	}

	if m.collector != nil {
		status := "success"
		if !success {
			status = "error"
		}
		m.collector.RecordAgentOperation(record.Agent, record.Operation, status, record.Duration)
		if record.Slow {
			m.collector.RecordSlowOperation(record.Agent, record.Operation)
		}
	}

	if m.cache != nil {
		key := cache.Key(cache.PrefixMetrics, record.ID)
		if err := m.cache.SetJSON(ctx, key, record, m.cfg.MetricTTL); err != nil {
			m.logger.Warn("failed to store operation record", zap.Error(err))
		}
	}

	return record
}

// Track runs fn as a monitored operation.
func (m *Monitor) Track(ctx context.Context, agent, operation string, fn func(context.Context) error) error {
	id := m.Start(agent, operation)
	err := fn(ctx)
	m.End(ctx, id, err == nil)
	return err
}

// OperationSummary aggregates records for one agent/operation pair.
type OperationSummary struct {
	Agent       string        `json:"agent"`
	Operation   string        `json:"operation"`
	Count       int           `json:"count"`
	Failures    int           `json:"failures"`
	SlowCount   int           `json:"slow_count"`
	AvgDuration time.Duration `json:"avg_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// Summarize aggregates the stored operation records.
func (m *Monitor) Summarize(ctx context.Context) ([]OperationSummary, error) {
	if m.cache == nil {
		return nil, nil
	}

	keys, err := m.cache.Scan(ctx, cache.PrefixMetrics+":*")
	if err != nil {
		return nil, err
	}

	type bucket struct {
		summary OperationSummary
		total   time.Duration
	}
	buckets := make(map[string]*bucket)

	for _, key := range keys {
		var record OperationRecord
		if err := m.cache.GetJSON(ctx, key, &record); err != nil {
			continue
		}

		id := record.Agent + "/" + record.Operation
		b, ok := buckets[id]
		if !ok {
			b = &bucket{summary: OperationSummary{Agent: record.Agent, Operation: record.Operation}}
			buckets[id] = b
		}
		b.summary.Count++
		if !record.Success {
			b.summary.Failures++
		}
		if record.Slow {
			b.summary.SlowCount++
		}
		b.total += record.Duration
		if record.Duration > b.summary.MaxDuration {
			b.summary.MaxDuration = record.Duration
		}
	}

	summaries := make([]OperationSummary, 0, len(buckets))
	for _, b := range buckets {
		if b.summary.Count > 0 {
			b.summary.AvgDuration = b.total / time.Duration(b.summary.Count)
		}
		summaries = append(summaries, b.summary)
	}
	return summaries, nil
}

// ActiveCount reports how many operations are currently in flight.
func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
