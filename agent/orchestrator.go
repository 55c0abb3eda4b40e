package agent

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/internal/faults"
	"github.com/docuflow/docuflow/internal/metrics"
	"github.com/docuflow/docuflow/internal/monitor"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// HealthProbe reports whether an integration responds. Satisfied by
// the acrolinx, jira, and confluence clients.
type HealthProbe interface {
	Healthy(ctx context.Context) bool
}

// ConsistencySource scores how closely the documentation project's
// existing content follows a shared structure. Satisfied by the flare
// analyzer.
type ConsistencySource interface {
	Consistency() float64
}

// CacheTTLs sets how long each cached result lives.
type CacheTTLs struct {
	Review   time.Duration `yaml:"review" json:"review"`
	Draft    time.Duration `yaml:"draft" json:"draft"`
	Query    time.Duration `yaml:"query" json:"query"`
	Workflow time.Duration `yaml:"workflow" json:"workflow"`
}

// DefaultCacheTTLs returns the default result cache lifetimes.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Review:   time.Hour,
		Draft:    30 * time.Minute,
		Query:    15 * time.Minute,
		Workflow: 24 * time.Hour,
	}
}

// Orchestrator routes requests to the agents, caches results by
// request fingerprint, and tracks every operation.
type Orchestrator struct {
	review   *ReviewAgent
	drafting *DraftingAgent
	query    *QueryAgent

	provider  llm.Provider
	project   ConsistencySource
	cache     *cache.Manager
	monitor   *monitor.Monitor
	faults    *faults.Handler
	collector *metrics.Collector
	probes    map[string]HealthProbe
	ttls      CacheTTLs
	logger    *zap.Logger

	startedAt time.Time
}

// NewOrchestrator wires the agents together. cache, monitor, faults,
// and collector may be nil; probes maps integration names to their
// health checks.
func NewOrchestrator(
	review *ReviewAgent,
	drafting *DraftingAgent,
	query *QueryAgent,
	provider llm.Provider,
	cacheMgr *cache.Manager,
	mon *monitor.Monitor,
	faultHandler *faults.Handler,
	collector *metrics.Collector,
	probes map[string]HealthProbe,
	ttls CacheTTLs,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttls == (CacheTTLs{}) {
		ttls = DefaultCacheTTLs()
	}
	if query != nil {
		query.SetHistoryTTL(ttls.Query)
	}
	return &Orchestrator{
		review:    review,
		drafting:  drafting,
		query:     query,
		provider:  provider,
		cache:     cacheMgr,
		monitor:   mon,
		faults:    faultHandler,
		collector: collector,
		probes:    probes,
		ttls:      ttls,
		logger:    logger.With(zap.String("component", "orchestrator")),
		startedAt: time.Now().UTC(),
	}
}

// Review runs a content review, serving repeats from the cache.
func (o *Orchestrator) Review(ctx context.Context, req *types.ReviewRequest) (*types.ReviewResult, error) {
	var result types.ReviewResult
	hit, key := o.lookup(ctx, cache.PrefixReview, req, &result, "reference")
	if hit {
		return &result, nil
	}

	var out *types.ReviewResult
	err := o.track(ctx, "review", "review_content", func(ctx context.Context) error {
		var err error
		out, err = o.review.Review(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.store(ctx, key, out, o.ttls.Review)
	return out, nil
}

// Draft generates a documentation draft, serving repeats from the
// cache.
func (o *Orchestrator) Draft(ctx context.Context, req *types.DraftRequest) (*types.Draft, error) {
	var result types.Draft
	hit, key := o.lookup(ctx, cache.PrefixDraft, req, &result)
	if hit {
		return &result, nil
	}

	var out *types.Draft
	err := o.track(ctx, "draft", "create_draft", func(ctx context.Context) error {
		var err error
		out, err = o.drafting.CreateDraft(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	o.store(ctx, key, out, o.ttls.Draft)
	return out, nil
}

// Query answers a documentation question. Session-scoped fields are
// excluded from the fingerprint so identical questions share a cache
// entry; queries carrying a session are never cached, their answers
// depend on history.
func (o *Orchestrator) Query(ctx context.Context, req *types.QueryRequest) (*types.QueryResponse, error) {
	var key string
	if req.SessionID == "" {
		var result types.QueryResponse
		var hit bool
		hit, key = o.lookup(ctx, cache.PrefixQuery, req, &result, "session_id")
		if hit {
			return &result, nil
		}
	}

	var out *types.QueryResponse
	err := o.track(ctx, "query", "process_query", func(ctx context.Context) error {
		var err error
		out, err = o.query.ProcessQuery(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	if key != "" {
		o.store(ctx, key, out, o.ttls.Query)
	}
	return out, nil
}

// SetProjectAnalyzer attaches a documentation project analyzer whose
// consistency score is blended into workflow quality metrics.
func (o *Orchestrator) SetProjectAnalyzer(src ConsistencySource) {
	o.project = src
}

// QueryHistory returns the conversation history for a session.
func (o *Orchestrator) QueryHistory(ctx context.Context, sessionID string) []types.Exchange {
	return o.query.History(ctx, sessionID)
}

// RunWorkflow executes a content workflow end to end and persists the
// result for later retrieval.
func (o *Orchestrator) RunWorkflow(ctx context.Context, req *types.WorkflowRequest) (*types.WorkflowResult, error) {
	result := &types.WorkflowResult{
		ID:   uuid.NewString(),
		Type: req.Type,
		Metadata: types.WorkflowMetadata{
			Timestamp: time.Now().UTC(),
		},
	}

	err := o.track(ctx, "orchestrator", "run_workflow", func(ctx context.Context) error {
		switch req.Type {
		case types.WorkflowNewContent:
			return o.workflowNewContent(ctx, req, result)
		case types.WorkflowUpdate:
			return o.workflowUpdate(ctx, req, result)
		case types.WorkflowReview:
			return o.workflowReview(ctx, req, result)
		default:
			return types.NewError(types.ErrInvalidRequest, "unknown workflow type: "+string(req.Type)).
				WithHTTPStatus(http.StatusBadRequest)
		}
	})
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		key := cache.Key(cache.PrefixWorkflow, result.ID)
		if err := o.cache.SetJSON(ctx, key, result, o.ttls.Workflow); err != nil {
			o.logger.Warn("failed to persist workflow result", zap.Error(err))
		}
	}

	o.logger.Info("workflow completed",
		zap.String("workflow_id", result.ID),
		zap.String("type", string(result.Type)),
	)
	return result, nil
}

// WorkflowStatus retrieves a persisted workflow result.
func (o *Orchestrator) WorkflowStatus(ctx context.Context, id string) (*types.WorkflowResult, error) {
	if o.cache == nil {
		return nil, types.NewError(types.ErrNotFound, "workflow storage is not configured").
			WithHTTPStatus(http.StatusNotFound)
	}

	var result types.WorkflowResult
	err := o.cache.GetJSON(ctx, cache.Key(cache.PrefixWorkflow, id), &result)
	if cache.IsCacheMiss(err) {
		return nil, types.NewError(types.ErrNotFound, "workflow not found: "+id).
			WithHTTPStatus(http.StatusNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *Orchestrator) workflowNewContent(ctx context.Context, req *types.WorkflowRequest, result *types.WorkflowResult) error {
	draft, err := o.drafting.CreateDraft(ctx, &types.DraftRequest{
		Title:         req.Title,
		DocType:       req.DocType,
		JiraKeys:      req.JiraKeys,
		ConfluenceIDs: req.ConfluenceIDs,
	})
	if err != nil {
		return err
	}
	result.Content = draft
	for _, ref := range draft.References {
		result.Metadata.ContextUsed = append(result.Metadata.ContextUsed, ref.Type+":"+refID(ref))
	}

	qm, err := o.review.CheckQuality(ctx, draft.Content, o.consistency(draft.Analysis))
	if err != nil {
		o.logger.Warn("quality check skipped", zap.Error(err))
		return nil
	}
	result.QualityMetrics = *qm
	return nil
}

func (o *Orchestrator) workflowUpdate(ctx context.Context, req *types.WorkflowRequest, result *types.WorkflowResult) error {
	if strings.TrimSpace(req.Content) == "" {
		return types.NewError(types.ErrInvalidRequest, "update workflow requires content").
			WithHTTPStatus(http.StatusBadRequest)
	}

	updates := make([]string, 0, len(req.Updates))
	for field, change := range req.Updates {
		updates = append(updates, field+": "+change)
	}

	draft, err := o.drafting.UpdateContent(ctx, req.Content, updates, nil)
	if err != nil {
		return err
	}
	result.Content = draft

	qm, err := o.review.CheckQuality(ctx, draft.Content, o.consistency(draft.Analysis))
	if err != nil {
		o.logger.Warn("quality check skipped", zap.Error(err))
		return nil
	}
	result.QualityMetrics = *qm
	return nil
}

func refID(ref types.Reference) string {
	if ref.Key != "" {
		return ref.Key
	}
	return ref.ID
}

func (o *Orchestrator) workflowReview(ctx context.Context, req *types.WorkflowRequest, result *types.WorkflowResult) error {
	if strings.TrimSpace(req.Content) == "" {
		return types.NewError(types.ErrInvalidRequest, "review workflow requires content").
			WithHTTPStatus(http.StatusBadRequest)
	}

	review, err := o.review.Review(ctx, &types.ReviewRequest{
		Content:     req.Content,
		ContentType: req.DocType,
	})
	if err != nil {
		return err
	}
	result.Content = review
	return nil
}

// SystemStatus reports component health and recent activity.
type SystemStatus struct {
	Status       string                     `json:"status"`
	Uptime       time.Duration              `json:"uptime"`
	Provider     map[string]any             `json:"provider"`
	Integrations map[string]bool            `json:"integrations"`
	Cache        bool                       `json:"cache"`
	Operations   []monitor.OperationSummary `json:"operations,omitempty"`
	Errors       *faults.Summary            `json:"errors,omitempty"`
}

// Status aggregates health across the provider, the integrations,
// and the cache.
func (o *Orchestrator) Status(ctx context.Context) *SystemStatus {
	status := &SystemStatus{
		Status:       "ok",
		Uptime:       time.Since(o.startedAt),
		Provider:     map[string]any{"name": o.provider.Name()},
		Integrations: make(map[string]bool),
	}

	if health, err := o.provider.HealthCheck(ctx); err == nil {
		status.Provider["healthy"] = health.Healthy
		status.Provider["latency_ms"] = health.Latency.Milliseconds()
		if !health.Healthy {
			status.Status = "degraded"
		}
	} else {
		status.Provider["healthy"] = false
		status.Status = "degraded"
	}

	for name, probe := range o.probes {
		healthy := probe.Healthy(ctx)
		status.Integrations[name] = healthy
		if !healthy {
			status.Status = "degraded"
		}
	}

	if o.cache != nil {
		status.Cache = o.cache.Ping(ctx) == nil
		if !status.Cache {
			status.Status = "degraded"
		}
	}

	if o.monitor != nil {
		if summaries, err := o.monitor.Summarize(ctx); err == nil {
			status.Operations = summaries
		}
	}
	if o.faults != nil {
		if summary, err := o.faults.Summarize(ctx); err == nil {
			status.Errors = summary
		}
	}

	return status
}

// lookup fetches a cached result by request fingerprint. Returns the
// computed key so a later store reuses it.
func (o *Orchestrator) lookup(ctx context.Context, kind string, req any, dest any, volatile ...string) (bool, string) {
	if o.cache == nil {
		return false, ""
	}

	key, err := cache.Fingerprint(kind, req, volatile...)
	if err != nil {
		o.logger.Warn("fingerprint failed", zap.Error(err))
		return false, ""
	}

	err = o.cache.GetJSON(ctx, key, dest)
	if err == nil {
		if o.collector != nil {
			o.collector.RecordCacheHit(kind)
		}
		o.logger.Debug("cache hit", zap.String("key", key))
		return true, key
	}
	if !cache.IsCacheMiss(err) {
		o.logger.Warn("cache lookup failed", zap.Error(err))
	} else if o.collector != nil {
		o.collector.RecordCacheMiss(kind)
	}
	return false, key
}

func (o *Orchestrator) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if o.cache == nil || key == "" {
		return
	}
	if err := o.cache.SetJSON(ctx, key, value, ttl); err != nil {
		o.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// track runs fn under the monitor and routes failures through the
// fault handler.
func (o *Orchestrator) track(ctx context.Context, agent, operation string, fn func(context.Context) error) error {
	run := fn
	if o.monitor != nil {
		run = func(ctx context.Context) error {
			return o.monitor.Track(ctx, agent, operation, fn)
		}
	}

	err := run(ctx)
	if err != nil && o.faults != nil {
		record := o.faults.Handle(ctx, err, operation, requestContext(ctx))
		if record != nil && o.collector != nil {
			o.collector.RecordError(string(record.Severity), string(record.Category))
		}
	}
	return err
}

// requestContext carries request-scoped fields into fault records.
func requestContext(ctx context.Context) map[string]any {
	if id := types.RequestIDFrom(ctx); id != "" {
		return map[string]any{"request_id": id}
	}
	return nil
}

// consistency reduces draft structure to a 0-100 figure, blended with
// the project-wide score when an analyzer is attached.
func (o *Orchestrator) consistency(analysis types.DraftAnalysis) float64 {
	score := consistencyScore(analysis)
	if o.project != nil {
		score = (score + o.project.Consistency()) / 2
	}
	return score
}

func consistencyScore(analysis types.DraftAnalysis) float64 {
	score := 100.0
	if !analysis.Structure.SequentialLevels {
		score -= 30
	}
	if analysis.Structure.HeadingCount == 0 {
		score -= 40
	}
	if score < 0 {
		score = 0
	}
	return score
}
