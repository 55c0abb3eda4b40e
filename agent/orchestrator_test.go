package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/internal/faults"
	"github.com/docuflow/docuflow/internal/monitor"
	"github.com/docuflow/docuflow/types"
)

func setupOrchestrator(t *testing.T, provider *mockProvider) (*Orchestrator, *cache.Manager) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	logger := zap.NewNop()
	review := NewReviewAgent(provider, nil, logger)
	drafting := NewDraftingAgent(provider, nil, nil, logger)
	query := NewQueryAgent(provider, nil, mgr, logger)
	mon := monitor.New(monitor.DefaultConfig(), mgr, nil, logger)
	faultHandler := faults.NewHandler(faults.DefaultConfig(), mgr, logger)

	orch := NewOrchestrator(review, drafting, query, provider, mgr, mon, faultHandler, nil,
		map[string]HealthProbe{"acrolinx": &mockProbe{healthy: true}},
		DefaultCacheTTLs(), logger)

	return orch, mgr
}

func TestOrchestrator_ReviewCaching(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	req := &types.ReviewRequest{Content: "The API accepts JSON."}

	first, err := orch.Review(ctx, req)
	require.NoError(t, err)
	calls := provider.calls.Load()

	second, err := orch.Review(ctx, req)
	require.NoError(t, err)

	// Served from cache, no further model calls.
	assert.Equal(t, calls, provider.calls.Load())
	assert.Equal(t, len(first.Issues), len(second.Issues))
}

func TestOrchestrator_ReviewCacheIgnoresReference(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	_, err := orch.Review(ctx, &types.ReviewRequest{Content: "Same content.", Reference: "a"})
	require.NoError(t, err)
	calls := provider.calls.Load()

	_, err = orch.Review(ctx, &types.ReviewRequest{Content: "Same content.", Reference: "b"})
	require.NoError(t, err)
	assert.Equal(t, calls, provider.calls.Load())
}

func TestOrchestrator_QuerySessionNotCached(t *testing.T) {
	provider := &mockProvider{responses: []string{"answer"}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	req := &types.QueryRequest{Query: "What is the API?", SessionID: "s1"}

	_, err := orch.Query(ctx, req)
	require.NoError(t, err)
	calls := provider.calls.Load()

	_, err = orch.Query(ctx, req)
	require.NoError(t, err)
	assert.Greater(t, provider.calls.Load(), calls)
}

func TestOrchestrator_QueryCachedWithoutSession(t *testing.T) {
	provider := &mockProvider{responses: []string{"answer"}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	req := &types.QueryRequest{Query: "What is the API?"}

	_, err := orch.Query(ctx, req)
	require.NoError(t, err)
	calls := provider.calls.Load()

	_, err = orch.Query(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, calls, provider.calls.Load())
}

func TestOrchestrator_Workflow_NewContent(t *testing.T) {
	provider := &mockProvider{responses: []string{sampleDoc, "- suggestion"}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	result, err := orch.RunWorkflow(ctx, &types.WorkflowRequest{
		Type:  types.WorkflowNewContent,
		Title: "Deployment Guide",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, types.WorkflowNewContent, result.Type)
	assert.Equal(t, 1.0, result.QualityMetrics.CompletenessScore)
	assert.Greater(t, result.QualityMetrics.QualityScore, 0.0)

	// The result is retrievable by id.
	stored, err := orch.WorkflowStatus(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
}

type fixedConsistency struct{ score float64 }

func (f fixedConsistency) Consistency() float64 { return f.score }

func TestOrchestrator_Workflow_ProjectConsistencyBlend(t *testing.T) {
	provider := &mockProvider{responses: []string{sampleDoc, "- suggestion"}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	baseline, err := orch.RunWorkflow(ctx, &types.WorkflowRequest{
		Type:  types.WorkflowNewContent,
		Title: "Deployment Guide",
	})
	require.NoError(t, err)

	provider2 := &mockProvider{responses: []string{sampleDoc, "- suggestion"}}
	orch2, _ := setupOrchestrator(t, provider2)
	orch2.SetProjectAnalyzer(fixedConsistency{score: 0})

	blended, err := orch2.RunWorkflow(ctx, &types.WorkflowRequest{
		Type:  types.WorkflowNewContent,
		Title: "Deployment Guide",
	})
	require.NoError(t, err)

	assert.Equal(t, baseline.QualityMetrics.ConsistencyScore/2, blended.QualityMetrics.ConsistencyScore)
}

func TestOrchestrator_Workflow_Review(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	orch, _ := setupOrchestrator(t, provider)

	result, err := orch.RunWorkflow(context.Background(), &types.WorkflowRequest{
		Type:    types.WorkflowReview,
		Content: "Content to review.",
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Content)
}

func TestOrchestrator_Workflow_UpdateRequiresContent(t *testing.T) {
	provider := &mockProvider{responses: []string{"revised"}}
	orch, _ := setupOrchestrator(t, provider)

	_, err := orch.RunWorkflow(context.Background(), &types.WorkflowRequest{
		Type:    types.WorkflowUpdate,
		Updates: map[string]string{"port": "use 8443"},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestOrchestrator_Workflow_UnknownType(t *testing.T) {
	provider := &mockProvider{}
	orch, _ := setupOrchestrator(t, provider)

	_, err := orch.RunWorkflow(context.Background(), &types.WorkflowRequest{Type: "mystery"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestOrchestrator_WorkflowStatus_NotFound(t *testing.T) {
	provider := &mockProvider{}
	orch, _ := setupOrchestrator(t, provider)

	_, err := orch.WorkflowStatus(context.Background(), "missing-id")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestOrchestrator_FailureRecordedAsFault(t *testing.T) {
	provider := &mockProvider{err: types.NewError(types.ErrUpstreamError, "model down")}
	orch, mgr := setupOrchestrator(t, provider)
	ctx := context.Background()

	_, err := orch.Review(ctx, &types.ReviewRequest{Content: "content"})
	require.Error(t, err)

	keys, err := mgr.Scan(ctx, cache.PrefixError+":*")
	require.NoError(t, err)
	assert.NotEmpty(t, keys)
}

func TestOrchestrator_Status(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	orch, _ := setupOrchestrator(t, provider)
	ctx := context.Background()

	_, err := orch.Review(ctx, &types.ReviewRequest{Content: "content to review"})
	require.NoError(t, err)

	status := orch.Status(ctx)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "mock", status.Provider["name"])
	assert.True(t, status.Integrations["acrolinx"])
	assert.True(t, status.Cache)
	assert.NotEmpty(t, status.Operations)
}

func TestOrchestrator_Status_DegradedProbe(t *testing.T) {
	provider := &mockProvider{}
	orch, _ := setupOrchestrator(t, provider)
	orch.probes["jira"] = &mockProbe{healthy: false}

	status := orch.Status(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Integrations["jira"])
}
