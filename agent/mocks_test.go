package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/docuflow/docuflow/integrations/acrolinx"
	"github.com/docuflow/docuflow/integrations/confluence"
	"github.com/docuflow/docuflow/integrations/jira"
	"github.com/docuflow/docuflow/llm"
)

// mockProvider returns canned responses in order, falling back to the
// last one when exhausted.
type mockProvider struct {
	responses []string
	err       error
	failAfter int // fail calls past this count when > 0
	calls     atomic.Int32
	lastReq   *llm.ChatRequest
}

func (m *mockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	n := int(m.calls.Add(1)) - 1
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.failAfter > 0 && n >= m.failAfter {
		return nil, errors.New("provider unavailable")
	}

	content := ""
	if len(m.responses) > 0 {
		if n >= len(m.responses) {
			n = len(m.responses) - 1
		}
		content = m.responses[n]
	}
	return &llm.ChatResponse{
		ID:       "mock-1",
		Provider: "mock",
		Model:    "mock-model",
		Choices: []llm.ChatChoice{
			{Message: llm.Message{Role: llm.RoleAssistant, Content: content}},
		},
		Usage: llm.ChatUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (m *mockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}

func (m *mockProvider) Name() string { return "mock" }

type mockChecker struct {
	result *acrolinx.CheckResult
	err    error
	calls  atomic.Int32
}

func (m *mockChecker) CheckContent(ctx context.Context, content, contentFormat string) (*acrolinx.CheckResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

type mockIssueSource struct {
	issues []*jira.Issue
	err    error
}

func (m *mockIssueSource) GetIssues(ctx context.Context, keys []string) ([]*jira.Issue, error) {
	return m.issues, m.err
}

type mockPageSource struct {
	pages   []*confluence.Page
	results []*confluence.Page
	err     error
}

func (m *mockPageSource) GetPages(ctx context.Context, ids []string) ([]*confluence.Page, error) {
	return m.pages, m.err
}

func (m *mockPageSource) Search(ctx context.Context, text string, limit int) ([]*confluence.Page, error) {
	return m.results, m.err
}

type mockProbe struct{ healthy bool }

func (m *mockProbe) Healthy(ctx context.Context) bool { return m.healthy }
