package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/integrations/acrolinx"
	"github.com/docuflow/docuflow/types"
)

const reviewFeedback = `TECHNICAL ISSUES:
- The endpoint path is wrong
STYLE ISSUES:
- Passive voice in the second paragraph
STRUCTURE ISSUES:
- none
COMPLETENESS ISSUES:
- Missing a prerequisites section
ACTIONABLE SUGGESTIONS:
- Add a request example
- Link the authentication guide`

func TestParseReviewFeedback(t *testing.T) {
	feedback := parseReviewFeedback(reviewFeedback)

	assert.Equal(t, []string{"The endpoint path is wrong"}, feedback.TechnicalIssues)
	assert.Equal(t, []string{"Passive voice in the second paragraph"}, feedback.StyleIssues)
	assert.Empty(t, feedback.StructureIssues)
	assert.Equal(t, []string{"Missing a prerequisites section"}, feedback.CompletenessIssues)
	assert.Len(t, feedback.Suggestions, 2)
}

func TestParseReviewFeedback_Preamble(t *testing.T) {
	feedback := parseReviewFeedback("Here is my review.\n\nSTYLE ISSUES:\n- Too informal")
	assert.Equal(t, []string{"Too informal"}, feedback.StyleIssues)
	assert.Empty(t, feedback.TechnicalIssues)
}

func TestReview_Success(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	agent := NewReviewAgent(provider, nil, zap.NewNop())

	result, err := agent.Review(context.Background(), &types.ReviewRequest{
		Content:     "The API accepts JSON. Responses are returned quickly.",
		ContentType: "api_doc",
	})
	require.NoError(t, err)

	assert.Len(t, result.Issues, 3)
	assert.Len(t, result.Suggestions, 2)
	require.NotNil(t, result.QualityScore)
	assert.Greater(t, *result.QualityScore, 0.0)
	assert.Greater(t, result.Metrics.WordCount, 0)
	assert.Equal(t, "api_doc", result.Metadata["content_type"])
}

func TestReview_EmptyContent(t *testing.T) {
	agent := NewReviewAgent(&mockProvider{}, nil, zap.NewNop())

	_, err := agent.Review(context.Background(), &types.ReviewRequest{Content: "   "})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestReview_StyleGuideInPrompt(t *testing.T) {
	provider := &mockProvider{responses: []string{reviewFeedback}}
	agent := NewReviewAgent(provider, nil, zap.NewNop())

	_, err := agent.Review(context.Background(), &types.ReviewRequest{
		Content:    "Content under review.",
		StyleGuide: map[string]string{"voice": "active"},
	})
	require.NoError(t, err)
	require.NotNil(t, provider.lastReq)
	assert.Contains(t, provider.lastReq.Messages[0].Content, "voice: active")
}

func TestReview_WithChecker(t *testing.T) {
	score := 78.0
	checker := &mockChecker{
		result: &acrolinx.CheckResult{
			QualityScore: &score,
			Issues: []types.Issue{
				{Type: "quality", Category: "spelling", Severity: types.SeverityError, Message: "typo"},
			},
			Guidance: acrolinx.Guidance{Recommendations: []string{"Fix flagged issues"}},
			Metadata: acrolinx.CheckMetadata{CheckID: "check-1"},
		},
	}
	provider := &mockProvider{responses: []string{reviewFeedback}}
	agent := NewReviewAgent(provider, checker, zap.NewNop())

	result, err := agent.Review(context.Background(), &types.ReviewRequest{Content: "Some content to check."})
	require.NoError(t, err)

	require.NotNil(t, result.QualityScore)
	assert.Equal(t, 78.0, *result.QualityScore)
	assert.Len(t, result.Issues, 4)
	assert.Equal(t, "check-1", result.Metadata["quality_check_id"])
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestReview_CheckerFailureIsNonFatal(t *testing.T) {
	checker := &mockChecker{err: errors.New("acrolinx unreachable")}
	provider := &mockProvider{responses: []string{reviewFeedback}}
	agent := NewReviewAgent(provider, checker, zap.NewNop())

	result, err := agent.Review(context.Background(), &types.ReviewRequest{Content: "Some content."})
	require.NoError(t, err)
	assert.Equal(t, "failed", result.Metadata["quality_check"])
	require.NotNil(t, result.QualityScore)
}

func TestReview_ProviderError(t *testing.T) {
	provider := &mockProvider{err: types.NewError(types.ErrUpstreamError, "down")}
	agent := NewReviewAgent(provider, nil, zap.NewNop())

	_, err := agent.Review(context.Background(), &types.ReviewRequest{Content: "Some content."})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestCheckQuality(t *testing.T) {
	agent := NewReviewAgent(&mockProvider{}, nil, zap.NewNop())

	qm, err := agent.CheckQuality(context.Background(), sampleDoc, 90)
	require.NoError(t, err)

	assert.Equal(t, 1.0, qm.CompletenessScore)
	assert.Equal(t, 90.0, qm.ConsistencyScore)
	assert.Greater(t, qm.QualityScore, 0.0)
}

func TestCheckQuality_EmptyContent(t *testing.T) {
	agent := NewReviewAgent(&mockProvider{}, nil, zap.NewNop())

	_, err := agent.CheckQuality(context.Background(), "", 0)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestDerivedQualityScore_Floor(t *testing.T) {
	issues := make([]types.Issue, 20)
	for i := range issues {
		issues[i] = types.Issue{Severity: types.SeverityCritical}
	}
	assert.Equal(t, 0.0, derivedQualityScore(issues, types.ContentMetrics{}))
}
