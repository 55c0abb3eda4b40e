package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/integrations/acrolinx"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// QualityChecker submits content to an external quality platform.
// Satisfied by the Acrolinx client.
type QualityChecker interface {
	CheckContent(ctx context.Context, content, contentFormat string) (*acrolinx.CheckResult, error)
}

// ReviewAgent reviews documentation content by combining AI feedback
// with readability metrics and an optional external quality check.
type ReviewAgent struct {
	provider llm.Provider
	checker  QualityChecker
	logger   *zap.Logger
}

// NewReviewAgent creates a review agent. checker may be nil.
func NewReviewAgent(provider llm.Provider, checker QualityChecker, logger *zap.Logger) *ReviewAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewAgent{
		provider: provider,
		checker:  checker,
		logger:   logger.With(zap.String("component", "review_agent")),
	}
}

// Review runs the full review pass over the requested content.
func (a *ReviewAgent) Review(ctx context.Context, req *types.ReviewRequest) (*types.ReviewResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "content cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}

	metrics := AnalyzeContent(req.Content)

	feedback, err := a.aiFeedback(ctx, req, metrics)
	if err != nil {
		return nil, err
	}

	result := &types.ReviewResult{
		Issues:      feedbackIssues(feedback),
		Suggestions: feedback.Suggestions,
		Metrics:     metrics,
		Metadata: map[string]any{
			"content_type": req.ContentType,
			"model":        a.provider.Name(),
		},
		ReviewedAt: time.Now().UTC(),
	}

	// The external quality check enriches the result but never fails
	// the review.
	if a.checker != nil {
		check, err := a.checker.CheckContent(ctx, req.Content, "TEXT")
		if err != nil {
			a.logger.Warn("quality check failed, continuing with AI feedback only", zap.Error(err))
			result.Metadata["quality_check"] = "failed"
		} else {
			result.QualityScore = check.QualityScore
			result.Issues = append(result.Issues, check.Issues...)
			result.Suggestions = append(result.Suggestions, check.Guidance.Recommendations...)
			result.Metadata["quality_check_id"] = check.Metadata.CheckID
		}
	}

	if result.QualityScore == nil {
		score := derivedQualityScore(result.Issues, metrics)
		result.QualityScore = &score
	}

	a.logger.Info("review completed",
		zap.Int("issues", len(result.Issues)),
		zap.Int("suggestions", len(result.Suggestions)),
		zap.Float64("quality_score", *result.QualityScore),
	)

	return result, nil
}

// CheckQuality computes quality metrics without running the full AI
// review. Used by content workflows for the post-draft check.
func (a *ReviewAgent) CheckQuality(ctx context.Context, content string, consistency float64) (*types.QualityMetrics, error) {
	if strings.TrimSpace(content) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "content cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}

	metrics := AnalyzeContent(content)
	completeness := AnalyzeCompleteness(content)

	qm := &types.QualityMetrics{
		ReadabilityScore:  metrics.ReadabilityScore,
		ConsistencyScore:  consistency,
		CompletenessScore: completeness.Score,
	}

	if a.checker != nil {
		check, err := a.checker.CheckContent(ctx, content, "TEXT")
		if err == nil && check.QualityScore != nil {
			qm.QualityScore = *check.QualityScore
			for _, issue := range check.Issues {
				qm.Suggestions = append(qm.Suggestions, issue.Suggestions...)
			}
		} else if err != nil {
			a.logger.Warn("quality check failed during metrics pass", zap.Error(err))
		}
	}
	if qm.QualityScore == 0 {
		qm.QualityScore = (qm.ReadabilityScore + qm.ConsistencyScore + qm.CompletenessScore*100) / 3
	}

	if metrics.LongSentences > 0 {
		qm.Suggestions = append(qm.Suggestions,
			fmt.Sprintf("Break up %d sentences longer than %d words", metrics.LongSentences, longSentenceWords))
	}
	for _, section := range missingSections(completeness) {
		qm.Suggestions = append(qm.Suggestions, "Add a "+section+" section")
	}

	return qm, nil
}

func (a *ReviewAgent) aiFeedback(ctx context.Context, req *types.ReviewRequest, metrics types.ContentMetrics) (*types.AIFeedback, error) {
	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: reviewSystemPrompt(req)},
			{Role: llm.RoleUser, Content: reviewUserPrompt(req)},
		},
	})
	if err != nil {
		return nil, err
	}

	feedback := parseReviewFeedback(resp.Text())
	feedback.Metrics = metrics
	return feedback, nil
}

func reviewSystemPrompt(req *types.ReviewRequest) string {
	var b strings.Builder
	b.WriteString("You are a technical documentation reviewer. Analyze the content and report findings under these exact headings:\n")
	b.WriteString("TECHNICAL ISSUES:\nSTYLE ISSUES:\nSTRUCTURE ISSUES:\nCOMPLETENESS ISSUES:\nACTIONABLE SUGGESTIONS:\n")
	b.WriteString("List each finding on its own line starting with \"- \". Write \"none\" under a heading with no findings.")

	if len(req.StyleGuide) > 0 {
		b.WriteString("\n\nApply this style guide:\n")
		for rule, value := range req.StyleGuide {
			fmt.Fprintf(&b, "- %s: %s\n", rule, value)
		}
	}
	return b.String()
}

func reviewUserPrompt(req *types.ReviewRequest) string {
	var b strings.Builder
	if req.ContentType != "" {
		fmt.Fprintf(&b, "Content type: %s\n", req.ContentType)
	}
	if req.Reference != "" {
		fmt.Fprintf(&b, "Reference: %s\n", req.Reference)
	}
	b.WriteString("Content to review:\n\n")
	b.WriteString(req.Content)
	return b.String()
}

// parseReviewFeedback splits the model output into its labelled
// sections. Unrecognized text before the first heading is ignored.
func parseReviewFeedback(text string) *types.AIFeedback {
	feedback := &types.AIFeedback{}

	sections := map[string]*[]string{
		"TECHNICAL ISSUES":       &feedback.TechnicalIssues,
		"STYLE ISSUES":           &feedback.StyleIssues,
		"STRUCTURE ISSUES":       &feedback.StructureIssues,
		"COMPLETENESS ISSUES":    &feedback.CompletenessIssues,
		"ACTIONABLE SUGGESTIONS": &feedback.Suggestions,
	}

	var current *[]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(strings.TrimSuffix(line, ":"))
		if target, ok := sections[upper]; ok {
			current = target
			continue
		}

		if current == nil {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		*current = append(*current, item)
	}

	return feedback
}

// feedbackIssues converts sectioned feedback into typed issues.
func feedbackIssues(feedback *types.AIFeedback) []types.Issue {
	var issues []types.Issue

	add := func(category string, severity types.IssueSeverity, messages []string) {
		for _, msg := range messages {
			issues = append(issues, types.Issue{
				Type:     "ai_review",
				Category: category,
				Severity: severity,
				Message:  msg,
			})
		}
	}

	add("technical", types.SeverityError, feedback.TechnicalIssues)
	add("style", types.SeverityWarning, feedback.StyleIssues)
	add("structure", types.SeverityWarning, feedback.StructureIssues)
	add("completeness", types.SeverityInfo, feedback.CompletenessIssues)

	return issues
}

// derivedQualityScore falls back to an issue-weighted score when no
// external check ran.
func derivedQualityScore(issues []types.Issue, metrics types.ContentMetrics) float64 {
	score := 100.0
	for _, issue := range issues {
		switch issue.Severity {
		case types.SeverityCritical:
			score -= 15
		case types.SeverityError:
			score -= 8
		case types.SeverityWarning:
			score -= 4
		default:
			score -= 1
		}
	}
	score -= float64(metrics.LongSentences) * 2
	if score < 0 {
		score = 0
	}
	return score
}
