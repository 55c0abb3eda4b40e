package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docuflow/docuflow/integrations/confluence"
	"github.com/docuflow/docuflow/integrations/jira"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// IssueSource fetches JIRA issues for context gathering. Satisfied by
// the jira client.
type IssueSource interface {
	GetIssues(ctx context.Context, keys []string) ([]*jira.Issue, error)
}

// PageSource fetches Confluence pages for context gathering.
// Satisfied by the confluence client.
type PageSource interface {
	GetPages(ctx context.Context, ids []string) ([]*confluence.Page, error)
	Search(ctx context.Context, text string, limit int) ([]*confluence.Page, error)
}

// DraftingAgent generates documentation drafts, grounding them in
// JIRA and Confluence context where available.
type DraftingAgent struct {
	provider llm.Provider
	issues   IssueSource
	pages    PageSource
	logger   *zap.Logger
}

// NewDraftingAgent creates a drafting agent. issues and pages may be
// nil when the integrations are not configured.
func NewDraftingAgent(provider llm.Provider, issues IssueSource, pages PageSource, logger *zap.Logger) *DraftingAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftingAgent{
		provider: provider,
		issues:   issues,
		pages:    pages,
		logger:   logger.With(zap.String("component", "drafting_agent")),
	}
}

// draftContext is the gathered external context for one draft.
type draftContext struct {
	issues []*jira.Issue
	pages  []*confluence.Page
}

// CreateDraft generates a new documentation draft.
func (a *DraftingAgent) CreateDraft(ctx context.Context, req *types.DraftRequest) (*types.Draft, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "title cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}

	dctx := a.gatherContext(ctx, req.JiraKeys, req.ConfluenceIDs)

	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: draftSystemPrompt(req)},
			{Role: llm.RoleUser, Content: draftUserPrompt(req, dctx)},
		},
	})
	if err != nil {
		return nil, err
	}

	content := resp.Text()
	draft := &types.Draft{
		Content: content,
		Metadata: types.DraftMetadata{
			GeneratedAt: time.Now().UTC(),
			DocType:     req.DocType,
		},
		Analysis: types.DraftAnalysis{
			Structure:    AnalyzeStructure(content),
			Readability:  AnalyzeContent(content),
			Technical:    AnalyzeTechnical(content),
			Completeness: AnalyzeCompleteness(content),
		},
		References: contextReferences(dctx),
	}
	for _, issue := range dctx.issues {
		draft.Metadata.RelatedIssues = append(draft.Metadata.RelatedIssues, issue.Key)
	}
	for _, page := range dctx.pages {
		draft.Metadata.RelatedPages = append(draft.Metadata.RelatedPages, page.ID)
	}

	draft.Suggestions = a.improvementSuggestions(ctx, draft)

	a.logger.Info("draft created",
		zap.String("title", req.Title),
		zap.Int("words", draft.Analysis.Readability.WordCount),
		zap.Float64("completeness", draft.Analysis.Completeness.Score),
	)

	return draft, nil
}

// UpdateContent revises existing content according to the requested
// updates while preserving its structure and voice.
func (a *DraftingAgent) UpdateContent(ctx context.Context, content string, updates []string, styleGuide map[string]string) (*types.Draft, error) {
	if strings.TrimSpace(content) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "content cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if len(updates) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "updates cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}

	var system strings.Builder
	system.WriteString("You are a technical writer revising existing documentation. Apply the requested updates while preserving the document structure, tone, and formatting. Return only the full revised document.")
	appendStyleGuide(&system, styleGuide)

	var user strings.Builder
	user.WriteString("Updates to apply:\n")
	for _, update := range updates {
		fmt.Fprintf(&user, "- %s\n", update)
	}
	user.WriteString("\nCurrent document:\n\n")
	user.WriteString(content)

	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system.String()},
			{Role: llm.RoleUser, Content: user.String()},
		},
	})
	if err != nil {
		return nil, err
	}

	revised := resp.Text()
	return &types.Draft{
		Content: revised,
		Metadata: types.DraftMetadata{
			GeneratedAt: time.Now().UTC(),
		},
		Analysis: types.DraftAnalysis{
			Structure:    AnalyzeStructure(revised),
			Readability:  AnalyzeContent(revised),
			Technical:    AnalyzeTechnical(revised),
			Completeness: AnalyzeCompleteness(revised),
		},
	}, nil
}

// gatherContext fetches JIRA and Confluence context in parallel.
// Failures are logged and the draft proceeds without that context.
func (a *DraftingAgent) gatherContext(ctx context.Context, jiraKeys, confluenceIDs []string) *draftContext {
	dctx := &draftContext{}

	g, gctx := errgroup.WithContext(ctx)
	if a.issues != nil && len(jiraKeys) > 0 {
		g.Go(func() error {
			issues, err := a.issues.GetIssues(gctx, jiraKeys)
			if err != nil {
				a.logger.Warn("jira context unavailable", zap.Error(err))
				return nil
			}
			dctx.issues = issues
			return nil
		})
	}
	if a.pages != nil && len(confluenceIDs) > 0 {
		g.Go(func() error {
			pages, err := a.pages.GetPages(gctx, confluenceIDs)
			if err != nil {
				a.logger.Warn("confluence context unavailable", zap.Error(err))
				return nil
			}
			dctx.pages = pages
			return nil
		})
	}
	g.Wait()

	return dctx
}

// improvementSuggestions asks the model for concrete improvements.
// A failure here never sinks the draft.
func (a *DraftingAgent) improvementSuggestions(ctx context.Context, draft *types.Draft) []string {
	var suggestions []string
	for _, section := range missingSections(draft.Analysis.Completeness) {
		suggestions = append(suggestions, "Add a "+section+" section")
	}

	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a documentation editor. List up to five concrete improvements for the draft, one per line starting with \"- \"."},
			{Role: llm.RoleUser, Content: draft.Content},
		},
	})
	if err != nil {
		a.logger.Warn("suggestion pass failed", zap.Error(err))
		return suggestions
	}

	for _, line := range strings.Split(resp.Text(), "\n") {
		item := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if item != "" {
			suggestions = append(suggestions, item)
		}
	}
	return suggestions
}

func draftSystemPrompt(req *types.DraftRequest) string {
	var b strings.Builder
	docType := req.DocType
	if docType == "" {
		docType = "technical documentation"
	}
	fmt.Fprintf(&b, "You are a technical writer creating %s. Produce a complete markdown document with clear headings covering overview, prerequisites, steps, examples, and references where applicable.", docType)
	appendStyleGuide(&b, req.StyleGuide)
	return b.String()
}

func draftUserPrompt(req *types.DraftRequest, dctx *draftContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)

	if len(req.Requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, r := range req.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(req.Specifications) > 0 {
		b.WriteString("\nSpecifications:\n")
		for _, s := range req.Specifications {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	for _, issue := range dctx.issues {
		fmt.Fprintf(&b, "\nRelated issue %s: %s\n%s\n", issue.Key, issue.Fields.Summary, issue.Fields.Description)
	}
	for _, page := range dctx.pages {
		fmt.Fprintf(&b, "\nRelated page %q:\n%s\n", page.Title, truncate(page.Body.Storage.Value, 2000))
	}

	return b.String()
}

func contextReferences(dctx *draftContext) []types.Reference {
	var refs []types.Reference
	for _, issue := range dctx.issues {
		refs = append(refs, types.Reference{
			Type:  "jira",
			ID:    issue.ID,
			Key:   issue.Key,
			Title: issue.Fields.Summary,
			URL:   issue.Self,
		})
	}
	for _, page := range dctx.pages {
		refs = append(refs, types.Reference{
			Type:  "confluence",
			ID:    page.ID,
			Title: page.Title,
		})
	}
	return refs
}

func appendStyleGuide(b *strings.Builder, styleGuide map[string]string) {
	if len(styleGuide) == 0 {
		return
	}
	b.WriteString("\n\nApply this style guide:\n")
	for rule, value := range styleGuide {
		fmt.Fprintf(b, "- %s: %s\n", rule, value)
	}
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
