package agent

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/cache"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// historyLimit caps how many exchanges a session keeps.
const historyLimit = 10

var (
	howToPattern           = regexp.MustCompile(`(?i)\bhow\s+(?:do|can|to|should)\b|\bsteps?\b|\bguide\b|\btutorial\b`)
	troubleshootingPattern = regexp.MustCompile(`(?i)\berror\b|\bfail(?:s|ed|ing)?\b|\bbroken?\b|\bnot\s+work(?:s|ing)?\b|\bissue\b|\bproblem\b|\bdebug\b|\bfix\b`)
	conceptualPattern      = regexp.MustCompile(`(?i)\bwhat\s+is\b|\bwhat\s+are\b|\bwhy\b|\bexplain\b|\bdifference\s+between\b|\bmean(?:s|ing)?\b`)
	referencePattern       = regexp.MustCompile(`(?i)\bparameters?\b|\boptions?\b|\bsyntax\b|\bschema\b|\bendpoints?\b|\bfields?\b|\bdefaults?\b`)

	advancedPattern = regexp.MustCompile(`(?i)\binternals?\b|\barchitecture\b|\boptimiz\w+\b|\bperformance\s+tun\w+\b|\bconcurrenc\w+\b|\bscal(?:e|ing|ability)\b`)
	beginnerPattern = regexp.MustCompile(`(?i)\bbasics?\b|\bbeginner\b|\bgetting\s+started\b|\bnew\s+to\b|\bfirst\s+time\b|\bsimple\b`)

	stopWords = map[string]bool{
		"the": true, "a": true, "an": true, "is": true, "are": true, "to": true,
		"how": true, "do": true, "i": true, "can": true, "what": true, "why": true,
		"in": true, "on": true, "of": true, "for": true, "my": true, "with": true,
		"and": true, "or": true, "it": true, "this": true, "that": true,
	}
)

// domainPatterns pair a technical domain with its trigger terms.
// Order matters: the first matching domain wins, and the more
// specific domains are listed before the catch-all api patterns.
var domainPatterns = []struct {
	domain  string
	pattern *regexp.Regexp
}{
	{"authentication", regexp.MustCompile(`(?i)\bauth\w*\b|\blogin\b|\btokens?\b|\bcredentials?\b|\bsso\b|\boauth\b|\bsessions?\b`)},
	{"database", regexp.MustCompile(`(?i)\bdatabase\b|\bsql\b|\btables?\b|\bschemas?\b|\bmigrations?\b`)},
	{"deployment", regexp.MustCompile(`(?i)\bdeploy\w*\b|\brelease\b|\bkubernetes\b|\bdocker\b|\bci/?cd\b|\bpipeline\b`)},
	{"security", regexp.MustCompile(`(?i)\bsecurity\b|\bencrypt\w*\b|\bvulnerab\w+\b|\bpermissions?\b|\baccess\s+control\b`)},
	{"api", regexp.MustCompile(`(?i)\bapi\b|\bendpoints?\b|\brest\b|\brequests?\b|\bresponses?\b`)},
}

// QueryAgent answers documentation questions, classifying each query
// to pick a response strategy and tracking per-session history.
type QueryAgent struct {
	provider   llm.Provider
	pages      PageSource
	cache      *cache.Manager
	logger     *zap.Logger
	historyTTL time.Duration

	mu      sync.Mutex
	history map[string][]types.Exchange
}

// SetHistoryTTL sets how long persisted session history lives in the
// cache. Zero falls back to the cache manager's default.
func (a *QueryAgent) SetHistoryTTL(ttl time.Duration) {
	a.historyTTL = ttl
}

// NewQueryAgent creates a query agent. pages and cacheMgr may be nil.
func NewQueryAgent(provider llm.Provider, pages PageSource, cacheMgr *cache.Manager, logger *zap.Logger) *QueryAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryAgent{
		provider: provider,
		pages:    pages,
		cache:    cacheMgr,
		logger:   logger.With(zap.String("component", "query_agent")),
		history:  make(map[string][]types.Exchange),
	}
}

// ProcessQuery classifies, answers, and records a query.
func (a *QueryAgent) ProcessQuery(ctx context.Context, req *types.QueryRequest) (*types.QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "query cannot be empty").
			WithHTTPStatus(http.StatusBadRequest)
	}

	analysis := ClassifyQuery(req.Query)

	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Messages: a.buildMessages(ctx, req, analysis),
	})
	if err != nil {
		return nil, err
	}

	response := &types.QueryResponse{
		Query:    req.Query,
		Response: resp.Text(),
		Metadata: types.QueryMetadata{
			QueryType:      analysis.Type,
			Domain:         analysis.Domain,
			ExpertiseLevel: analysis.ExpertiseLevel,
			GeneratedAt:    time.Now().UTC(),
		},
		RelatedQueries: followUpQueries(analysis),
	}

	// References are best effort: a documentation search failure never
	// blocks the answer.
	if a.pages != nil && len(analysis.KeyTerms) > 0 {
		pages, err := a.pages.Search(ctx, strings.Join(analysis.KeyTerms, " "), 3)
		if err != nil {
			a.logger.Warn("documentation search failed", zap.Error(err))
		} else {
			for _, page := range pages {
				response.References = append(response.References, types.Reference{
					Type:  "confluence",
					ID:    page.ID,
					Title: page.Title,
				})
			}
		}
	}

	if req.SessionID != "" {
		a.recordExchange(ctx, req.SessionID, types.Exchange{
			Timestamp: time.Now().UTC(),
			Query:     req.Query,
			Response:  response,
		})
	}

	a.logger.Info("query answered",
		zap.String("type", string(analysis.Type)),
		zap.String("domain", analysis.Domain),
		zap.Int("references", len(response.References)),
	)

	return response, nil
}

// ClassifyQuery derives the query type, domain, and expertise level
// from pattern matching over the question text.
func ClassifyQuery(query string) types.QueryAnalysis {
	analysis := types.QueryAnalysis{
		Type:           types.QueryGeneral,
		Domain:         "general",
		ExpertiseLevel: "intermediate",
		ResponseFormat: "prose",
	}

	// Troubleshooting wins over how-to: "how do I fix this error"
	// is a troubleshooting question.
	switch {
	case troubleshootingPattern.MatchString(query):
		analysis.Type = types.QueryTroubleshooting
		analysis.ResponseFormat = "diagnostic"
	case howToPattern.MatchString(query):
		analysis.Type = types.QueryHowTo
		analysis.ResponseFormat = "steps"
	case referencePattern.MatchString(query):
		analysis.Type = types.QueryReference
		analysis.ResponseFormat = "table"
	case conceptualPattern.MatchString(query):
		analysis.Type = types.QueryConceptual
		analysis.ResponseFormat = "prose"
	}

	for _, dp := range domainPatterns {
		if dp.pattern.MatchString(query) {
			analysis.Domain = dp.domain
			break
		}
	}

	switch {
	case advancedPattern.MatchString(query):
		analysis.ExpertiseLevel = "advanced"
	case beginnerPattern.MatchString(query):
		analysis.ExpertiseLevel = "beginner"
	}

	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?\"'()")
		if len(word) > 2 && !stopWords[word] {
			analysis.KeyTerms = append(analysis.KeyTerms, word)
		}
	}

	return analysis
}

// History returns the recorded exchanges for a session, newest last.
func (a *QueryAgent) History(ctx context.Context, sessionID string) []types.Exchange {
	a.mu.Lock()
	local, ok := a.history[sessionID]
	a.mu.Unlock()
	if ok {
		return local
	}

	if a.cache != nil {
		var stored []types.Exchange
		key := cache.Key(cache.PrefixQueryHistory, sessionID)
		if err := a.cache.GetJSON(ctx, key, &stored); err == nil {
			a.mu.Lock()
			a.history[sessionID] = stored
			a.mu.Unlock()
			return stored
		}
	}
	return nil
}

func (a *QueryAgent) buildMessages(ctx context.Context, req *types.QueryRequest, analysis types.QueryAnalysis) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: querySystemPrompt(req, analysis)},
	}

	// Replay recent history so follow-up questions resolve naturally.
	if req.SessionID != "" {
		for _, exchange := range a.History(ctx, req.SessionID) {
			messages = append(messages,
				llm.Message{Role: llm.RoleUser, Content: exchange.Query},
				llm.Message{Role: llm.RoleAssistant, Content: exchange.Response.Response},
			)
		}
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: req.Query})
}

func querySystemPrompt(req *types.QueryRequest, analysis types.QueryAnalysis) string {
	var b strings.Builder
	b.WriteString("You are a documentation assistant answering questions about internal technical documentation.\n")

	switch analysis.Type {
	case types.QueryHowTo:
		b.WriteString("Answer with a numbered list of concrete steps, each starting with an action verb.")
	case types.QueryTroubleshooting:
		b.WriteString("Answer with likely causes first, then diagnostic steps, then the fix for each cause.")
	case types.QueryReference:
		b.WriteString("Answer with a precise reference listing: names, types, defaults, and constraints.")
	case types.QueryConceptual:
		b.WriteString("Answer with a clear explanation building from the fundamentals, with a short example.")
	default:
		b.WriteString("Answer clearly and concisely.")
	}

	fmt.Fprintf(&b, "\nAssume the reader has %s expertise", analysis.ExpertiseLevel)
	if analysis.Domain != "general" {
		fmt.Fprintf(&b, " in the %s domain", analysis.Domain)
	}
	b.WriteString(".")

	for key, value := range req.Context {
		fmt.Fprintf(&b, "\nContext %s: %s", key, value)
	}
	appendStyleGuide(&b, req.StyleGuide)

	return b.String()
}

// recordExchange appends to the capped session history and mirrors it
// to Redis so sessions survive restarts.
func (a *QueryAgent) recordExchange(ctx context.Context, sessionID string, exchange types.Exchange) {
	a.mu.Lock()
	history := append(a.history[sessionID], exchange)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	a.history[sessionID] = history
	a.mu.Unlock()

	if a.cache != nil {
		key := cache.Key(cache.PrefixQueryHistory, sessionID)
		if err := a.cache.SetJSON(ctx, key, history, a.historyTTL); err != nil {
			a.logger.Warn("failed to persist session history", zap.Error(err))
		}
	}
}

func followUpQueries(analysis types.QueryAnalysis) []string {
	domain := analysis.Domain
	if domain == "general" {
		domain = "this topic"
	}

	switch analysis.Type {
	case types.QueryHowTo:
		return []string{
			fmt.Sprintf("What are common mistakes when working with %s?", domain),
			fmt.Sprintf("How do I verify the %s setup worked?", domain),
		}
	case types.QueryTroubleshooting:
		return []string{
			fmt.Sprintf("How do I prevent %s issues in the future?", domain),
			fmt.Sprintf("Where are the %s logs located?", domain),
		}
	case types.QueryReference:
		return []string{
			fmt.Sprintf("Are there examples of %s usage?", domain),
		}
	case types.QueryConceptual:
		return []string{
			fmt.Sprintf("How do I get started with %s?", domain),
		}
	default:
		return nil
	}
}
