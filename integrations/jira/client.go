// Package jira implements a minimal JIRA REST client used for
// retrieving issue context during drafting and content workflows.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docuflow/docuflow/internal/tlsutil"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// Config holds the JIRA connection settings.
type Config struct {
	// BaseURL of the JIRA instance, e.g. "https://company.atlassian.net".
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Email and APIToken form the basic auth pair.
	Email    string `yaml:"email" json:"email"`
	APIToken string `yaml:"api_token" json:"api_token"`

	// Timeout for HTTP requests. Defaults to 15s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Client talks to the JIRA REST API v2.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a JIRA client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "jira_client")),
	}
}

// IssueFields carries the subset of JIRA fields the agents consume.
type IssueFields struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      struct {
		Name string `json:"name"`
	} `json:"status"`
	IssueType struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Labels []string `json:"labels"`
}

// Issue is a JIRA issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(key))

	var issue Issue
	if err := c.getJSON(ctx, endpoint, &issue); err != nil {
		return nil, err
	}

	c.logger.Debug("issue fetched", zap.String("key", issue.Key))
	return &issue, nil
}

// GetIssues fetches several issues concurrently. Failures on
// individual keys are logged and skipped so one bad key does not sink
// the whole context gathering pass.
func (c *Client) GetIssues(ctx context.Context, keys []string) ([]*Issue, error) {
	results := make([]*Issue, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, key := range keys {
		g.Go(func() error {
			issue, err := c.GetIssue(gctx, key)
			if err != nil {
				c.logger.Warn("skipping issue", zap.String("key", key), zap.Error(err))
				return nil
			}
			results[i] = issue
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := make([]*Issue, 0, len(keys))
	for _, issue := range results {
		if issue != nil {
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

// Search runs a JQL query and returns matching issues.
func (c *Client) Search(ctx context.Context, jql string, maxResults int) ([]*Issue, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	endpoint := fmt.Sprintf("%s/rest/api/2/search?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	var page struct {
		Issues []*Issue `json:"issues"`
		Total  int      `json:"total"`
	}
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Issues, nil
}

// Healthy probes the server info endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/rest/api/2/serverInfo"
	var info map[string]any
	return c.getJSON(ctx, endpoint, &info) == nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &types.Error{
			Code:       types.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Service:    "jira",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return llm.MapHTTPError(resp.StatusCode, llm.ReadErrorMessage(resp.Body), "jira")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode jira response: %w", err)
	}
	return nil
}
