// Package acrolinx implements a client for the Acrolinx content
// quality platform. Checks are submitted asynchronously and polled
// until the scorecard is ready.
package acrolinx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/tlsutil"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// Config holds the Acrolinx connection settings.
type Config struct {
	// BaseURL of the Acrolinx platform, e.g. "https://company.acrolinx.cloud".
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIToken is sent as X-Acrolinx-Auth.
	APIToken string `yaml:"api_token" json:"api_token"`

	// GuidanceProfile selects the writing guidance applied to checks.
	GuidanceProfile string `yaml:"guidance_profile" json:"guidance_profile"`

	// Timeout for individual HTTP requests. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxPolls bounds how many times a pending check is polled.
	// Defaults to 10.
	MaxPolls int `yaml:"max_polls" json:"max_polls"`

	// PollInterval is the delay between polls. Defaults to 2s.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// Client talks to the Acrolinx checking API.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates an Acrolinx client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = 10
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "acrolinx_client")),
	}
}

// Guidance groups the writing guidance returned with a scorecard.
type Guidance struct {
	Goals           []string `json:"goals,omitempty"`
	Guidelines      []string `json:"guidelines,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// CheckMetadata identifies a completed check.
type CheckMetadata struct {
	CheckID         string    `json:"check_id"`
	Timestamp       time.Time `json:"timestamp"`
	GuidanceProfile string    `json:"guidance_profile"`
}

// CheckResult is the processed outcome of a quality check.
type CheckResult struct {
	QualityScore *float64      `json:"quality_score"`
	Issues       []types.Issue `json:"issues"`
	Guidance     Guidance      `json:"guidance"`
	Terminology  []string      `json:"terminology,omitempty"`
	Metadata     CheckMetadata `json:"metadata"`
}

// Profile describes a guidance profile available on the platform.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Language    string `json:"language"`
}

// --- wire types ---

type submitRequest struct {
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat"`
	CheckOptions  struct {
		GuidanceProfileID string   `json:"guidanceProfileId,omitempty"`
		ReportTypes       []string `json:"reportTypes"`
	} `json:"checkOptions"`
	Document struct {
		Reference string `json:"reference,omitempty"`
	} `json:"document"`
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type checkResponse struct {
	Data struct {
		ID      string `json:"id"`
		Quality struct {
			Score  *float64 `json:"score"`
			Status string   `json:"status"`
		} `json:"quality"`
		Issues []struct {
			DisplayNameHTML  string `json:"displayNameHtml"`
			GuidelineID      string `json:"guidelineId"`
			IssueType        string `json:"issueType"`
			PositionalInfo   struct {
				Matches []struct {
					OriginalBegin int `json:"originalBegin"`
					OriginalEnd   int `json:"originalEnd"`
				} `json:"matches"`
			} `json:"positionalInfo"`
			Suggestions []struct {
				Surface string `json:"surface"`
			} `json:"suggestions"`
		} `json:"issues"`
		Goals []struct {
			DisplayName string `json:"displayName"`
		} `json:"goals"`
		Guidelines []struct {
			DisplayName string `json:"displayName"`
		} `json:"guidelines"`
		Keywords struct {
			Discovered []struct {
				Keyword string `json:"keyword"`
			} `json:"discovered"`
		} `json:"keywords"`
	} `json:"data"`
	Progress *struct {
		Percent    float64 `json:"percent"`
		RetryAfter int     `json:"retryAfter"`
	} `json:"progress"`
	Links map[string]string `json:"links"`
}

// CheckContent submits content for checking and polls until the
// result is ready. Returns ErrCheckTimeout when the poll budget is
// exhausted before the check completes.
func (c *Client) CheckContent(ctx context.Context, content, contentFormat string) (*CheckResult, error) {
	checkID, err := c.submit(ctx, content, contentFormat)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("check submitted", zap.String("check_id", checkID))

	for poll := 0; poll < c.cfg.MaxPolls; poll++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		result, done, err := c.poll(ctx, checkID)
		if err != nil {
			return nil, err
		}
		if done {
			c.logger.Info("check completed",
				zap.String("check_id", checkID),
				zap.Int("polls", poll+1),
				zap.Int("issues", len(result.Issues)),
			)
			return result, nil
		}
	}

	return nil, types.NewError(types.ErrCheckTimeout,
		fmt.Sprintf("check %s did not complete after %d polls", checkID, c.cfg.MaxPolls)).
		WithHTTPStatus(http.StatusGatewayTimeout).
		WithRetryable(true).
		WithService("acrolinx")
}

func (c *Client) submit(ctx context.Context, content, contentFormat string) (string, error) {
	if contentFormat == "" {
		contentFormat = "TEXT"
	}

	reqBody := submitRequest{
		Content:       content,
		ContentFormat: contentFormat,
	}
	reqBody.CheckOptions.GuidanceProfileID = c.cfg.GuidanceProfile
	reqBody.CheckOptions.ReportTypes = []string{"scorecard", "issues", "termHarvesting"}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal check request: %w", err)
	}

	endpoint := c.endpoint("/api/v1/checking/checks")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", llm.MapHTTPError(resp.StatusCode, llm.ReadErrorMessage(resp.Body), "acrolinx")
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if submitted.Data.ID == "" {
		return "", types.NewError(types.ErrUpstreamError, "check submission returned no id").
			WithHTTPStatus(http.StatusBadGateway).
			WithService("acrolinx")
	}

	return submitted.Data.ID, nil
}

func (c *Client) poll(ctx context.Context, checkID string) (*CheckResult, bool, error) {
	endpoint := c.endpoint("/api/v1/checking/checks/" + checkID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, false, llm.MapHTTPError(resp.StatusCode, llm.ReadErrorMessage(resp.Body), "acrolinx")
	}

	var check checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		return nil, false, fmt.Errorf("failed to decode check response: %w", err)
	}

	// A response still carrying progress means the check is pending.
	if check.Progress != nil {
		return nil, false, nil
	}

	return c.processResult(checkID, &check), true, nil
}

// processResult flattens the Acrolinx scorecard into a CheckResult.
func (c *Client) processResult(checkID string, check *checkResponse) *CheckResult {
	result := &CheckResult{
		QualityScore: check.Data.Quality.Score,
		Issues:       make([]types.Issue, 0, len(check.Data.Issues)),
		Metadata: CheckMetadata{
			CheckID:         checkID,
			Timestamp:       time.Now().UTC(),
			GuidanceProfile: c.cfg.GuidanceProfile,
		},
	}

	for _, issue := range check.Data.Issues {
		converted := types.Issue{
			Type:     "quality",
			Category: issue.IssueType,
			Severity: severityForIssueType(issue.IssueType),
			Message:  stripTags(issue.DisplayNameHTML),
		}
		for _, s := range issue.Suggestions {
			converted.Suggestions = append(converted.Suggestions, s.Surface)
		}
		if len(issue.PositionalInfo.Matches) > 0 {
			m := issue.PositionalInfo.Matches[0]
			converted.Position = &types.IssuePosition{
				Start: m.OriginalBegin,
				End:   m.OriginalEnd,
			}
		}
		result.Issues = append(result.Issues, converted)
	}

	for _, goal := range check.Data.Goals {
		result.Guidance.Goals = append(result.Guidance.Goals, goal.DisplayName)
	}
	for _, guideline := range check.Data.Guidelines {
		result.Guidance.Guidelines = append(result.Guidance.Guidelines, guideline.DisplayName)
	}
	if len(result.Issues) > 0 {
		result.Guidance.Recommendations = append(result.Guidance.Recommendations,
			fmt.Sprintf("Address %d flagged issues before publishing", len(result.Issues)))
	}
	for _, kw := range check.Data.Keywords.Discovered {
		result.Terminology = append(result.Terminology, kw.Keyword)
	}

	return result
}

// GuidanceProfiles lists the guidance profiles available to the token.
func (c *Client) GuidanceProfiles(ctx context.Context) ([]Profile, error) {
	endpoint := c.endpoint("/api/v1/checking/capabilities")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, llm.MapHTTPError(resp.StatusCode, llm.ReadErrorMessage(resp.Body), "acrolinx")
	}

	var capabilities struct {
		Data struct {
			GuidanceProfiles []Profile `json:"guidanceProfiles"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&capabilities); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities: %w", err)
	}

	return capabilities.Data.GuidanceProfiles, nil
}

// Healthy reports whether the platform responds to the capabilities
// endpoint. Used by the status surface.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.GuidanceProfiles(ctx)
	return err == nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Acrolinx-Auth", c.cfg.APIToken)
	req.Header.Set("X-Acrolinx-Client", "docuflow; 1.0")
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) transportError(err error) *types.Error {
	return &types.Error{
		Code:       types.ErrUpstreamError,
		Message:    err.Error(),
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Service:    "acrolinx",
	}
}

func severityForIssueType(issueType string) types.IssueSeverity {
	switch strings.ToLower(issueType) {
	case "spelling", "grammar":
		return types.SeverityError
	case "terminology", "style":
		return types.SeverityWarning
	default:
		return types.SeveritySuggestion
	}
}

// stripTags removes the markup Acrolinx embeds in display names.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
