// Package confluence implements a minimal Confluence REST client used
// for retrieving page context during drafting and query answering.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/tlsutil"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// Config holds the Confluence connection settings.
type Config struct {
	// BaseURL of the Confluence instance including the context path,
	// e.g. "https://company.atlassian.net/wiki".
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Email and APIToken form the basic auth pair.
	Email    string `yaml:"email" json:"email"`
	APIToken string `yaml:"api_token" json:"api_token"`

	// Timeout for HTTP requests. Defaults to 15s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Client talks to the Confluence REST API.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a Confluence client.
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
		logger: logger.With(zap.String("component", "confluence_client")),
	}
}

// Page is a Confluence page with its storage-format body.
type Page struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

// URL returns the browsable address of the page.
func (p *Page) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + p.Links.WebUI
}

// GetPage fetches a page by id with its storage body expanded.
func (c *Client) GetPage(ctx context.Context, id string) (*Page, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(id))

	var page Page
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	c.logger.Debug("page fetched", zap.String("id", page.ID), zap.String("title", page.Title))
	return &page, nil
}

// GetPages fetches several pages. Failures on individual ids are
// logged and skipped.
func (c *Client) GetPages(ctx context.Context, ids []string) ([]*Page, error) {
	pages := make([]*Page, 0, len(ids))
	for _, id := range ids {
		page, err := c.GetPage(ctx, id)
		if err != nil {
			c.logger.Warn("skipping page", zap.String("id", id), zap.Error(err))
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// Search runs a CQL text search and returns matching pages without
// bodies.
func (c *Client) Search(ctx context.Context, text string, limit int) ([]*Page, error) {
	if limit <= 0 {
		limit = 5
	}

	q := url.Values{}
	q.Set("cql", fmt.Sprintf(`type=page AND text~"%s"`, strings.ReplaceAll(text, `"`, "")))
	q.Set("limit", fmt.Sprintf("%d", limit))
	endpoint := fmt.Sprintf("%s/rest/api/content/search?%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	var page struct {
		Results []*Page `json:"results"`
	}
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Results, nil
}

// Healthy probes the space listing endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/rest/api/space?limit=1"
	var out map[string]any
	return c.getJSON(ctx, endpoint, &out) == nil
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
			Service:    "confluence",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return llm.MapHTTPError(resp.StatusCode, llm.ReadErrorMessage(resp.Body), "confluence")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode confluence response: %w", err)
	}
	return nil
}
