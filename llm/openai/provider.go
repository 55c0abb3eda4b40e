// Package openai implements llm.Provider against the OpenAI chat
// completions API (and any compatible endpoint). Transient failures on
// the primary model are retried with exponential backoff; once the
// retry budget is exhausted the configured fallback model is tried a
// final time.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/internal/tlsutil"
	"github.com/docuflow/docuflow/llm"
	"github.com/docuflow/docuflow/types"
)

// Config holds the OpenAI provider configuration.
type Config struct {
	// APIKey is the bearer token for the API.
	APIKey string

	// BaseURL is the API base, e.g. "https://api.openai.com".
	BaseURL string

	// Model is the primary model used when the request does not name one.
	Model string

	// FallbackModel is tried once after the primary model's retry
	// budget is exhausted. Empty disables failover.
	FallbackModel string

	// Organization is sent as OpenAI-Organization when set.
	Organization string

	// Temperature and MaxTokens are applied to requests that leave
	// them unset.
	Temperature float32
	MaxTokens   int

	// Timeout is the HTTP client timeout. Defaults to 60s.
	Timeout time.Duration

	// MaxRetries is the per-model retry budget for retryable errors.
	// Defaults to 3.
	MaxRetries int

	// InitialBackoff is the first retry delay. Defaults to 1s.
	InitialBackoff time.Duration
}

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a new OpenAI provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "openai" }

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// --- wire types ---

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion performs a chat completion with retry and model failover.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "messages cannot be empty").
			WithHTTPStatus(http.StatusBadRequest).WithService(p.Name())
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	resp, err := p.completeWithRetry(ctx, req, model)
	if err == nil {
		return resp, nil
	}

	if p.cfg.FallbackModel == "" || p.cfg.FallbackModel == model || !types.IsRetryable(err) {
		return nil, err
	}

	p.logger.Warn("primary model failed, trying fallback model",
		zap.String("model", model),
		zap.String("fallback_model", p.cfg.FallbackModel),
		zap.Error(err),
	)

	return p.completeOnce(ctx, req, p.cfg.FallbackModel)
}

// completeWithRetry runs the request against one model, retrying
// retryable errors with exponential backoff.
func (p *Provider) completeWithRetry(ctx context.Context, req *llm.ChatRequest, model string) (*llm.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(p.cfg.InitialBackoff) * math.Pow(2, float64(attempt-1)))
			p.logger.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := p.completeOnce(ctx, req, model)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !types.IsRetryable(err) {
			return nil, err
		}
		p.logger.Warn("completion attempt failed",
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// completeOnce performs a single HTTP round trip.
func (p *Provider) completeOnce(ctx context.Context, req *llm.ChatRequest, model string) (*llm.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:       model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = p.cfg.MaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = p.cfg.Temperature
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &types.Error{
			Code: types.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Service: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := llm.ReadErrorMessage(resp.Body)
		return nil, llm.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, &types.Error{
			Code: types.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Service: p.Name(),
		}
	}

	out := p.toChatResponse(&completion, req)

	p.logger.Info("completion finished",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.cfg.Organization)
	}
}

func (p *Provider) toChatResponse(completion *chatCompletionResponse, req *llm.ChatRequest) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:       completion.ID,
		Provider: p.Name(),
		Model:    completion.Model,
		Choices:  make([]llm.ChatChoice, 0, len(completion.Choices)),
		Usage: llm.ChatUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}
	if completion.Created != 0 {
		out.CreatedAt = time.Unix(completion.Created, 0)
	}
	for _, choice := range completion.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        choice.Index,
			FinishReason: choice.FinishReason,
			Message: llm.Message{
				Role:    llm.Role(choice.Message.Role),
				Content: choice.Message.Content,
			},
		})
	}

	// Some compatible endpoints omit usage. Estimate with tiktoken so
	// token accounting stays populated for metrics and budgets.
	if out.Usage.TotalTokens == 0 {
		out.Usage = estimateUsage(completion.Model, req.Messages, out.Text())
	}
	return out
}

// Token dictionaries load from the loader's embedded copies, so
// estimation works without network access to the tiktoken CDN.
func init() {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
}

// estimateUsage counts tokens locally when the upstream response did
// not include usage numbers.
func estimateUsage(model string, messages []llm.Message, completion string) llm.ChatUsage {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return llm.ChatUsage{}
		}
	}

	prompt := 0
	for _, msg := range messages {
		prompt += len(enc.Encode(msg.Content, nil, nil))
	}
	completed := len(enc.Encode(completion, nil, nil))

	return llm.ChatUsage{
		PromptTokens:     prompt,
		CompletionTokens: completed,
		TotalTokens:      prompt + completed,
		Estimated:        true,
	}
}

// HealthCheck probes the models endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	endpoint := fmt.Sprintf("%s/v1/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(req)

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, nil
	}
	defer resp.Body.Close()

	return &llm.HealthStatus{
		Healthy: resp.StatusCode == http.StatusOK,
		Latency: latency,
	}, nil
}
