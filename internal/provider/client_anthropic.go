package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"golang.org/x/time/rate"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:            apiKey,
		BaseURL:           "https://api.anthropic.com/v1",
		Model:             "claude-3-sonnet-20240229",
		Timeout:           60 * time.Second,
		RequestsPerMinute: 50,
	}
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg ClientConfig) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: cfg.httpClient(),
		limiter:    newLimiter(cfg.RequestsPerMinute),
	}
}

// Backend implements Client.
func (c *AnthropicClient) Backend() types.Backend { return types.BackendAnthropic }

// DefaultModel implements Client.
func (c *AnthropicClient) DefaultModel() string { return c.model }

// Generate sends one Messages request.
func (c *AnthropicClient) Generate(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := withRequestTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}
	logging.ProviderDebug("[Anthropic] Generate: model=%s system_len=%d prompt_len=%d", model, len(req.System), len(req.Prompt))

	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}
	if err := pace(ctx, c.limiter); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(AnthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []AnthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logging.ProviderDebug("[Anthropic] Generate: status %d", resp.StatusCode)
		return nil, &StatusError{Backend: types.BackendAnthropic, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	var result strings.Builder
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			result.WriteString(content.Text)
		}
	}
	text := strings.TrimSpace(result.String())
	if text == "" {
		return nil, fmt.Errorf("no completion returned")
	}

	return &Completion{
		Text:         text,
		Model:        model,
		InputTokens:  anthropicResp.Usage.InputTokens,
		OutputTokens: anthropicResp.Usage.OutputTokens,
	}, nil
}
