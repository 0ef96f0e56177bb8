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

// chatClient speaks the OpenAI chat completions protocol. OpenAI and xAI both serve it.
type chatClient struct {
	backend    types.Backend
	label      string
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newChatClient(backend types.Backend, label string, cfg ClientConfig) *chatClient {
	return &chatClient{
		backend:    backend,
		label:      label,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: cfg.httpClient(),
		limiter:    newLimiter(cfg.RequestsPerMinute),
	}
}

// Backend implements Client.
func (c *chatClient) Backend() types.Backend { return c.backend }

// DefaultModel implements Client.
func (c *chatClient) DefaultModel() string { return c.model }

// Generate sends one chat completions request.
func (c *chatClient) Generate(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := withRequestTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}
	logging.ProviderDebug("[%s] Generate: model=%s system_len=%d prompt_len=%d", c.label, model, len(req.System), len(req.Prompt))

	if c.apiKey == "" {
		return nil, fmt.Errorf("%s API key not configured", c.backend)
	}
	if err := pace(ctx, c.limiter); err != nil {
		return nil, err
	}

	messages := make([]OpenAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, OpenAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, OpenAIMessage{Role: "user", Content: req.Prompt})

	jsonData, err := json.Marshal(OpenAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		logging.ProviderDebug("[%s] Generate: status %d", c.label, resp.StatusCode)
		return nil, &StatusError{Backend: c.backend, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var chatResp OpenAIResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("empty completion returned")
	}
	return &Completion{
		Text:         text,
		Model:        model,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	*chatClient
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:            apiKey,
		BaseURL:           "https://api.openai.com/v1",
		Model:             "gpt-4-turbo-preview",
		Timeout:           60 * time.Second,
		RequestsPerMinute: 60,
	}
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	return &OpenAIClient{chatClient: newChatClient(types.BackendOpenAI, "OpenAI", cfg)}
}
