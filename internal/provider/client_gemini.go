package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiClient calls Gemini through the Google GenAI SDK.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter

	mu     sync.Mutex
	client *genai.Client
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:            apiKey,
		Model:             "gemini-3-flash-preview",
		Timeout:           60 * time.Second,
		RequestsPerMinute: 60,
	}
}

// NewGeminiClient creates a new Gemini client. The SDK client is built on first use.
func NewGeminiClient(cfg ClientConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: cfg.httpClient(),
		limiter:    newLimiter(cfg.RequestsPerMinute),
	}
}

// Backend implements Client.
func (c *GeminiClient) Backend() types.Backend { return types.BackendGemini }

// DefaultModel implements Client.
func (c *GeminiClient) DefaultModel() string { return c.model }

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = client
	return client, nil
}

// Generate sends one GenerateContent request.
func (c *GeminiClient) Generate(ctx context.Context, req CompletionRequest) (*Completion, error) {
	ctx, cancel := withRequestTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}
	logging.ProviderDebug("[Gemini] Generate: model=%s prompt_len=%d", model, len(req.Prompt))

	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	if err := pace(ctx, c.limiter); err != nil {
		return nil, err
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("no completion returned")
	}

	out := &Completion{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}
