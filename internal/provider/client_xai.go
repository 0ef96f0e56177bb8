package provider

import (
	"time"

	"postcouncil/internal/types"
)

// XAIClient calls the xAI (Grok) API, which is OpenAI-compatible.
type XAIClient struct {
	*chatClient
}

// DefaultXAIConfig returns sensible defaults.
func DefaultXAIConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:            apiKey,
		BaseURL:           "https://api.x.ai/v1",
		Model:             "grok-4",
		Timeout:           60 * time.Second,
		RequestsPerMinute: 60,
	}
}

// NewXAIClient creates a new xAI client.
func NewXAIClient(cfg ClientConfig) *XAIClient {
	return &XAIClient{chatClient: newChatClient(types.BackendXAI, "XAI", cfg)}
}
