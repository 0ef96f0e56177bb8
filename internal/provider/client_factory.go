package provider

import (
	"fmt"
	"sync"

	"postcouncil/internal/config"
	"postcouncil/internal/types"
)

// NewClient creates the client for one backend.
func NewClient(backend types.Backend, cfg ClientConfig) (Client, error) {
	switch backend {
	case types.BackendAnthropic:
		return NewAnthropicClient(cfg), nil
	case types.BackendOpenAI:
		return NewOpenAIClient(cfg), nil
	case types.BackendXAI:
		return NewXAIClient(cfg), nil
	case types.BackendGemini:
		return NewGeminiClient(cfg), nil
	}
	return nil, types.NewError(types.KindProviderError, "unsupported provider: %s", backend)
}

// ClientSet lazily builds one client per backend and shares it across units,
// so each backend's request pacing applies to the whole activation.
type ClientSet struct {
	mu      sync.Mutex
	configs map[types.Backend]ClientConfig
	clients map[types.Backend]Client
}

// NewClientSet builds a ClientSet from application config.
func NewClientSet(cfg *config.Config) *ClientSet {
	timeout := cfg.GetProviderTimeout()
	defaults := map[types.Backend]ClientConfig{
		types.BackendAnthropic: DefaultAnthropicConfig(""),
		types.BackendOpenAI:    DefaultOpenAIConfig(""),
		types.BackendXAI:       DefaultXAIConfig(""),
		types.BackendGemini:    DefaultGeminiConfig(""),
	}

	configs := make(map[types.Backend]ClientConfig, len(defaults))
	for backend, cc := range defaults {
		pc := cfg.Providers.For(backend)
		cc.APIKey = pc.APIKey
		if pc.BaseURL != "" {
			cc.BaseURL = pc.BaseURL
		}
		if pc.Model != "" {
			cc.Model = pc.Model
		}
		cc.RequestsPerMinute = pc.RequestsPerMinute
		cc.Timeout = timeout
		configs[backend] = cc
	}
	return &ClientSet{configs: configs, clients: map[types.Backend]Client{}}
}

// NewStaticClientSet wraps prebuilt clients.
func NewStaticClientSet(clients ...Client) *ClientSet {
	s := &ClientSet{configs: map[types.Backend]ClientConfig{}, clients: map[types.Backend]Client{}}
	for _, c := range clients {
		s.clients[c.Backend()] = c
	}
	return s
}

// Client returns the client for backend, building it on first use.
func (s *ClientSet) Client(backend types.Backend) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[backend]; ok {
		return c, nil
	}
	cc, ok := s.configs[backend]
	if !ok {
		return nil, types.NewError(types.KindProviderError, "no client configured for provider %s", backend)
	}
	c, err := NewClient(backend, cc)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", backend, err)
	}
	s.clients[backend] = c
	return c, nil
}
