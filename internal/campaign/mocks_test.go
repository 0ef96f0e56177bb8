package campaign

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"postcouncil/internal/assembler"
	"postcouncil/internal/council"
	"postcouncil/internal/execlog"
	"postcouncil/internal/provider"
	"postcouncil/internal/types"
)

// --- MockStore ---

type MockStore struct {
	mu        sync.Mutex
	campaigns map[string]*types.Campaign
	roster    map[string][]types.Subject
	voices    map[string]*types.VoiceSample
	posts     []types.NewPost
	insertErr error

	rosterCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{
		campaigns: map[string]*types.Campaign{},
		roster:    map[string][]types.Subject{},
		voices:    map[string]*types.VoiceSample{},
	}
}

func (m *MockStore) AddCampaign(c *types.Campaign, subjects ...types.Subject) {
	m.campaigns[c.ID] = c
	m.roster[c.ID] = subjects
}

func (m *MockStore) GetCampaign(_ context.Context, id string) (*types.Campaign, error) {
	if c, ok := m.campaigns[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("campaign %s: %w", id, types.ErrNotFound)
}

func (m *MockStore) ListActiveSubjects(_ context.Context, campaignID string) ([]types.Subject, error) {
	m.mu.Lock()
	m.rosterCalls++
	m.mu.Unlock()
	return m.roster[campaignID], nil
}

func (m *MockStore) GetSubject(_ context.Context, id string) (*types.Subject, error) {
	for _, subjects := range m.roster {
		for _, s := range subjects {
			if s.ID == id {
				return &s, nil
			}
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, types.ErrNotFound)
}

func (m *MockStore) GetVoiceSample(_ context.Context, email string) (*types.VoiceSample, error) {
	if v, ok := m.voices[email]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("voice %s: %w", email, types.ErrNotFound)
}

func (m *MockStore) InsertPost(_ context.Context, p types.NewPost) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.posts = append(m.posts, p)
	return fmt.Sprintf("post-%d", len(m.posts)), nil
}

func (m *MockStore) Posts() []types.NewPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.NewPost(nil), m.posts...)
}

// --- MockClient ---

// MockClient is a provider.Client that fails any prompt containing one of
// failOn and tracks peak concurrency.
type MockClient struct {
	backend types.Backend
	failOn  []string
	failErr error
	delay   time.Duration

	mu             sync.Mutex
	calls          int
	inflight, peak int
}

func (m *MockClient) Backend() types.Backend { return m.backend }
func (m *MockClient) DefaultModel() string   { return "mock-" + string(m.backend) }

func (m *MockClient) Generate(ctx context.Context, req provider.CompletionRequest) (*provider.Completion, error) {
	m.mu.Lock()
	m.calls++
	m.inflight++
	if m.inflight > m.peak {
		m.peak = m.inflight
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for _, s := range m.failOn {
		if strings.Contains(req.Prompt, s) {
			err := m.failErr
			if err == nil {
				err = &provider.StatusError{Backend: m.backend, StatusCode: 500, Body: "boom"}
			}
			return nil, err
		}
	}
	return &provider.Completion{
		Text:         fmt.Sprintf("%s post", m.backend),
		Model:        req.Model,
		InputTokens:  10,
		OutputTokens: 20,
	}, nil
}

func (m *MockClient) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// --- MockJudge ---

type MockJudge struct {
	reply string
}

func (m *MockJudge) Model() string { return "mock-judge" }

func (m *MockJudge) Evaluate(context.Context, string) (*provider.Completion, error) {
	return &provider.Completion{Text: m.reply, Model: "mock-judge"}, nil
}

// --- harness ---

type harness struct {
	store *MockStore
	mem   *execlog.Memory
	orch  *Orchestrator
}

func newHarness(defaults Defaults, judge council.Judge, clients ...provider.Client) *harness {
	store := NewMockStore()
	mem := &execlog.Memory{}
	rec := execlog.New(mem)

	gen := provider.NewModelProvider(provider.NewStaticClientSet(clients...), rec, provider.Options{})
	orch := NewOrchestrator(OrchestratorConfig{
		Store:      store,
		Posts:      store,
		Recorder:   rec,
		Assembler:  assembler.New(store, rec, assembler.Brand{Name: "Meroka", Mission: "Independence"}),
		Generator:  gen,
		Round:      council.NewRound(gen, council.RetryPolicy{MaxAttempts: 2, RateLimitBackoff: time.Millisecond, TimeoutBackoff: time.Millisecond}),
		Aggregator: council.NewAggregator(judge, rec),
		Defaults:   defaults,
	})
	orch.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	orch.newID = func() string { return "abcd1234" }
	return &harness{store: store, mem: mem, orch: orch}
}

func (h *harness) entries(step string) []types.LogEntry {
	var out []types.LogEntry
	for _, e := range h.mem.Entries() {
		if e.Step == step {
			out = append(out, e)
		}
	}
	return out
}
