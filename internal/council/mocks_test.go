package council

import (
	"context"
	"sync"
	"time"

	"postcouncil/internal/provider"
	"postcouncil/internal/types"
)

func testContext() *types.GenerationContext {
	return &types.GenerationContext{
		ExecutionID: "exec_20250301_120000_abcd1234_empu1_p0",
		Employee:    types.EmployeeContext{ID: "u1", Name: "Ada Park"},
		Voice: types.VoiceContext{
			Found:    true,
			Examples: [3]types.OptionalText{types.Text("We shipped."), types.Absent(), types.Absent()},
			Blurb:    types.Text("Practice owner"),
		},
		Campaign: types.CampaignContext{ID: "c1", Name: "Launch", Platform: "linkedin"},
		Brand:    types.BrandContext{Name: "Meroka"},
	}
}

func threeCandidates() []types.Candidate {
	return []types.Candidate{
		{Source: "a", Content: "post from a", Style: "thoughtful"},
		{Source: "b", Content: "post from b", Style: "professional"},
		{Source: "c", Content: "post from c", Style: "witty"},
	}
}

// mockJudge replies with a fixed text or error.
type mockJudge struct {
	reply string
	err   error

	mu      sync.Mutex
	prompts []string
}

func (m *mockJudge) Model() string { return "gpt-4o-mini" }

func (m *mockJudge) Evaluate(_ context.Context, prompt string) (*provider.Completion, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &provider.Completion{Text: m.reply, Model: "gpt-4o-mini", InputTokens: 400, OutputTokens: 40}, nil
}

// mockGenerator answers per backend from a script of errors; once the
// script is exhausted every call succeeds.
type mockGenerator struct {
	mu      sync.Mutex
	scripts map[types.Backend][]error
	calls   map[types.Backend][]provider.Request
	delay   time.Duration
	// inflight tracks concurrent calls; peak is the maximum observed.
	inflight, peak int
}

func newMockGenerator() *mockGenerator {
	return &mockGenerator{scripts: map[types.Backend][]error{}, calls: map[types.Backend][]provider.Request{}}
}

func (m *mockGenerator) fail(b types.Backend, errs ...error) *mockGenerator {
	m.scripts[b] = append(m.scripts[b], errs...)
	return m
}

func (m *mockGenerator) Generate(ctx context.Context, req provider.Request) (*types.Candidate, error) {
	m.mu.Lock()
	m.calls[req.Backend] = append(m.calls[req.Backend], req)
	var err error
	if s := m.scripts[req.Backend]; len(s) > 0 {
		err, m.scripts[req.Backend] = s[0], s[1:]
	}
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
	if err != nil {
		return nil, err
	}
	return &types.Candidate{Source: string(req.Backend), Content: "post by " + string(req.Backend), Style: req.Style}, nil
}

func (m *mockGenerator) attempts(b types.Backend) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls[b])
}
