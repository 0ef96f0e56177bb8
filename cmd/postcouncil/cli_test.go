package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"postcouncil/internal/campaign"
	"postcouncil/internal/config"
	"postcouncil/internal/provider"
	"postcouncil/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient answers generation prompts with a backend-tagged post and judge
// prompts with a fixed verdict.
type fakeClient struct {
	backend types.Backend
}

func (f fakeClient) Backend() types.Backend { return f.backend }
func (f fakeClient) DefaultModel() string   { return "fake-" + string(f.backend) }

func (f fakeClient) Generate(_ context.Context, req provider.CompletionRequest) (*provider.Completion, error) {
	if strings.Contains(req.Prompt, "SELECTED:") {
		return &provider.Completion{Text: "SELECTED: 2\nREASONING: Most authentic.", Model: req.Model, InputTokens: 50, OutputTokens: 8}, nil
	}
	return &provider.Completion{Text: "Post from " + string(f.backend), Model: req.Model, InputTokens: 10, OutputTokens: 20}, nil
}

type fakeClients struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeClients) Client(b types.Backend) (provider.Client, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fakeClient{backend: b}, nil
}

const fixtureYAML = `campaigns:
  - id: spring-launch
    name: Spring launch
    status: active
    workflow_type: complex
    posts_per_employee: 1
    workflow_config:
      selection_method: llm_judge
  - id: solo
    name: Solo
    workflow_type: simple
    posts_per_employee: 2
    workflow_config:
      model: gpt-4o
  - id: paused
    name: Paused
    status: paused
    workflow_type: simple
subjects:
  - {id: u-1, name: Dana Ortiz, email: dana@example.com}
  - {id: u-2, name: Sam Lee, email: sam@example.com}
enrollments:
  - {campaign_id: spring-launch, user_id: u-1}
  - {campaign_id: spring-launch, user_id: u-2}
  - {campaign_id: solo, user_id: u-1}
  - {campaign_id: solo, user_id: u-2, active: false}
voice_samples:
  - {email: dana@example.com, blurb: Practice owner, example_post_1: "Independence matters."}
`

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// testEnv is a config file pointing at a fresh database, with fake clients.
type testEnv struct {
	t       *testing.T
	cfgPath string
	clients *fakeClients
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Database.Path = filepath.Join(dir, "pc.db")
	c.Logging.Level = "error"
	cfgPath := filepath.Join(dir, "postcouncil.yaml")
	require.NoError(t, c.Save(cfgPath))

	clients := &fakeClients{}
	orig := newClients
	newClients = func(*config.Config) provider.ClientSource { return clients }
	t.Cleanup(func() { newClients = orig })

	return &testEnv{t: t, cfgPath: cfgPath, clients: clients}
}

func (e *testEnv) run(stdin io.Reader, args ...string) (string, error) {
	e.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(append([]string{"-c", e.cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) seed() {
	e.t.Helper()
	path := filepath.Join(e.t.TempDir(), "fixture.yaml")
	require.NoError(e.t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	out, err := e.run(nil, "seed", path)
	require.NoError(e.t, err)
	assert.Contains(e.t, out, "3 campaigns, 2 people, 4 enrollments, 1 voice samples")
}

func decodeLogs(t *testing.T, out string) []types.LogEntry {
	t.Helper()
	var entries []types.LogEntry
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e types.LogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestCouncilActivationEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out, err := env.run(nil, "activate", "--campaign", "spring-launch", "--json")
	require.NoError(t, err)

	var summary campaign.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "spring-launch", summary.CampaignID)
	assert.Equal(t, "manual", summary.Trigger)
	assert.Equal(t, 2, summary.SubjectsProcessed)
	assert.Equal(t, 2, summary.PostsTriggered)
	assert.Equal(t, types.StrategyComplex, summary.Strategy)
	assert.Equal(t, types.LogSuccess, summary.Status)
	assert.True(t, strings.HasPrefix(summary.ExecutionID, "exec_"))

	// The judge picks candidate 2; default branches are gemini, openai, xai.
	out, err = env.run(nil, "posts", "--campaign", "spring-launch", "--plain")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Post from openai"))
	assert.Contains(t, out, "> Most authentic.")
	assert.Contains(t, out, "3 candidates: gemini, openai, xai")

	out, err = env.run(nil, "posts", "--campaign", "spring-launch")
	require.NoError(t, err)
	assert.Contains(t, out, "Post from openai")

	out, err = env.run(nil, "logs", "--execution", summary.ExecutionID, "--json", "--limit", "0")
	require.NoError(t, err)
	entries := decodeLogs(t, out)

	steps := map[string]int{}
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.ExecutionID, summary.ExecutionID), e.ExecutionID)
		steps[e.Step]++
	}
	assert.Equal(t, 2, steps[types.StepFetchContext])
	assert.Equal(t, 2, steps[types.StepAggregate])
	assert.Equal(t, 2, steps[types.StepStorePost])
	assert.Equal(t, 1, steps[types.StepExecutionSummary])
	assert.Equal(t, 6, steps["llm_gemini"]+steps["llm_openai"]+steps["llm_grok"])

	out, err = env.run(nil, "logs", "--execution", summary.ExecutionID, "--step", types.StepAggregate)
	require.NoError(t, err)
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, types.StepAggregate)
}

func TestSimpleActivationSkipsInactiveEnrollment(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out, err := env.run(strings.NewReader(`{"campaign_id":"solo"}`), "activate", "--event", "-", "--json")
	require.NoError(t, err)

	var summary campaign.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "event", summary.Trigger)
	assert.Equal(t, 1, summary.SubjectsProcessed)
	assert.Equal(t, 2, summary.PostsTriggered)
	assert.Equal(t, types.StrategySimple, summary.Strategy)

	out, err = env.run(nil, "posts", "--campaign", "solo", "--plain")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Post from openai"), "gpt-4o routes to openai")
}

func TestActivationErrorsAreLogged(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	tests := []struct {
		campaign string
		wantKind types.Kind
	}{
		{"missing", types.KindCampaignNotFound},
		{"paused", types.KindCampaignInactive},
	}
	for _, tt := range tests {
		t.Run(tt.campaign, func(t *testing.T) {
			_, err := env.run(nil, "activate", "--campaign", tt.campaign)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, types.KindOf(err))

			out, err := env.run(nil, "logs", "--campaign", tt.campaign, "--status", "error", "--json")
			require.NoError(t, err)
			entries := decodeLogs(t, out)
			require.Len(t, entries, 1)
			assert.Equal(t, types.StepError, entries[0].Step)
			assert.Equal(t, string(tt.wantKind), entries[0].Metadata["error_kind"])
		})
	}
}

func TestActivateRejectsMissingCampaign(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(nil, "activate")
	require.ErrorContains(t, err, "campaign id is required")
	assert.Zero(t, env.clients.calls)
}

func TestSeedRejectsInvalidWorkflow(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`campaigns:
  - id: bad
    workflow_type: complex
    workflow_config:
      selection_method: coin_flip
`), 0o644))

	_, err := env.run(nil, "seed", path)
	require.Error(t, err)
	assert.Equal(t, types.KindInvalidConfiguration, types.KindOf(err))
}

func TestSeedWarnsOnUnknownCouncilStyle(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "styles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`campaigns:
  - id: styled
    workflow_type: complex
    workflow_config:
      selection_method: first
      council:
        - {provider: grok, style: snarky}
        - {provider: gemini, style: analytical}
        - {provider: openai}
`), 0o644))

	out, err := env.run(nil, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 campaigns")
	assert.Contains(t, out, `style "snarky" unknown to xai, using "witty"`)
	assert.NotContains(t, out, "analytical")
}

func TestStyleWarnings(t *testing.T) {
	c := types.Campaign{ID: "c", Workflow: types.WorkflowConfig{Council: []types.CouncilBranch{
		{Provider: types.BackendAnthropic, Style: "Witty"},
		{Provider: types.BackendGemini, Style: "edgy"},
		{Provider: types.BackendXAI},
	}}}
	got := styleWarnings(c)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `council[1] style "edgy" unknown to gemini`)
	assert.Contains(t, got[0], "known: analytical, balanced, thoughtful")
}

func TestSeedVoicesFromCSV(t *testing.T) {
	env := newTestEnv(t)
	csv := "email,example_post_1,example_post_2,example_post_3,blurb,is_sample\n" +
		"Dana@Example.com,one,two,three,Practice owner,true\n" +
		",orphan,,,,\n" +
		"sam@example.com,\"multi, comma\",,,,false\n"

	out, err := env.run(strings.NewReader(csv), "seed", "voices", "--csv", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "2 voice samples")
}

func TestParseVoiceCSV(t *testing.T) {
	got, err := parseVoiceCSV(strings.NewReader("blurb,email\nOwner, A@B.com \n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.VoiceSample{Email: "a@b.com", Blurb: "Owner"}, got[0])

	_, err = parseVoiceCSV(strings.NewReader("name,blurb\nx,y\n"))
	assert.ErrorContains(t, err, "no email column")

	_, err = parseVoiceCSV(strings.NewReader("email,is_sample\na@b.com,maybe\n"))
	assert.ErrorContains(t, err, "is_sample")
}

func TestLogsRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(nil, "logs", "--status", "weird")
	assert.ErrorContains(t, err, "unknown status")
}

func TestMigrateListsAppliedMigrations(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(nil, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_init.sql")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(nil, "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("postcouncil %s\n", version), out)
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(&campaign.Summary{
		ExecutionID:       "exec_20250301_120000_abcd1234",
		CampaignID:        "spring-launch",
		Trigger:           "manual",
		SubjectsProcessed: 2,
		PostsTriggered:    4,
		Strategy:          types.StrategyComplex,
		Status:            types.LogPartial,
	})
	for _, want := range []string{"exec_20250301_120000_abcd1234", "spring-launch", "complex", "partial"} {
		assert.Contains(t, out, want)
	}
}
