package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategySimple, false},
		{"simple", StrategySimple, false},
		{" complex ", StrategyComplex, false},
		{"parallel", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Equal(t, KindInvalidConfiguration, KindOf(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSelectionMethod(t *testing.T) {
	got, err := ParseSelectionMethod("")
	require.NoError(t, err)
	assert.Equal(t, SelectLLMJudge, got)

	got, err = ParseSelectionMethod("random")
	require.NoError(t, err)
	assert.Equal(t, SelectRandom, got)

	_, err = ParseSelectionMethod("LLM_JUDGE")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestParseBackendAliases(t *testing.T) {
	for in, want := range map[string]Backend{
		"claude": BackendAnthropic,
		"Grok":   BackendXAI,
		"gpt":    BackendOpenAI,
		"google": BackendGemini,
		"gemini": BackendGemini,
	} {
		got, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBackend("mistral")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestWorkflowConfigValidate(t *testing.T) {
	assert.NoError(t, WorkflowConfig{}.Validate())
	assert.NoError(t, WorkflowConfig{
		Provider: "claude",
		Council:  []CouncilBranch{{Provider: BackendGemini}, {Provider: "grok", Style: "witty"}},
	}.Validate())

	bad := []WorkflowConfig{
		{SelectionMethod: "coin_flip"},
		{Provider: "mistral"},
		{Council: []CouncilBranch{{Provider: BackendOpenAI}, {Provider: ""}}},
		{MaxOutputTokens: -1},
	}
	for i, wf := range bad {
		err := wf.Validate()
		assert.Equal(t, KindInvalidConfiguration, KindOf(err), "case %d", i)
	}
}

func TestLLMStep(t *testing.T) {
	assert.Equal(t, "llm_claude", LLMStep(BackendAnthropic))
	assert.Equal(t, "llm_grok", LLMStep(BackendXAI))
	assert.Equal(t, "llm_openai", LLMStep(BackendOpenAI))
	assert.Equal(t, "llm_gemini", LLMStep(BackendGemini))
}

func TestSubjectShortID(t *testing.T) {
	assert.Equal(t, "abc", Subject{ID: "abc"}.ShortID())
	assert.Equal(t, "12345678", Subject{ID: "1234567890ab"}.ShortID())
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("connection reset")
	err := fmt.Errorf("branch gemini: %w", WrapError(KindTimeout, base, "request timed out"))

	assert.Equal(t, KindTimeout, KindOf(err))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "branch gemini: request timed out: connection reset", err.Error())

	assert.Equal(t, Kind(""), KindOf(base))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindActivationFatal(t *testing.T) {
	fatal := []Kind{KindCampaignNotFound, KindCampaignInactive, KindNoEligibleSubjects, KindInvalidConfiguration}
	for _, k := range fatal {
		assert.True(t, k.ActivationFatal(), k)
	}
	unit := []Kind{KindSubjectNotFound, KindRateLimited, KindTimeout, KindProviderError, KindNoCandidates, KindAggregationParseFailure}
	for _, k := range unit {
		assert.False(t, k.ActivationFatal(), k)
	}
}

func TestOptionalText(t *testing.T) {
	assert.False(t, Text("  ").IsPresent())
	assert.Equal(t, AbsentMarker, Absent().String())
	assert.Equal(t, "hi", Text("hi").String())
	assert.Equal(t, "fallback", Absent().Or("fallback"))

	data, err := json.Marshal(struct {
		A OptionalText `json:"a"`
		B OptionalText `json:"b"`
	}{A: Text("x"), B: Absent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":null}`, string(data))

	var got struct {
		A OptionalText `json:"a"`
		B OptionalText `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"","b":"y"}`), &got))
	assert.False(t, got.A.IsPresent())
	assert.Equal(t, "y", got.B.Value())
}
