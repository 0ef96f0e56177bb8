package council

import (
	"context"
	"errors"
	"testing"

	"postcouncil/internal/execlog"
	"postcouncil/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateJudgeSelectsCandidate(t *testing.T) {
	mem := &execlog.Memory{}
	judge := &mockJudge{reply: "SELECTED: 2\nREASONING: clear voice match."}
	a := NewAggregator(judge, execlog.New(mem))

	res, err := a.Aggregate(context.Background(), Input{Context: testContext(), Candidates: threeCandidates()})
	require.NoError(t, err)
	assert.Equal(t, "post from b", res.Winner.Content)
	assert.Equal(t, "clear voice match.", res.Reasoning)
	assert.Equal(t, types.SelectLLMJudge, res.Method)
	assert.Equal(t, []string{"a", "b", "c"}, res.Sources)
	assert.False(t, res.Fallback)
	require.Len(t, judge.prompts, 1)

	entries := mem.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, types.StepAggregate, e.Step)
	assert.Equal(t, types.LogSuccess, e.Status)
	assert.Equal(t, "gpt-4o-mini", e.Model)
	assert.Equal(t, 400, e.InputTokens)
	assert.Equal(t, 3, e.Metadata["posts_count"])
	assert.Equal(t, "b", e.Metadata["selected_source"])
	assert.Equal(t, "llm_judge", e.Metadata["selection_method"])
}

func TestAggregateJudgeFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		judge      Judge
		wantReason string
		wantMeta   string
	}{
		{"no selected line", &mockJudge{reply: "REASONING: I like them all"}, ReasonParseFallback, "parse_error"},
		{"index out of range", &mockJudge{reply: "SELECTED: 7\nREASONING: seven"}, ReasonParseFallback, "parse_error"},
		{"garbage", &mockJudge{reply: "¯\\_(ツ)_/¯"}, ReasonParseFallback, "parse_error"},
		{"judge error", &mockJudge{err: types.NewError(types.KindRateLimited, "429")}, ReasonJudgeFallback, "judge_error"},
		{"no judge", nil, ReasonJudgeFallback, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &execlog.Memory{}
			a := NewAggregator(tt.judge, execlog.New(mem))

			res, err := a.Aggregate(context.Background(), Input{
				Context: testContext(), Candidates: threeCandidates(), Method: types.SelectLLMJudge,
			})
			require.NoError(t, err)
			assert.Equal(t, "a", res.Winner.Source)
			assert.Equal(t, 0, res.Index)
			assert.Equal(t, tt.wantReason, res.Reasoning)
			assert.True(t, res.Fallback)

			entries := mem.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, types.LogSuccess, entries[0].Status)
			assert.Equal(t, true, entries[0].Metadata["fallback"])
			if tt.wantMeta != "" {
				assert.Contains(t, entries[0].Metadata, tt.wantMeta)
			}
		})
	}
}

func TestAggregateFirst(t *testing.T) {
	judge := &mockJudge{reply: "SELECTED: 3\nREASONING: x"}
	a := NewAggregator(judge, execlog.New(&execlog.Memory{}))

	res, err := a.Aggregate(context.Background(), Input{Context: testContext(), Candidates: threeCandidates(), Method: types.SelectFirst})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Winner.Source)
	assert.Equal(t, ReasonFirst, res.Reasoning)
	assert.Empty(t, judge.prompts, "first never consults the judge")
}

func TestAggregateRandomReachesEveryCandidate(t *testing.T) {
	a := NewAggregator(nil, execlog.New(&execlog.Memory{}))
	seen := map[string]int{}
	for range 300 {
		res, err := a.Aggregate(context.Background(), Input{Context: testContext(), Candidates: threeCandidates(), Method: types.SelectRandom})
		require.NoError(t, err)
		assert.Equal(t, ReasonRandom, res.Reasoning)
		seen[res.Winner.Source]++
	}
	for _, src := range []string{"a", "b", "c"} {
		assert.Positive(t, seen[src], "candidate %s never selected", src)
	}
}

func TestAggregateRandomUsesInjectedSource(t *testing.T) {
	a := NewAggregator(nil, execlog.New(&execlog.Memory{}))
	a.intn = func(n int) int { return n - 1 }

	res, err := a.Aggregate(context.Background(), Input{Context: testContext(), Candidates: threeCandidates(), Method: types.SelectRandom})
	require.NoError(t, err)
	assert.Equal(t, "c", res.Winner.Source)
}

func TestAggregateNoCandidates(t *testing.T) {
	mem := &execlog.Memory{}
	a := NewAggregator(&mockJudge{}, execlog.New(mem))

	_, err := a.Aggregate(context.Background(), Input{Context: testContext()})
	assert.ErrorIs(t, err, types.ErrNoCandidates)

	entries := mem.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, types.LogError, entries[0].Status)
}

func TestAggregateRejectsUnknownMethod(t *testing.T) {
	mem := &execlog.Memory{}
	a := NewAggregator(&mockJudge{}, execlog.New(mem))

	_, err := a.Aggregate(context.Background(), Input{Context: testContext(), Candidates: threeCandidates(), Method: "coin_flip"})
	assert.True(t, errors.Is(err, types.ErrInvalidConfiguration))
	assert.Empty(t, mem.Entries())
}
