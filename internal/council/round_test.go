package council

import (
	"context"
	"testing"
	"time"

	"postcouncil/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeBranches = []types.CouncilBranch{
	{Provider: types.BackendGemini, Style: "thoughtful"},
	{Provider: types.BackendOpenAI, Style: "professional"},
	{Provider: types.BackendXAI, Style: "witty"},
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, RateLimitBackoff: time.Millisecond, TimeoutBackoff: time.Millisecond}
}

func TestRoundRunsBranchesConcurrently(t *testing.T) {
	gen := newMockGenerator()
	gen.delay = 50 * time.Millisecond
	r := NewRound(gen, fastPolicy())

	cands, err := r.Run(context.Background(), testContext(), threeBranches, 0)
	require.NoError(t, err)
	require.Len(t, cands, 3)
	assert.Equal(t, []string{"gemini", "openai", "xai"}, sources(cands), "candidates keep branch order")
	assert.Equal(t, 3, gen.peak)
}

func TestRoundDropsFailedBranch(t *testing.T) {
	gen := newMockGenerator().fail(types.BackendOpenAI, types.NewError(types.KindProviderError, "500"))
	r := NewRound(gen, fastPolicy())

	cands, err := r.Run(context.Background(), testContext(), threeBranches, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "xai"}, sources(cands))
	assert.Equal(t, 1, gen.attempts(types.BackendOpenAI), "provider errors are not retried")
}

func TestRoundRetriesTransientErrors(t *testing.T) {
	gen := newMockGenerator().
		fail(types.BackendGemini, types.NewError(types.KindRateLimited, "429"), types.NewError(types.KindRateLimited, "429")).
		fail(types.BackendXAI, types.NewError(types.KindTimeout, "slow"))

	var waits []time.Duration
	r := NewRound(gen, RetryPolicy{MaxAttempts: 3, RateLimitBackoff: 2 * time.Second, TimeoutBackoff: time.Second})
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	// Serialise branches so the recorded waits are deterministic.
	cands, err := r.Run(context.Background(), testContext(), threeBranches[:1], 0)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, 3, gen.attempts(types.BackendGemini))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)

	waits = nil
	_, err = r.Run(context.Background(), testContext(), threeBranches[2:], 0)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.attempts(types.BackendXAI))
	assert.Equal(t, []time.Duration{time.Second}, waits)

	calls := gen.calls[types.BackendGemini]
	assert.Equal(t, []int{1, 2, 3}, []int{calls[0].Attempt, calls[1].Attempt, calls[2].Attempt})
	assert.Equal(t, types.WorkflowComplex, calls[0].WorkflowType)
}

func TestRoundGivesUpAfterMaxAttempts(t *testing.T) {
	rl := types.NewError(types.KindRateLimited, "429")
	gen := newMockGenerator().fail(types.BackendGemini, rl, rl, rl, rl)
	r := NewRound(gen, fastPolicy())

	cands, err := r.Run(context.Background(), testContext(), threeBranches[:2], 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, sources(cands))
	assert.Equal(t, 3, gen.attempts(types.BackendGemini))
}

func TestRoundAllBranchesFail(t *testing.T) {
	pe := types.NewError(types.KindProviderError, "down")
	gen := newMockGenerator().
		fail(types.BackendGemini, pe).
		fail(types.BackendOpenAI, pe).
		fail(types.BackendXAI, pe)
	r := NewRound(gen, fastPolicy())

	_, err := r.Run(context.Background(), testContext(), threeBranches, 0)
	require.Error(t, err)
	assert.Equal(t, types.KindNoCandidates, types.KindOf(err))
}

func TestRoundStopsRetryingOnCancel(t *testing.T) {
	gen := newMockGenerator().fail(types.BackendGemini, types.NewError(types.KindTimeout, "slow"))
	r := NewRound(gen, RetryPolicy{MaxAttempts: 5, TimeoutBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Run(ctx, testContext(), threeBranches[:1], 0)
	require.Error(t, err)
	assert.Equal(t, 1, gen.attempts(types.BackendGemini))
}

func TestRoundPassesBranchSettings(t *testing.T) {
	gen := newMockGenerator()
	r := NewRound(gen, fastPolicy())

	branches := []types.CouncilBranch{{Provider: types.BackendOpenAI, Model: "gpt-4o", Style: "witty"}}
	_, err := r.Run(context.Background(), testContext(), branches, 512)
	require.NoError(t, err)

	req := gen.calls[types.BackendOpenAI][0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, "witty", req.Style)
	assert.Equal(t, 512, req.MaxOutputTokens)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 4, RateLimitBackoff: 2 * time.Second, TimeoutBackoff: time.Second}

	d, ok := p.backoff(types.KindRateLimited, 3)
	assert.True(t, ok)
	assert.Equal(t, 8*time.Second, d)

	_, ok = p.backoff(types.KindTimeout, 4)
	assert.False(t, ok)

	_, ok = p.backoff(types.KindProviderError, 1)
	assert.False(t, ok)
}
