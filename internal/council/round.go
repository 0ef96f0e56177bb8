package council

import (
	"context"
	"errors"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/provider"
	"postcouncil/internal/types"

	"golang.org/x/sync/errgroup"
)

// Generator produces one candidate per call.
type Generator interface {
	Generate(ctx context.Context, req provider.Request) (*types.Candidate, error)
}

// RetryPolicy is the per-branch retry policy. Rate limits and timeouts are
// retried with doubling backoff; provider errors are not retried.
type RetryPolicy struct {
	MaxAttempts      int
	RateLimitBackoff time.Duration
	TimeoutBackoff   time.Duration
}

// DefaultRetryPolicy returns the stock policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, RateLimitBackoff: 2 * time.Second, TimeoutBackoff: time.Second}
}

// backoff returns the wait before attempt+1, or false when err is final.
func (p RetryPolicy) backoff(kind types.Kind, attempt int) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	var base time.Duration
	switch kind {
	case types.KindRateLimited:
		base = p.RateLimitBackoff
	case types.KindTimeout:
		base = p.TimeoutBackoff
	default:
		return 0, false
	}
	return base << (attempt - 1), true
}

// Round generates one candidate per council branch, all branches running
// concurrently against the same context.
type Round struct {
	gen    Generator
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRound creates a Round.
func NewRound(gen Generator, policy RetryPolicy) *Round {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Round{gen: gen, policy: policy, sleep: sleepCtx}
}

// Run joins every branch before returning. Surviving candidates keep branch
// order; failed branches are dropped. Zero survivors is NO_CANDIDATES.
func (r *Round) Run(ctx context.Context, gc *types.GenerationContext, branches []types.CouncilBranch, maxOutputTokens int) ([]types.Candidate, error) {
	results := make([]*types.Candidate, len(branches))
	errs := make([]error, len(branches))

	var g errgroup.Group
	for i, b := range branches {
		g.Go(func() error {
			results[i], errs[i] = r.runBranch(ctx, gc, b, maxOutputTokens)
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]types.Candidate, 0, len(branches))
	for i, c := range results {
		if c == nil {
			logging.CouncilWarn("%s: branch %s dropped: %v", gc.ExecutionID, branches[i].Provider, errs[i])
			continue
		}
		candidates = append(candidates, *c)
	}
	if len(candidates) == 0 {
		return nil, types.WrapError(types.KindNoCandidates, errors.Join(errs...),
			"all %d council branches failed", len(branches))
	}
	logging.CouncilDebug("%s: %d/%d branches produced candidates", gc.ExecutionID, len(candidates), len(branches))
	return candidates, nil
}

func (r *Round) runBranch(ctx context.Context, gc *types.GenerationContext, b types.CouncilBranch, maxOutputTokens int) (*types.Candidate, error) {
	req := provider.Request{
		Context:         gc,
		Backend:         b.Provider,
		Model:           b.Model,
		Style:           b.Style,
		WorkflowType:    types.WorkflowComplex,
		MaxOutputTokens: maxOutputTokens,
	}
	for attempt := 1; ; attempt++ {
		req.Attempt = attempt
		cand, err := r.gen.Generate(ctx, req)
		if err == nil {
			return cand, nil
		}
		wait, retry := r.policy.backoff(types.KindOf(err), attempt)
		if !retry {
			return nil, err
		}
		logging.CouncilDebug("%s: %s attempt %d failed (%s), retrying in %v",
			gc.ExecutionID, b.Provider, attempt, types.KindOf(err), wait)
		if serr := r.sleep(ctx, wait); serr != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
