package campaign

import (
	"context"
	"fmt"
	"time"

	"postcouncil/internal/council"
	"postcouncil/internal/execlog"
	"postcouncil/internal/provider"
	"postcouncil/internal/types"
)

// runSimple is the single-call path: one context, one candidate, one post.
func (o *Orchestrator) runSimple(ctx context.Context, p *plan, u unit) (string, error) {
	start := time.Now()
	gc, err := o.assembler.Assemble(ctx, p.campaign.ID, u.Subject.ID, u.ID)
	if err != nil {
		return "", err
	}

	cand, err := o.generator.Generate(ctx, provider.Request{
		Context:         gc,
		Backend:         p.backend,
		Model:           p.model,
		Style:           p.style,
		WorkflowType:    types.WorkflowSimple,
		MaxOutputTokens: p.maxTokens,
		Attempt:         1,
	})
	if err != nil {
		return "", err
	}

	return o.storePost(ctx, p, u, cand.Content, types.GenerationMetadata{
		Method:       types.MethodSingle,
		Workflow:     types.StrategySimple,
		Model:        cand.Model,
		Source:       cand.Source,
		Style:        cand.Style,
		LatencyMS:    time.Since(start).Milliseconds(),
		InputTokens:  cand.InputTokens,
		OutputTokens: cand.OutputTokens,
	})
}

// runCouncil is the multi-provider path: every branch sees the same context,
// the round joins them all, then the aggregator picks one winner.
func (o *Orchestrator) runCouncil(ctx context.Context, p *plan, u unit) (string, error) {
	start := time.Now()
	gc, err := o.assembler.Assemble(ctx, p.campaign.ID, u.Subject.ID, u.ID)
	if err != nil {
		return "", err
	}

	candidates, err := o.round.Run(ctx, gc, p.branches, p.maxTokens)
	if err != nil {
		return "", err
	}

	res, err := o.aggregator.Aggregate(ctx, council.Input{Context: gc, Candidates: candidates, Method: p.selection})
	if err != nil {
		return "", err
	}

	w := res.Winner
	return o.storePost(ctx, p, u, w.Content, types.GenerationMetadata{
		Method:          types.MethodCouncil,
		Workflow:        types.StrategyComplex,
		Model:           w.Model,
		Source:          w.Source,
		Style:           w.Style,
		LatencyMS:       time.Since(start).Milliseconds(),
		InputTokens:     w.InputTokens,
		OutputTokens:    w.OutputTokens,
		SelectionMethod: res.Method,
		Reasoning:       res.Reasoning,
		CouncilSize:     len(candidates),
		Sources:         res.Sources,
	})
}

// storePost persists the winning post and records one store_post entry.
func (o *Orchestrator) storePost(ctx context.Context, p *plan, u unit, content string, meta types.GenerationMetadata) (string, error) {
	start := time.Now()
	id, err := o.posts.InsertPost(ctx, types.NewPost{
		CampaignID:      p.campaign.ID,
		AuthorID:        u.Subject.ID,
		Content:         content,
		OriginalContent: content,
		Status:          types.PostPendingReview,
		ExecutionID:     u.ID,
		Metadata:        meta,
	})

	entry := types.LogEntry{
		ExecutionID:  u.ID,
		CampaignID:   p.campaign.ID,
		EmployeeID:   u.Subject.ID,
		WorkflowType: p.workflowType(),
		Step:         types.StepStorePost,
		Status:       types.LogSuccess,
		Model:        meta.Model,
		LatencyMS:    execlog.Since(start),
		Metadata:     map[string]any{"method": string(meta.Method), "source": meta.Source},
	}
	if err != nil {
		err = fmt.Errorf("store post: %w", err)
		entry.Status = types.LogError
		entry.ErrorMessage = err.Error()
		o.recorder.Record(ctx, entry)
		return "", err
	}
	entry.Metadata["post_id"] = id
	o.recorder.Record(ctx, entry)
	return id, nil
}
