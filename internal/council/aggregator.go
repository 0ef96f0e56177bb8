// Package council runs the multi-provider path of a unit: a round of
// concurrent candidate generation followed by selection of one winner.
package council

import (
	"context"
	"math/rand/v2"
	"time"

	"postcouncil/internal/execlog"
	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Input is one aggregation request.
type Input struct {
	Context    *types.GenerationContext
	Candidates []types.Candidate
	// Method defaults to llm_judge when empty.
	Method types.SelectionMethod
}

// Result is the selected winner.
type Result struct {
	Winner    types.Candidate
	Index     int
	Reasoning string
	Method    types.SelectionMethod
	Sources   []string
	// Fallback is set when the judge could not be used or understood.
	Fallback bool
	Latency  time.Duration
}

// Aggregator selects one candidate per council round. It always produces a
// winner for a non-empty candidate list.
type Aggregator struct {
	judge    Judge
	recorder *execlog.Recorder
	intn     func(int) int
}

// NewAggregator creates an Aggregator. judge may be nil when no campaign uses llm_judge.
func NewAggregator(judge Judge, recorder *execlog.Recorder) *Aggregator {
	return &Aggregator{judge: judge, recorder: recorder, intn: rand.IntN}
}

// Aggregate picks the winner and records exactly one llm_aggregator entry.
// Under llm_judge it never fails on the judge's account: a missing or failing
// judge selects candidate #1 with ReasonJudgeFallback, and an unparseable or
// out-of-range reply selects candidate #1 with ReasonParseFallback. Both set
// Result.Fallback.
func (a *Aggregator) Aggregate(ctx context.Context, in Input) (*Result, error) {
	gc := in.Context
	method, err := types.ParseSelectionMethod(string(in.Method))
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("postcouncil/council").Start(ctx, "council.aggregate")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", gc.ExecutionID),
		attribute.String("council.method", string(method)),
		attribute.Int("council.candidates", len(in.Candidates)),
	)

	start := time.Now()
	entry := types.LogEntry{
		ExecutionID:  gc.ExecutionID,
		CampaignID:   gc.Campaign.ID,
		EmployeeID:   gc.Employee.ID,
		WorkflowType: types.WorkflowComplex,
		Step:         types.StepAggregate,
		Metadata: map[string]any{
			"posts_count":      len(in.Candidates),
			"selection_method": string(method),
		},
	}

	if len(in.Candidates) == 0 {
		err := types.NewError(types.KindNoCandidates, "no candidates to aggregate")
		entry.Status = types.LogError
		entry.ErrorMessage = err.Error()
		entry.LatencyMS = execlog.Since(start)
		a.recorder.Record(ctx, entry)
		span.RecordError(err)
		return nil, err
	}

	res := &Result{Method: method, Sources: sources(in.Candidates)}
	switch method {
	case types.SelectFirst:
		res.Index, res.Reasoning = 0, ReasonFirst
	case types.SelectRandom:
		res.Index, res.Reasoning = a.intn(len(in.Candidates)), ReasonRandom
	default:
		entry.Model = a.judgeModel()
		a.selectWithJudge(ctx, gc, in.Candidates, res, &entry)
	}

	res.Winner = in.Candidates[res.Index]
	res.Latency = time.Since(start)

	entry.Status = types.LogSuccess
	entry.LatencyMS = res.Latency.Milliseconds()
	entry.Metadata["selected_source"] = res.Winner.Source
	if res.Fallback {
		entry.Metadata["fallback"] = true
	}
	a.recorder.Record(ctx, entry)

	span.SetAttributes(
		attribute.String("council.selected_source", res.Winner.Source),
		attribute.Bool("council.fallback", res.Fallback),
	)
	logging.Council("%s: selected %s (%d/%d) via %s", gc.ExecutionID, res.Winner.Source,
		res.Index+1, len(in.Candidates), method)
	return res, nil
}

func (a *Aggregator) judgeModel() string {
	if a.judge == nil {
		return ""
	}
	return a.judge.Model()
}

// selectWithJudge fills res from the judge's verdict or falls back to the
// first candidate. It never fails.
func (a *Aggregator) selectWithJudge(ctx context.Context, gc *types.GenerationContext, candidates []types.Candidate, res *Result, entry *types.LogEntry) {
	res.Index = 0
	if a.judge == nil {
		res.Reasoning, res.Fallback = ReasonJudgeFallback, true
		logging.CouncilWarn("%s: no judge configured, using first candidate", gc.ExecutionID)
		return
	}

	reply, err := a.judge.Evaluate(ctx, BuildJudgePrompt(gc, candidates))
	if err != nil {
		res.Reasoning, res.Fallback = ReasonJudgeFallback, true
		entry.Metadata["judge_error"] = err.Error()
		logging.CouncilWarn("%s: judge failed, using first candidate: %v", gc.ExecutionID, err)
		return
	}
	entry.InputTokens = reply.InputTokens
	entry.OutputTokens = reply.OutputTokens

	verdict, err := ParseJudgeReply(reply.Text, len(candidates))
	if err != nil {
		res.Reasoning, res.Fallback = ReasonParseFallback, true
		entry.Metadata["parse_error"] = err.Error()
		logging.CouncilWarn("%s: %v, using first candidate", gc.ExecutionID, err)
		return
	}
	res.Index, res.Reasoning = verdict.Index, verdict.Reasoning
}

func sources(candidates []types.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Source
	}
	return out
}
