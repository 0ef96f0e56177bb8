package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("postcouncil/campaign")

// Activate runs one activation to completion. Activation-fatal errors
// (CAMPAIGN_NOT_FOUND, CAMPAIGN_INACTIVE, NO_ELIGIBLE_SUBJECTS,
// INVALID_CONFIGURATION) are recorded as a campaign-scope error entry and
// returned; unit failures only affect the summary status.
func (o *Orchestrator) Activate(ctx context.Context, req ActivationRequest) (*Summary, error) {
	execID := executionID(o.now(), o.newID())

	ctx, span := tracer.Start(ctx, "campaign.activate")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", execID),
		attribute.String("campaign.id", req.CampaignID),
		attribute.String("campaign.trigger", req.Trigger),
	)

	timer := logging.StartTimer(logging.CategoryCampaign, "activate "+execID)
	defer timer.Stop()
	logging.Campaign("Activating campaign %s (%s) as %s", req.CampaignID, req.Trigger, execID)

	summary, err := o.activate(ctx, execID, req)
	if err != nil {
		o.recorder.Record(ctx, types.LogEntry{
			ExecutionID:  execID,
			CampaignID:   req.CampaignID,
			WorkflowType: types.WorkflowOrchestrator,
			Step:         types.StepError,
			Status:       types.LogError,
			ErrorMessage: err.Error(),
			Metadata: map[string]any{
				"error_kind": string(types.KindOf(err)),
				"trigger":    req.Trigger,
			},
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.KindOf(err)))
		logging.CampaignError("Activation %s failed: %v", execID, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("campaign.units", summary.PostsTriggered),
		attribute.String("campaign.status", string(summary.Status)),
	)
	return summary, nil
}

func (o *Orchestrator) activate(ctx context.Context, execID string, req ActivationRequest) (*Summary, error) {
	c, err := o.store.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.WrapError(types.KindCampaignNotFound, err, "campaign %s not found", req.CampaignID)
		}
		return nil, fmt.Errorf("load campaign %s: %w", req.CampaignID, err)
	}
	if !c.IsActive() {
		return nil, types.NewError(types.KindCampaignInactive, "campaign %s is %s, not active", c.ID, c.Status)
	}

	p, err := o.resolvePlan(c)
	if err != nil {
		return nil, err
	}

	subjects, err := o.store.ListActiveSubjects(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list subjects for %s: %w", c.ID, err)
	}
	if len(subjects) == 0 {
		return nil, types.NewError(types.KindNoEligibleSubjects, "campaign %s has no active subjects", c.ID)
	}

	units := buildUnits(execID, subjects, p.postsPer)
	logging.Campaign("%s: %d subjects x %d posts = %d units (%s)", execID, len(subjects), p.postsPer, len(units), p.strategy)

	results := o.dispatch(ctx, p, units)

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	status := types.LogSuccess
	if succeeded < len(results) {
		status = types.LogPartial
	}

	o.recorder.Record(ctx, types.LogEntry{
		ExecutionID:  execID,
		CampaignID:   c.ID,
		WorkflowType: types.WorkflowOrchestrator,
		Step:         types.StepExecutionSummary,
		Status:       status,
		Metadata: map[string]any{
			"total":     len(results),
			"success":   succeeded,
			"failed":    len(results) - succeeded,
			"employees": len(subjects),
			"workflow":  string(p.strategy),
			"trigger":   req.Trigger,
		},
	})
	logging.Campaign("%s: %d/%d units succeeded", execID, succeeded, len(results))

	return &Summary{
		ExecutionID:       execID,
		CampaignID:        c.ID,
		Trigger:           req.Trigger,
		SubjectsProcessed: len(subjects),
		PostsTriggered:    len(units),
		Strategy:          p.strategy,
		Status:            status,
	}, nil
}

// dispatch runs every unit, at most MaxParallelUnits at a time. A unit's
// failure never cancels its siblings.
func (o *Orchestrator) dispatch(ctx context.Context, p *plan, units []unit) []UnitResult {
	results := make([]UnitResult, len(units))

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(o.defaults.MaxParallelUnits)
	for i, u := range units {
		g.Go(func() error {
			results[i] = o.runUnit(ctx, p, u)
			if o.progress != nil {
				mu.Lock()
				done++
				o.progress(done, len(units), results[i])
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) runUnit(ctx context.Context, p *plan, u unit) UnitResult {
	ctx, span := tracer.Start(ctx, "unit.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", u.ID),
		attribute.String("subject.id", u.Subject.ID),
		attribute.Int("unit.post_number", u.PostNum),
	)

	res := UnitResult{UnitID: u.ID, SubjectID: u.Subject.ID}
	if p.strategy == types.StrategyComplex {
		res.PostID, res.Err = o.runCouncil(ctx, p, u)
	} else {
		res.PostID, res.Err = o.runSimple(ctx, p, u)
	}

	if res.Err != nil {
		o.recorder.Record(ctx, types.LogEntry{
			ExecutionID:  u.ID,
			CampaignID:   p.campaign.ID,
			EmployeeID:   u.Subject.ID,
			WorkflowType: p.workflowType(),
			Step:         types.StepWorkflowError,
			Status:       types.LogError,
			ErrorMessage: res.Err.Error(),
			Metadata: map[string]any{
				"error_kind":  string(types.KindOf(res.Err)),
				"post_number": u.PostNum,
			},
		})
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(types.KindOf(res.Err)))
		logging.CampaignWarn("%s failed: %v", u.ID, res.Err)
	}
	return res
}
