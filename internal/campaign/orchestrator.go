package campaign

import (
	"context"
	"time"

	"postcouncil/internal/council"
	"postcouncil/internal/execlog"
	"postcouncil/internal/types"
)

// ContextAssembler builds the generation context of one unit.
type ContextAssembler interface {
	Assemble(ctx context.Context, campaignID, subjectID, executionID string) (*types.GenerationContext, error)
}

// CouncilRound generates candidates from every council branch.
type CouncilRound interface {
	Run(ctx context.Context, gc *types.GenerationContext, branches []types.CouncilBranch, maxOutputTokens int) ([]types.Candidate, error)
}

// Aggregator selects the winning candidate of a council round.
type Aggregator interface {
	Aggregate(ctx context.Context, in council.Input) (*council.Result, error)
}

// Orchestrator turns one campaign activation into independent units and
// dispatches each through the campaign's strategy.
type Orchestrator struct {
	store      types.CampaignReader
	posts      types.PostWriter
	recorder   *execlog.Recorder
	assembler  ContextAssembler
	generator  council.Generator
	round      CouncilRound
	aggregator Aggregator
	progress   ProgressFunc

	defaults Defaults
	now      func() time.Time
	newID    func() string
}

// Defaults fill in whatever a campaign's workflow config leaves unset.
type Defaults struct {
	MaxParallelUnits int
	PostsPerSubject  int
	Model            string
	Backend          types.Backend
	Style            string
	Branches         []types.CouncilBranch
	SelectionMethod  types.SelectionMethod
}

// OrchestratorConfig holds the orchestrator's collaborators.
type OrchestratorConfig struct {
	Store      types.CampaignReader
	Posts      types.PostWriter
	Recorder   *execlog.Recorder
	Assembler  ContextAssembler
	Generator  council.Generator
	Round      CouncilRound
	Aggregator Aggregator
	Defaults   Defaults
	// Progress, when set, observes every finished unit.
	Progress ProgressFunc
}

// ProgressFunc is told about each finished unit. Calls are serialized and
// done counts up to total.
type ProgressFunc func(done, total int, r UnitResult)

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	d := cfg.Defaults
	if d.MaxParallelUnits <= 0 {
		d.MaxParallelUnits = 4
	}
	if d.PostsPerSubject <= 0 {
		d.PostsPerSubject = 3
	}
	if d.Model == "" {
		d.Model = "claude-3-sonnet-20240229"
	}
	if d.Backend == "" {
		d.Backend = types.BackendAnthropic
	}
	if d.Style == "" {
		d.Style = "balanced"
	}
	if d.SelectionMethod == "" {
		d.SelectionMethod = types.SelectLLMJudge
	}

	return &Orchestrator{
		store:      cfg.Store,
		posts:      cfg.Posts,
		recorder:   cfg.Recorder,
		assembler:  cfg.Assembler,
		generator:  cfg.Generator,
		round:      cfg.Round,
		aggregator: cfg.Aggregator,
		progress:   cfg.Progress,
		defaults:   d,
		now:        time.Now,
		newID:      shortHex,
	}
}
