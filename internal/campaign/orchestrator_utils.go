package campaign

import (
	"fmt"
	"strings"
	"time"

	"postcouncil/internal/logging"
	"postcouncil/internal/provider"
	"postcouncil/internal/types"

	"github.com/google/uuid"
)

// executionID renders exec_YYYYMMDD_HHMMSS_<suffix> in UTC.
func executionID(now time.Time, suffix string) string {
	return fmt.Sprintf("exec_%s_%s", now.UTC().Format("20060102_150405"), suffix)
}

// unitID derives a unit's id from its activation, subject and post number.
func unitID(execID string, s types.Subject, postNum int) string {
	return fmt.Sprintf("%s_emp%s_p%d", execID, s.ShortID(), postNum)
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func buildUnits(execID string, subjects []types.Subject, postsPer int) []unit {
	units := make([]unit, 0, len(subjects)*postsPer)
	for _, s := range subjects {
		for n := 0; n < postsPer; n++ {
			units = append(units, unit{ID: unitID(execID, s, n), Subject: s, PostNum: n})
		}
	}
	return units
}

// resolvePlan validates the campaign's workflow config and fills defaults.
// Every error is INVALID_CONFIGURATION.
func (o *Orchestrator) resolvePlan(c *types.Campaign) (*plan, error) {
	strategy, err := types.ParseStrategy(c.WorkflowType)
	if err != nil {
		return nil, err
	}
	wf := c.Workflow
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	p := &plan{
		campaign:  c,
		strategy:  strategy,
		model:     wf.Model,
		style:     o.defaults.Style,
		maxTokens: wf.MaxOutputTokens,
		postsPer:  c.PostsPerEmployee,
	}
	if p.postsPer <= 0 {
		p.postsPer = o.defaults.PostsPerSubject
	}

	switch strategy {
	case types.StrategyComplex:
		p.branches = wf.Council
		if len(p.branches) == 0 {
			p.branches = o.defaults.Branches
		}
		if len(p.branches) == 0 {
			return nil, types.NewError(types.KindInvalidConfiguration, "campaign %s has no council branches", c.ID)
		}
		p.branches = normalizeBranches(p.branches)
		p.selection = wf.SelectionMethod
		if p.selection == "" {
			p.selection = o.defaults.SelectionMethod
		}
	default:
		if p.model == "" {
			p.model = o.defaults.Model
		}
		p.backend = o.simpleBackend(wf.Provider, p.model)
	}
	return p, nil
}

// simpleBackend picks the backend for the single-call path: an explicit
// provider wins, then the model family, then the configured default.
func (o *Orchestrator) simpleBackend(explicit types.Backend, model string) types.Backend {
	if explicit != "" {
		b, _ := types.ParseBackend(string(explicit))
		return b
	}
	if b, ok := provider.BackendForModel(model); ok {
		return b
	}
	logging.CampaignDebug("model %q matches no backend family, using %s", model, o.defaults.Backend)
	return o.defaults.Backend
}

// normalizeBranches resolves provider aliases such as grok and claude.
func normalizeBranches(in []types.CouncilBranch) []types.CouncilBranch {
	out := make([]types.CouncilBranch, len(in))
	for i, b := range in {
		if nb, err := types.ParseBackend(string(b.Provider)); err == nil {
			b.Provider = nb
		}
		out[i] = b
	}
	return out
}
