package campaign

import (
	"postcouncil/internal/types"
)

// ActivationRequest is the external trigger for one activation.
type ActivationRequest struct {
	CampaignID string `json:"campaign_id"`
	Trigger    string `json:"trigger"`
}

// Summary is returned to the trigger caller. Per-unit failures are visible
// only through Status and the execution log.
type Summary struct {
	ExecutionID       string          `json:"execution_id"`
	CampaignID        string          `json:"campaign_id"`
	Trigger           string          `json:"trigger"`
	SubjectsProcessed int             `json:"employees_processed"`
	PostsTriggered    int             `json:"posts_triggered"`
	Strategy          types.Strategy  `json:"workflow_type"`
	Status            types.LogStatus `json:"status"`
}

// unit is one (campaign, subject, post number) triple.
type unit struct {
	ID      string
	Subject types.Subject
	PostNum int
}

// UnitResult is the outcome of one unit: a post id or an error, never both.
type UnitResult struct {
	UnitID    string
	SubjectID string
	PostID    string
	Err       error
}

// plan is the activation-wide execution plan resolved from the campaign.
type plan struct {
	campaign  *types.Campaign
	strategy  types.Strategy
	model     string
	backend   types.Backend
	style     string
	branches  []types.CouncilBranch
	selection types.SelectionMethod
	maxTokens int
	postsPer  int
}

func (p *plan) workflowType() string {
	if p.strategy == types.StrategyComplex {
		return types.WorkflowComplex
	}
	return types.WorkflowSimple
}
