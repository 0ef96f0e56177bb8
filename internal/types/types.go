package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CAMPAIGN CONFIGURATION
// =============================================================================

// CampaignStatus is the lifecycle status of a campaign. Only active campaigns execute.
type CampaignStatus string

const (
	CampaignActive   CampaignStatus = "active"
	CampaignPaused   CampaignStatus = "paused"
	CampaignDraft    CampaignStatus = "draft"
	CampaignArchived CampaignStatus = "archived"
)

// Strategy selects how every unit of an activation is executed.
type Strategy string

const (
	StrategySimple  Strategy = "simple"
	StrategyComplex Strategy = "complex"
)

// ParseStrategy validates a workflow type. Empty means simple.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(s)) {
	case "", StrategySimple:
		return StrategySimple, nil
	case StrategyComplex:
		return StrategyComplex, nil
	}
	return "", NewError(KindInvalidConfiguration, "unknown workflow type %q (valid: simple, complex)", s)
}

// SelectionMethod is the council selection policy.
type SelectionMethod string

const (
	SelectLLMJudge SelectionMethod = "llm_judge"
	SelectRandom   SelectionMethod = "random"
	SelectFirst    SelectionMethod = "first"
)

// ParseSelectionMethod validates a selection method. Empty means llm_judge;
// anything unrecognised is a configuration error, never silently defaulted.
func ParseSelectionMethod(s string) (SelectionMethod, error) {
	switch SelectionMethod(strings.TrimSpace(s)) {
	case "", SelectLLMJudge:
		return SelectLLMJudge, nil
	case SelectRandom:
		return SelectRandom, nil
	case SelectFirst:
		return SelectFirst, nil
	}
	return "", NewError(KindInvalidConfiguration, "unknown selection method %q (valid: llm_judge, random, first)", s)
}

// Backend identifies one LLM backend family.
type Backend string

const (
	BackendAnthropic Backend = "anthropic"
	BackendOpenAI    Backend = "openai"
	BackendXAI       Backend = "xai"
	BackendGemini    Backend = "gemini"
)

// Backends lists every supported backend.
var Backends = []Backend{BackendAnthropic, BackendOpenAI, BackendXAI, BackendGemini}

// ParseBackend validates a backend name. "claude" and "grok" are accepted aliases.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic", "claude":
		return BackendAnthropic, nil
	case "openai", "gpt":
		return BackendOpenAI, nil
	case "xai", "grok":
		return BackendXAI, nil
	case "gemini", "google":
		return BackendGemini, nil
	}
	return "", NewError(KindInvalidConfiguration, "unknown provider %q (valid: %v)", s, Backends)
}

// CouncilBranch is one member of a council round.
type CouncilBranch struct {
	Provider Backend `json:"provider" yaml:"provider"`
	Model    string  `json:"model,omitempty" yaml:"model,omitempty"`
	Style    string  `json:"style,omitempty" yaml:"style,omitempty"`
}

// WorkflowConfig carries the per-campaign generation parameters.
type WorkflowConfig struct {
	Model           string          `json:"model,omitempty" yaml:"model,omitempty"`
	Provider        Backend         `json:"provider,omitempty" yaml:"provider,omitempty"`
	SelectionMethod SelectionMethod `json:"selection_method,omitempty" yaml:"selection_method,omitempty"`
	Council         []CouncilBranch `json:"council,omitempty" yaml:"council,omitempty"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
}

// Validate rejects unknown selection methods, unknown providers and malformed council branches.
func (w WorkflowConfig) Validate() error {
	if _, err := ParseSelectionMethod(string(w.SelectionMethod)); err != nil {
		return err
	}
	if w.Provider != "" {
		if _, err := ParseBackend(string(w.Provider)); err != nil {
			return err
		}
	}
	for i, b := range w.Council {
		if _, err := ParseBackend(string(b.Provider)); err != nil {
			return WrapError(KindInvalidConfiguration, err, "council branch %d", i+1)
		}
	}
	if w.MaxOutputTokens < 0 {
		return NewError(KindInvalidConfiguration, "max_output_tokens must not be negative")
	}
	return nil
}

// =============================================================================
// CAMPAIGN / SUBJECT / VOICE SAMPLE (read-only to the engine)
// =============================================================================

// Campaign is owned by the management surface; the engine only reads it.
type Campaign struct {
	ID               string         `json:"id" yaml:"id"`
	Name             string         `json:"name" yaml:"name"`
	Type             string         `json:"type" yaml:"type"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status           CampaignStatus `json:"status" yaml:"status"`
	WorkflowType     string         `json:"workflow_type" yaml:"workflow_type"`
	PostsPerEmployee int            `json:"posts_per_employee" yaml:"posts_per_employee"`
	Platform         string         `json:"platform,omitempty" yaml:"platform,omitempty"`
	BrandName        string         `json:"brand_name,omitempty" yaml:"brand_name,omitempty"`
	BrandSettings    map[string]any `json:"brand_settings,omitempty" yaml:"brand_settings,omitempty"`
	Workflow         WorkflowConfig `json:"workflow_config" yaml:"workflow_config"`
	CreatedAt        time.Time      `json:"created_at" yaml:"-"`
}

// IsActive reports whether the campaign is eligible for execution.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignActive
}

// Subject is an enrolled person posts are written for.
type Subject struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Email    string         `json:"email" yaml:"email"`
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// ShortID returns the first eight characters of the subject id.
func (s Subject) ShortID() string {
	if len(s.ID) <= 8 {
		return s.ID
	}
	return s.ID[:8]
}

// VoiceSample is reference material for a subject's tone, keyed by email.
type VoiceSample struct {
	Email        string `json:"email" yaml:"email"`
	ExamplePost1 string `json:"example_post_1" yaml:"example_post_1"`
	ExamplePost2 string `json:"example_post_2" yaml:"example_post_2"`
	ExamplePost3 string `json:"example_post_3" yaml:"example_post_3"`
	Blurb        string `json:"blurb" yaml:"blurb"`
	IsSample     bool   `json:"is_sample" yaml:"is_sample"`
}

// =============================================================================
// GENERATION
// =============================================================================

// Candidate is one backend's output for a unit. It lives for one council round.
type Candidate struct {
	Source       string        `json:"source"`
	Content      string        `json:"content"`
	Model        string        `json:"model"`
	Style        string        `json:"style"`
	Latency      time.Duration `json:"latency"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
}

// GenerationMethod records how a winning post was produced.
type GenerationMethod string

const (
	MethodSingle  GenerationMethod = "single"
	MethodCouncil GenerationMethod = "council"
)

// PostStatus is the review status of a stored post.
type PostStatus string

const PostPendingReview PostStatus = "pending_review"

// GenerationMetadata is persisted alongside a winning post.
type GenerationMetadata struct {
	Method          GenerationMethod `json:"method"`
	Workflow        Strategy         `json:"workflow"`
	Model           string           `json:"model"`
	Source          string           `json:"source,omitempty"`
	Style           string           `json:"style,omitempty"`
	LatencyMS       int64            `json:"latency_ms"`
	InputTokens     int              `json:"input_tokens,omitempty"`
	OutputTokens    int              `json:"output_tokens,omitempty"`
	SelectionMethod SelectionMethod  `json:"selection_method,omitempty"`
	Reasoning       string           `json:"reasoning,omitempty"`
	CouncilSize     int              `json:"council_size,omitempty"`
	Sources         []string         `json:"sources,omitempty"`
}

// NewPost is the insert shape of a winning post.
type NewPost struct {
	CampaignID      string
	AuthorID        string
	Content         string
	OriginalContent string
	Status          PostStatus
	ExecutionID     string
	Metadata        GenerationMetadata
}

// Post is a stored winning post.
type Post struct {
	ID              string             `json:"id"`
	CampaignID      string             `json:"campaign_id"`
	AuthorID        string             `json:"author_id"`
	Content         string             `json:"content"`
	OriginalContent string             `json:"original_content"`
	Status          PostStatus         `json:"status"`
	ExecutionID     string             `json:"execution_id"`
	Metadata        GenerationMetadata `json:"generation_metadata"`
	CreatedAt       time.Time          `json:"created_at"`
}

// =============================================================================
// EXECUTION LOG
// =============================================================================

// LogStatus is the outcome recorded for a step.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogPartial LogStatus = "partial"
	LogError   LogStatus = "error"
)

// Step names written to the execution log.
const (
	StepFetchContext     = "fetch_context"
	StepAggregate        = "llm_aggregator"
	StepStorePost        = "store_post"
	StepWorkflowError    = "workflow_error"
	StepExecutionSummary = "execution_summary"
	StepError            = "error"
)

// LLMStep returns the step name of a provider invocation.
func LLMStep(b Backend) string {
	switch b {
	case BackendAnthropic:
		return "llm_claude"
	case BackendXAI:
		return "llm_grok"
	}
	return fmt.Sprintf("llm_%s", b)
}

// Workflow types recorded on log entries.
const (
	WorkflowOrchestrator = "orchestrator"
	WorkflowSimple       = "simple"
	WorkflowComplex      = "complex"
)

// LogEntry is one append-only execution log row.
type LogEntry struct {
	ID           int64          `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	CampaignID   string         `json:"campaign_id,omitempty"`
	EmployeeID   string         `json:"employee_id,omitempty"`
	WorkflowType string         `json:"workflow_type"`
	Step         string         `json:"step_name"`
	Status       LogStatus      `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Model        string         `json:"model,omitempty"`
	InputTokens  int            `json:"input_tokens,omitempty"`
	OutputTokens int            `json:"output_tokens,omitempty"`
	LatencyMS    int64          `json:"latency_ms,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// LogFilter narrows a log query. Empty fields match everything.
type LogFilter struct {
	ExecutionPrefix string
	CampaignID      string
	Step            string
	Status          LogStatus
	Limit           int
}
