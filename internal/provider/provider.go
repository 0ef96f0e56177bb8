package provider

import (
	"context"
	"time"

	"postcouncil/internal/execlog"
	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ClientSource resolves a backend to its client.
type ClientSource interface {
	Client(backend types.Backend) (Client, error)
}

// Options bounds every generation request.
type Options struct {
	MaxOutputTokens int
	Temperature     float64
}

// Request asks one backend for one candidate.
type Request struct {
	Context *types.GenerationContext
	Backend types.Backend
	// Model overrides the client's default model when set.
	Model string
	Style string
	// WorkflowType tags the log entry (simple or complex).
	WorkflowType string
	// MaxOutputTokens overrides Options.MaxOutputTokens when positive.
	MaxOutputTokens int
	// Attempt is the 1-based retry attempt, recorded when greater than 1.
	Attempt int
}

// ModelProvider turns a generation context into one candidate through one backend call.
type ModelProvider struct {
	clients  ClientSource
	recorder *execlog.Recorder
	opts     Options
}

// NewModelProvider creates a ModelProvider.
func NewModelProvider(clients ClientSource, recorder *execlog.Recorder, opts Options) *ModelProvider {
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 1024
	}
	return &ModelProvider{clients: clients, recorder: recorder, opts: opts}
}

// Generate performs exactly one backend request and records exactly one log
// entry for it. Errors carry RATE_LIMITED, TIMEOUT or PROVIDER_ERROR.
func (p *ModelProvider) Generate(ctx context.Context, req Request) (*types.Candidate, error) {
	gc := req.Context
	prompt := BuildPrompt(gc, req.Backend, req.Style)

	ctx, span := otel.Tracer("postcouncil/provider").Start(ctx, "provider.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", gc.ExecutionID),
		attribute.String("provider.backend", string(req.Backend)),
		attribute.String("provider.style", prompt.Style),
		attribute.Int("provider.attempt", req.Attempt),
	)

	maxTokens := p.opts.MaxOutputTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}

	start := time.Now()
	var (
		completion *Completion
		model      = req.Model
	)
	client, err := p.clients.Client(req.Backend)
	if err == nil {
		if model == "" {
			model = client.DefaultModel()
		}
		completion, err = client.Generate(ctx, CompletionRequest{
			Model:       model,
			System:      prompt.System,
			Prompt:      prompt.User,
			MaxTokens:   maxTokens,
			Temperature: p.opts.Temperature,
		})
	}
	latency := time.Since(start)
	err = Classify(req.Backend, err)

	entry := types.LogEntry{
		ExecutionID:  gc.ExecutionID,
		CampaignID:   gc.Campaign.ID,
		EmployeeID:   gc.Employee.ID,
		WorkflowType: req.WorkflowType,
		Step:         types.LLMStep(req.Backend),
		Status:       types.LogSuccess,
		Model:        model,
		LatencyMS:    latency.Milliseconds(),
		Metadata:     map[string]any{"style": prompt.Style},
	}
	if req.Attempt > 1 {
		entry.Metadata["attempt"] = req.Attempt
	}

	if err != nil {
		entry.Status = types.LogError
		entry.ErrorMessage = err.Error()
		entry.Metadata["error_kind"] = string(types.KindOf(err))
		p.recorder.Record(ctx, entry)

		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.KindOf(err)))
		logging.ProviderWarn("[%s] %s failed after %v: %v", req.Backend, gc.ExecutionID, latency, err)
		return nil, err
	}

	entry.Model = completion.Model
	entry.InputTokens = completion.InputTokens
	entry.OutputTokens = completion.OutputTokens
	p.recorder.Record(ctx, entry)

	span.SetAttributes(
		attribute.String("provider.model", completion.Model),
		attribute.Int("provider.input_tokens", completion.InputTokens),
		attribute.Int("provider.output_tokens", completion.OutputTokens),
	)
	logging.ProviderDebug("[%s] %s completed in %v (%d/%d tokens)", req.Backend, gc.ExecutionID, latency,
		completion.InputTokens, completion.OutputTokens)

	return &types.Candidate{
		Source:       string(req.Backend),
		Content:      completion.Text,
		Model:        completion.Model,
		Style:        prompt.Style,
		Latency:      latency,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}, nil
}
