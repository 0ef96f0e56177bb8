// Package assembler builds the immutable generation context of one execution unit.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"postcouncil/internal/execlog"
	"postcouncil/internal/logging"
	"postcouncil/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Brand supplies the brand defaults used when a campaign carries none.
type Brand struct {
	Name     string
	Mission  string
	Platform string
}

// Assembler gathers subject, voice sample, campaign and brand data for one unit.
type Assembler struct {
	store    types.CampaignReader
	recorder *execlog.Recorder
	brand    Brand
}

// New creates an Assembler.
func New(store types.CampaignReader, recorder *execlog.Recorder, brand Brand) *Assembler {
	if brand.Platform == "" {
		brand.Platform = "linkedin"
	}
	return &Assembler{store: store, recorder: recorder, brand: brand}
}

// Assemble builds the generation context for (campaignID, subjectID) and
// records one fetch_context entry under executionID.
func (a *Assembler) Assemble(ctx context.Context, campaignID, subjectID, executionID string) (*types.GenerationContext, error) {
	ctx, span := otel.Tracer("postcouncil/assembler").Start(ctx, "context.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("execution.id", executionID),
		attribute.String("campaign.id", campaignID),
		attribute.String("subject.id", subjectID),
	)

	start := time.Now()
	gc, err := a.assemble(ctx, campaignID, subjectID, executionID)

	entry := types.LogEntry{
		ExecutionID:  executionID,
		CampaignID:   campaignID,
		EmployeeID:   subjectID,
		WorkflowType: types.WorkflowOrchestrator,
		Step:         types.StepFetchContext,
		Status:       types.LogSuccess,
		LatencyMS:    execlog.Since(start),
	}
	if err != nil {
		entry.Status = types.LogError
		entry.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		entry.Metadata = map[string]any{
			"has_voice_samples": gc.Voice.Found,
			"brand":             gc.Brand.Name,
		}
	}
	a.recorder.Record(ctx, entry)

	return gc, err
}

func (a *Assembler) assemble(ctx context.Context, campaignID, subjectID, executionID string) (*types.GenerationContext, error) {
	subject, err := a.store.GetSubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.WrapError(types.KindSubjectNotFound, err, "subject %s not found", subjectID)
		}
		return nil, fmt.Errorf("load subject %s: %w", subjectID, err)
	}

	campaign, err := a.store.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.WrapError(types.KindCampaignNotFound, err, "campaign %s not found", campaignID)
		}
		return nil, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	voice, err := a.voice(ctx, subject.Email)
	if err != nil {
		return nil, err
	}

	gc := &types.GenerationContext{
		ExecutionID: executionID,
		Employee: types.EmployeeContext{
			ID:       subject.ID,
			Name:     subject.Name,
			Email:    subject.Email,
			Settings: cloneSettings(subject.Settings),
		},
		Voice: voice,
		Campaign: types.CampaignContext{
			ID:          campaign.ID,
			Name:        campaign.Name,
			Type:        campaign.Type,
			Description: campaign.Description,
			Platform:    firstNonEmpty(campaign.Platform, a.brand.Platform),
			Workflow:    cloneWorkflow(campaign.Workflow),
		},
		Brand: types.BrandContext{
			Name:     firstNonEmpty(campaign.BrandName, a.brand.Name),
			Mission:  firstNonEmpty(settingString(campaign.BrandSettings, "mission"), a.brand.Mission),
			Settings: cloneSettings(campaign.BrandSettings),
		},
	}

	logging.ContextDebug("assembled context for %s (voice=%v, brand=%s)", executionID, voice.Found, gc.Brand.Name)
	return gc, nil
}

// voice loads the voice sample for email. A missing sample is not an error:
// every field comes back explicitly absent.
func (a *Assembler) voice(ctx context.Context, email string) (types.VoiceContext, error) {
	absent := types.VoiceContext{
		Examples: [3]types.OptionalText{types.Absent(), types.Absent(), types.Absent()},
		Blurb:    types.Absent(),
	}
	if strings.TrimSpace(email) == "" {
		return absent, nil
	}

	v, err := a.store.GetVoiceSample(ctx, email)
	if errors.Is(err, types.ErrNotFound) || (err == nil && v == nil) {
		logging.ContextDebug("no voice sample for %s", email)
		return absent, nil
	}
	if err != nil {
		return types.VoiceContext{}, fmt.Errorf("load voice sample %s: %w", email, err)
	}

	return types.VoiceContext{
		Found: true,
		Examples: [3]types.OptionalText{
			types.Text(v.ExamplePost1),
			types.Text(v.ExamplePost2),
			types.Text(v.ExamplePost3),
		},
		Blurb: types.Text(v.Blurb),
	}, nil
}

func cloneSettings(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

func cloneWorkflow(w types.WorkflowConfig) types.WorkflowConfig {
	w.Council = append([]types.CouncilBranch(nil), w.Council...)
	return w
}

func settingString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
