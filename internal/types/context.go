package types

import (
	"encoding/json"
	"strings"
)

// AbsentMarker is what an absent OptionalText renders as.
const AbsentMarker = "[No example]"

// OptionalText is a text field that is either present or explicitly absent.
// The zero value is absent.
type OptionalText struct {
	value   string
	present bool
}

// Text returns a present OptionalText, or Absent when s is blank.
func Text(s string) OptionalText {
	if strings.TrimSpace(s) == "" {
		return Absent()
	}
	return OptionalText{value: s, present: true}
}

// Absent returns the explicit absent marker.
func Absent() OptionalText {
	return OptionalText{}
}

// IsPresent reports whether a value is present.
func (o OptionalText) IsPresent() bool { return o.present }

// Value returns the value, or "" when absent.
func (o OptionalText) Value() string { return o.value }

// Or returns the value, or fallback when absent.
func (o OptionalText) Or(fallback string) string {
	if !o.present {
		return fallback
	}
	return o.value
}

// String renders the value or AbsentMarker.
func (o OptionalText) String() string {
	return o.Or(AbsentMarker)
}

// MarshalJSON encodes absent as null.
func (o OptionalText) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null or "" as absent.
func (o *OptionalText) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*o = Absent()
		return nil
	}
	*o = Text(*s)
	return nil
}

// EmployeeContext is the subject half of a generation context.
type EmployeeContext struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Settings map[string]any `json:"settings"`
}

// VoiceContext holds the voice sample fields. Every field is always set;
// missing data shows up as Absent, never as a missing field.
type VoiceContext struct {
	Found    bool            `json:"found"`
	Examples [3]OptionalText `json:"examples"`
	Blurb    OptionalText    `json:"blurb"`
}

// CampaignContext is the campaign half of a generation context.
type CampaignContext struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Platform    string         `json:"platform"`
	Workflow    WorkflowConfig `json:"workflow_config"`
}

// BrandContext carries brand metadata for prompts.
type BrandContext struct {
	Name     string         `json:"name"`
	Mission  string         `json:"mission"`
	Settings map[string]any `json:"settings"`
}

// GenerationContext is built once per unit and shared read-only by every
// provider call of that unit, so all candidates are judged on equal footing.
type GenerationContext struct {
	ExecutionID string          `json:"execution_id"`
	Employee    EmployeeContext `json:"employee"`
	Voice       VoiceContext    `json:"voice_samples"`
	Campaign    CampaignContext `json:"campaign"`
	Brand       BrandContext    `json:"brand"`
}
