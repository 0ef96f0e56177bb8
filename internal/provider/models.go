package provider

import (
	"strings"

	"postcouncil/internal/types"
)

// modelFamilies maps model-name markers to backends. Order matters: the
// first marker found wins.
var modelFamilies = []struct {
	marker  string
	prefix  bool
	backend types.Backend
}{
	{"claude", false, types.BackendAnthropic},
	{"gemini", false, types.BackendGemini},
	{"grok", false, types.BackendXAI},
	{"gpt", false, types.BackendOpenAI},
	{"o1", true, types.BackendOpenAI},
	{"o3", true, types.BackendOpenAI},
	{"o4", true, types.BackendOpenAI},
}

// BackendForModel resolves a model name to its backend family.
// ok is false when the name matches no known family.
func BackendForModel(model string) (types.Backend, bool) {
	m := strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(m, "/"); i >= 0 {
		m = m[i+1:]
	}
	for _, f := range modelFamilies {
		if f.prefix && strings.HasPrefix(m, f.marker) {
			return f.backend, true
		}
		if !f.prefix && strings.Contains(m, f.marker) {
			return f.backend, true
		}
	}
	return "", false
}
