package provider

import (
	"fmt"
	"sort"
	"strings"

	"postcouncil/internal/types"
)

// styleTable is one backend's named styles and the style used for unknown names.
type styleTable struct {
	fallback string
	styles   map[string]string
}

const (
	toneThoughtful   = "Write in a thoughtful, insightful tone. Focus on depth and nuance."
	toneWitty        = "Write with wit and humor. Be clever but not forced."
	toneProfessional = "Write in a professional, polished tone. Be authoritative but approachable."
	toneBalanced     = "Write in a balanced tone that's both professional and personable."

	geminiThoughtful = "Be thoughtful, insightful, and reflective. Share wisdom and perspective."
	geminiAnalytical = "Be analytical and data-driven. Use evidence and logic to make your point."
	sharpBalanced    = "Balance professionalism with personality. Be engaging but not over the top."

	grokWitty = "Be witty, clever, and slightly irreverent. Use humor that makes people think."
	grokEdgy  = "Be bold and provocative. Challenge conventional wisdom. Don't be afraid to have an opinion."
)

var styleTables = map[types.Backend]styleTable{
	types.BackendOpenAI: {
		fallback: "professional",
		styles: map[string]string{
			"thoughtful":   toneThoughtful,
			"witty":        toneWitty,
			"professional": toneProfessional,
			"balanced":     toneBalanced,
		},
	},
	types.BackendAnthropic: {
		fallback: "balanced",
		styles: map[string]string{
			"thoughtful":   toneThoughtful,
			"witty":        toneWitty,
			"professional": toneProfessional,
			"balanced":     toneBalanced,
		},
	},
	types.BackendGemini: {
		fallback: "thoughtful",
		styles: map[string]string{
			"thoughtful": geminiThoughtful,
			"analytical": geminiAnalytical,
			"balanced":   sharpBalanced,
		},
	},
	types.BackendXAI: {
		fallback: "witty",
		styles: map[string]string{
			"witty":    grokWitty,
			"edgy":     grokEdgy,
			"balanced": sharpBalanced,
		},
	},
}

// ResolveStyle returns the effective style name and its instruction for a
// backend. Unknown or empty names resolve to the backend's default style.
func ResolveStyle(backend types.Backend, style string) (string, string) {
	table, ok := styleTables[backend]
	if !ok {
		table = styleTables[types.BackendAnthropic]
	}
	name := strings.ToLower(strings.TrimSpace(style))
	if instr, ok := table.styles[name]; ok {
		return name, instr
	}
	return table.fallback, table.styles[table.fallback]
}

// Styles lists the style names a backend understands, sorted.
func Styles(backend types.Backend) []string {
	table := styleTables[backend]
	out := make([]string, 0, len(table.styles))
	for name := range table.styles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Prompt is a rendered request for one candidate.
type Prompt struct {
	System string
	User   string
	Style  string
}

// PlatformName renders a platform id for prompts.
func PlatformName(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "", "linkedin":
		return "LinkedIn"
	case "x", "twitter":
		return "X"
	case "facebook":
		return "Facebook"
	case "threads":
		return "Threads"
	}
	return platform
}

func systemPrompt(backend types.Backend, platform string) string {
	switch backend {
	case types.BackendXAI:
		return fmt.Sprintf("You are a witty, irreverent %s content writer who captures authentic voices while being engaging and slightly edgy.", platform)
	case types.BackendGemini:
		return ""
	}
	return fmt.Sprintf("You are an expert %s content writer who captures authentic voices.", platform)
}

// BuildPrompt renders the prompt for gc. The output depends only on its inputs.
func BuildPrompt(gc *types.GenerationContext, backend types.Backend, style string) Prompt {
	styleName, instruction := ResolveStyle(backend, style)
	platform := PlatformName(gc.Campaign.Platform)
	name := gc.Employee.Name
	brand := gc.Brand.Name

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s post for %s at %s.\n\n", platform, name, brand)

	b.WriteString("ABOUT THE PERSON:\n")
	b.WriteString(gc.Voice.Blurb.Or("A professional at " + brand))
	b.WriteString("\n\nEXAMPLE POSTS IN THEIR VOICE:\n")
	for i, ex := range gc.Voice.Examples {
		fmt.Fprintf(&b, "\n%d) %s\n", i+1, ex.String())
	}

	fmt.Fprintf(&b, "\nCAMPAIGN: %s\n%s\n\n", gc.Campaign.Name, gc.Campaign.Description)
	fmt.Fprintf(&b, "STYLE: %s\n\n", instruction)
	if mission := strings.TrimSpace(gc.Brand.Mission); mission != "" {
		fmt.Fprintf(&b, "BRAND MISSION: %s\n\n", mission)
	}
	fmt.Fprintf(&b, "Write ONE %s post (150-280 words) that sounds authentically like %s based on the examples. Post content only.", platform, name)

	return Prompt{
		System: systemPrompt(backend, platform),
		User:   b.String(),
		Style:  styleName,
	}
}
