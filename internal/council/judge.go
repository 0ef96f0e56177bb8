package council

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"postcouncil/internal/provider"
	"postcouncil/internal/types"
)

// Fallback reasonings recorded when the judge cannot pick a winner.
const (
	ReasonParseFallback = "Fallback selection (parsing failed)"
	ReasonJudgeFallback = "Fallback selection (judge unavailable)"
	ReasonRandom        = "Randomly selected"
	ReasonFirst         = "Selected first available"
)

// Judge evaluates a comparison prompt and returns its raw reply.
type Judge interface {
	Model() string
	Evaluate(ctx context.Context, prompt string) (*provider.Completion, error)
}

// ClientJudge runs the judge prompt through a backend client.
type ClientJudge struct {
	client      provider.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewClientJudge creates a judge over client. An empty model uses the client's default.
func NewClientJudge(client provider.Client, model string, maxTokens int, temperature float64) *ClientJudge {
	if model == "" {
		model = client.DefaultModel()
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &ClientJudge{client: client, model: model, maxTokens: maxTokens, temperature: temperature}
}

// Model implements Judge.
func (j *ClientJudge) Model() string { return j.model }

// Evaluate implements Judge.
func (j *ClientJudge) Evaluate(ctx context.Context, prompt string) (*provider.Completion, error) {
	c, err := j.client.Generate(ctx, provider.CompletionRequest{
		Model:       j.model,
		Prompt:      prompt,
		MaxTokens:   j.maxTokens,
		Temperature: j.temperature,
	})
	if err != nil {
		return nil, provider.Classify(j.client.Backend(), err)
	}
	return c, nil
}

// BuildJudgePrompt renders the comparison prompt for candidates.
func BuildJudgePrompt(gc *types.GenerationContext, candidates []types.Candidate) string {
	platform := provider.PlatformName(gc.Campaign.Platform)

	var b strings.Builder
	fmt.Fprintf(&b, "You are evaluating %s posts written for %s.\n\n", platform, gc.Employee.Name)
	b.WriteString("ABOUT THE PERSON:\n")
	b.WriteString(gc.Voice.Blurb.Or("A professional"))
	b.WriteString("\n\nEXAMPLE OF THEIR AUTHENTIC VOICE:\n")
	fmt.Fprintf(&b, "%q\n\n", gc.Voice.Examples[0].String())

	b.WriteString("CANDIDATE POSTS:\n")
	for i, c := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== POST %d (from %s, style: %s) ===\n%s", i+1, c.Source, c.Style, c.Content)
	}

	b.WriteString("\n\nEVALUATION CRITERIA:\n")
	b.WriteString("1. Voice authenticity - Does it sound like the person based on their examples?\n")
	b.WriteString("2. Engagement potential - Will it generate likes, comments, shares?\n")
	b.WriteString("3. Brand alignment - Does it subtly reinforce the mission without being preachy?\n")
	b.WriteString("4. Originality - Is it fresh and interesting?\n")
	fmt.Fprintf(&b, "5. %s appropriateness - Right length, tone, format for the platform?\n\n", platform)

	b.WriteString("Select the BEST post. Respond in this exact format:\n")
	fmt.Fprintf(&b, "SELECTED: [number 1-%d]\n", len(candidates))
	b.WriteString("REASONING: [2-3 sentences explaining why]")
	return b.String()
}

// Verdict is a parsed judge reply. Index is zero-based.
type Verdict struct {
	Index     int
	Reasoning string
}

// ParseJudgeReply extracts the judge's choice among n candidates. It reads the
// first SELECTED: line and the first REASONING: line; both must be present and
// the index must fall in [1, n]. Failures carry AGGREGATION_PARSE_FAILURE.
func ParseJudgeReply(text string, n int) (Verdict, error) {
	var (
		selected, reasoning string
		haveSel, haveReason bool
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case !haveSel && strings.HasPrefix(line, "SELECTED:"):
			selected, haveSel = strings.TrimSpace(strings.TrimPrefix(line, "SELECTED:")), true
		case !haveReason && strings.HasPrefix(line, "REASONING:"):
			reasoning, haveReason = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:")), true
		}
	}

	if !haveSel {
		return Verdict{}, types.NewError(types.KindAggregationParseFailure, "no SELECTED line in judge reply")
	}
	if !haveReason {
		return Verdict{}, types.NewError(types.KindAggregationParseFailure, "no REASONING line in judge reply")
	}

	selected = strings.TrimSuffix(strings.Trim(selected, "[]"), ".")
	num, err := strconv.Atoi(strings.TrimSpace(selected))
	if err != nil {
		return Verdict{}, types.WrapError(types.KindAggregationParseFailure, err, "SELECTED value %q is not a number", selected)
	}
	if num < 1 || num > n {
		return Verdict{}, types.NewError(types.KindAggregationParseFailure, "SELECTED %d out of range 1-%d", num, n)
	}
	return Verdict{Index: num - 1, Reasoning: reasoning}, nil
}
