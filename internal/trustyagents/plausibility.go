package trustyagents

import (
	"context"
	"fmt"

	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
)

// PlausibilityAgent grades a diff against the task on a 0.0-5.0 star
// scale; always runs last in trusty_agents per the protoblock
// normalisation invariant (§3/§8).
type PlausibilityAgent struct {
	Provider llm.Provider
	MinStars float64
}

func (a *PlausibilityAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	minStars := a.MinStars
	if minStars == 0 {
		minStars = 3.0
	}

	resp, err := a.Provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You rate how plausible and complete a code change is relative to its stated task, on a 0.0 to 5.0 star scale."},
			{Role: "user", Content: plausibilityPrompt(pb, diff)},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return errorResult("plausibility", err), nil
	}

	stars, ok := parseStars(resp.Content)
	if !ok {
		return protoblock.Result{
			Success:     false,
			AgentType:   "plausibility",
			Summary:     "plausibility response did not contain a parseable STAR RATING",
			FailureType: "plausibility_unparseable",
			Components:  []protoblock.Component{protoblock.NewReport("plausibility review", resp.Content)},
		}, nil
	}

	pass := stars >= minStars
	return protoblock.Result{
		Success:     pass,
		AgentType:   "plausibility",
		Summary:     fmt.Sprintf("plausibility rating: %.1f stars (minimum %.1f)", stars, minStars),
		FailureType: failureTypeIf(!pass, "plausibility_grade_below_minimum"),
		Components: []protoblock.Component{
			protoblock.NewGrade(fmt.Sprintf("%.1f", stars), "stars", ""),
			protoblock.NewReport("plausibility review", resp.Content),
		},
	}, nil
}

func plausibilityPrompt(pb *protoblock.ProtoBlock, diff string) string {
	extra := pb.TrustyAgentPrompts["plausibility"]
	return fmt.Sprintf(`<purpose>
Rate how plausible it is that the following diff fully and correctly accomplishes the task, on a scale of 0.0 to 5.0 stars.
</purpose>

<task>
%s
</task>

<diff>
%s
</diff>

<additional_guidance>
%s
</additional_guidance>

<output_format>
STAR RATING: (a number from 0.0 to 5.0)
followed by your reasoning.
</output_format>`, pb.TaskDescription, diff, extra)
}

// RegisterPlausibility adds the plausibility registration to reg.
func RegisterPlausibility(reg *trusty.Registry, provider llm.Provider, minStars float64) {
	reg.Register(trusty.Registration{
		Name:        "plausibility",
		Description: "LLM plausibility rating of the diff against the task, 0.0-5.0 stars; passes at or above the configured minimum.",
		Factory: func() trusty.Agent {
			return &PlausibilityAgent{Provider: provider, MinStars: minStars}
		},
	})
}
