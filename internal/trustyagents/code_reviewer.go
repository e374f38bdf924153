package trustyagents

import (
	"context"
	"fmt"

	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
)

// CodeReviewerAgent grades a diff against the task description on an
// A..F letter scale; A..D pass, F fails (§4.5).
type CodeReviewerAgent struct {
	Provider llm.Provider
	MinGrade string // e.g. "D"
}

func (a *CodeReviewerAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	minGrade := a.MinGrade
	if minGrade == "" {
		minGrade = "D"
	}

	resp, err := a.Provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a meticulous senior code reviewer grading a diff against its stated task."},
			{Role: "user", Content: codeReviewPrompt(pb, diff)},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return errorResult("code_reviewer", err), nil
	}

	grade, ok := parseGrade(resp.Content)
	if !ok {
		return protoblock.Result{
			Success:     false,
			AgentType:   "code_reviewer",
			Summary:     "code reviewer response did not contain a parseable GRADE",
			FailureType: "code_reviewer_unparseable",
			Components:  []protoblock.Component{protoblock.NewReport("code review", resp.Content)},
		}, nil
	}

	pass := gradeMeetsMinimum(grade, minGrade)
	return protoblock.Result{
		Success:     pass,
		AgentType:   "code_reviewer",
		Summary:     fmt.Sprintf("code review grade: %s (minimum %s)", grade, minGrade),
		FailureType: failureTypeIf(!pass, "code_reviewer_grade_below_minimum"),
		Components: []protoblock.Component{
			protoblock.NewGrade(grade, "letter", ""),
			protoblock.NewReport("code review", resp.Content),
		},
	}, nil
}

func codeReviewPrompt(pb *protoblock.ProtoBlock, diff string) string {
	return fmt.Sprintf(`<purpose>
Review the following diff against the task it was meant to accomplish. Judge correctness, style, and whether it stays within its declared write scope.
</purpose>

<task>
%s
</task>

<diff>
%s
</diff>

<output_format>
GRADE: (a single letter A-F)
followed by your full written review.
</output_format>`, pb.TaskDescription, diff)
}

func errorResult(agentType string, err error) protoblock.Result {
	return protoblock.Result{
		Success:     false,
		AgentType:   agentType,
		Summary:     agentType + " invocation failed: " + err.Error(),
		FailureType: agentType + "_invocation_error",
		Components:  []protoblock.Component{protoblock.NewError(err.Error(), "invocation_error", "")},
	}
}

// RegisterCodeReviewer adds the code_reviewer registration to reg.
func RegisterCodeReviewer(reg *trusty.Registry, provider llm.Provider, minGrade string) {
	reg.Register(trusty.Registration{
		Name:        "code_reviewer",
		Description: "LLM review of the diff against the task; grades A-F, passes at or above the configured minimum.",
		Factory: func() trusty.Agent {
			return &CodeReviewerAgent{Provider: provider, MinGrade: minGrade}
		},
	})
}
