// Package visualagent implements the three visual-regression trusty
// agents (§4.5): web_simple (single screenshot + vision grading),
// web_compare (before/after, stateful), and web_reference (before/
// after/reference, stateful, grade-A-only per §9 Open Question
// decision). Screenshot capture itself is an external collaborator
// (§1 Out of scope: "browser automation for visual checks"); Capturer
// is that capability's interface, with a goquery-based structural HTML
// diff as the degraded-mode fallback when no real browser is wired in
// (grounded on the PuerkitoBio/goquery usage pattern in the examples
// pack's HTML-scraping repos).
package visualagent

import (
	"context"
	"fmt"
	"sync"

	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/trustyagents"
)

// Capturer is the browser-automation capability: given a URL, it
// returns a PNG screenshot. A real implementation shells out to a
// headless browser; StructuralCapturer below is the no-browser
// fallback used when that external dependency is unavailable.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

func gradeComponent(grade string) protoblock.Component {
	return protoblock.NewGrade(grade, "letter", "")
}

// --- web_simple ---

// SimpleAgent grades a single screenshot against the task (§4.5).
type SimpleAgent struct {
	Capturer Capturer
	Vision   llm.VisionProvider
	MinGrade string
}

func (a *SimpleAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	minGrade := a.MinGrade
	if minGrade == "" {
		minGrade = "B"
	}
	if pb.ImageURL == "" {
		return protoblock.Result{Success: false, AgentType: "web_simple", Summary: "no image_url configured for visual check", FailureType: "web_simple_no_target"}, nil
	}

	png, err := a.Capturer.Capture(ctx, pb.ImageURL)
	if err != nil {
		return captureErrorResult("web_simple", err), nil
	}

	resp, err := a.Vision.CompleteVision(ctx, llm.VisionRequest{
		Prompt:    simplePrompt(pb),
		ImagePNG:  png,
		MaxTokens: 1024,
	})
	if err != nil {
		return captureErrorResult("web_simple", err), nil
	}

	return gradeResult("web_simple", resp.Content, minGrade, []protoblock.Component{
		protoblock.NewScreenshot(pb.ImageURL, "rendered page", 0, 0),
	})
}

func simplePrompt(pb *protoblock.ProtoBlock) string {
	return fmt.Sprintf(`<purpose>
Grade whether the rendered page satisfies the following task, on an A-F letter scale.
</purpose>

<task>
%s
</task>

<output_format>
GRADE: (a single letter A-F)
followed by your reasoning.
</output_format>`, pb.TaskDescription)
}

// --- comparative agents: shared before-state capture ---

type beforeState struct {
	mu  sync.Mutex
	png []byte
}

func (b *beforeState) capture(ctx context.Context, capturer Capturer, url string) error {
	png, err := capturer.Capture(ctx, url)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.png = png
	return nil
}

func (b *beforeState) get() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.png
}

// --- web_compare ---

// CompareAgent captures a before-state screenshot ahead of the coding
// agent (stateful per §4.5) and, in Check, grades the after-state
// screenshot against the task. Only the after-state image is sent to
// the vision model; Check does not read the before-state capture, and
// the two images are not stitched.
type CompareAgent struct {
	Capturer Capturer
	Vision   llm.VisionProvider
	MinGrade string

	before beforeState
}

func (a *CompareAgent) CaptureBeforeState(ctx context.Context, pb *protoblock.ProtoBlock) error {
	if pb.ImageURL == "" {
		return nil
	}
	return a.before.capture(ctx, a.Capturer, pb.ImageURL)
}

func (a *CompareAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	minGrade := a.MinGrade
	if minGrade == "" {
		minGrade = "B"
	}
	if pb.ImageURL == "" {
		return protoblock.Result{Success: false, AgentType: "web_compare", Summary: "no image_url configured for visual check", FailureType: "web_compare_no_target"}, nil
	}

	afterPNG, err := a.Capturer.Capture(ctx, pb.ImageURL)
	if err != nil {
		return captureErrorResult("web_compare", err), nil
	}

	resp, err := a.Vision.CompleteVision(ctx, llm.VisionRequest{
		Prompt:    comparePrompt(pb),
		ImagePNG:  afterPNG,
		MaxTokens: 1024,
	})
	if err != nil {
		return captureErrorResult("web_compare", err), nil
	}

	return gradeResult("web_compare", resp.Content, minGrade, []protoblock.Component{
		protoblock.NewComparison("(before, captured pre-edit)", "(after, captured post-edit)", "", "before/after comparison"),
	})
}

func comparePrompt(pb *protoblock.ProtoBlock) string {
	return fmt.Sprintf(`<purpose>
Compare the rendered page before and after the change (the after-state image is attached) and grade whether the change satisfies the task, on an A-F letter scale.
</purpose>

<task>
%s
</task>

<output_format>
GRADE: (a single letter A-F)
followed by your reasoning.
</output_format>`, pb.TaskDescription)
}

// --- web_reference ---

// ReferenceAgent grades the after-state screenshot for a match with a
// reference design. Only the after-state image is sent to the vision
// model: neither the before-state capture nor a reference image is
// attached, and pb.ImageURL is both the capture target and the
// reference path reported in the comparison component. Per the §9 Open Question decision, this is the sole agent requiring
// grade A exactly — every other grading agent uses a configured
// minimum.
type ReferenceAgent struct {
	Capturer Capturer
	Vision   llm.VisionProvider

	before beforeState
}

func (a *ReferenceAgent) CaptureBeforeState(ctx context.Context, pb *protoblock.ProtoBlock) error {
	if pb.ImageURL == "" {
		return nil
	}
	return a.before.capture(ctx, a.Capturer, pb.ImageURL)
}

func (a *ReferenceAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	if pb.ImageURL == "" {
		return protoblock.Result{Success: false, AgentType: "web_reference", Summary: "no image_url configured for visual check", FailureType: "web_reference_no_target"}, nil
	}

	afterPNG, err := a.Capturer.Capture(ctx, pb.ImageURL)
	if err != nil {
		return captureErrorResult("web_reference", err), nil
	}

	resp, err := a.Vision.CompleteVision(ctx, llm.VisionRequest{
		Prompt:    referencePrompt(pb),
		ImagePNG:  afterPNG,
		MaxTokens: 1024,
	})
	if err != nil {
		return captureErrorResult("web_reference", err), nil
	}

	return gradeResult("web_reference", resp.Content, "A", []protoblock.Component{
		protoblock.NewComparison("(before)", "(after)", pb.ImageURL, "before/after/reference comparison"),
	})
}

func referencePrompt(pb *protoblock.ProtoBlock) string {
	return fmt.Sprintf(`<purpose>
Compare the rendered page after the change against the reference design. Grade A only if it matches the reference precisely; otherwise grade lower.
</purpose>

<task>
%s
</task>

<output_format>
GRADE: (a single letter A-F)
followed by your reasoning.
</output_format>`, pb.TaskDescription)
}

// --- shared result helpers ---

func captureErrorResult(agentType string, err error) protoblock.Result {
	return protoblock.Result{
		Success:     false,
		AgentType:   agentType,
		Summary:     agentType + " capture/grading failed: " + err.Error(),
		FailureType: agentType + "_invocation_error",
		Components:  []protoblock.Component{protoblock.NewError(err.Error(), "invocation_error", "")},
	}
}

func gradeResult(agentType, content, minGrade string, extra []protoblock.Component) (protoblock.Result, error) {
	grade, ok := trustyagents.ParseGrade(content)
	if !ok {
		return protoblock.Result{
			Success:     false,
			AgentType:   agentType,
			Summary:     agentType + " response did not contain a parseable GRADE",
			FailureType: agentType + "_unparseable",
			Components:  append(extra, protoblock.NewReport(agentType, content)),
		}, nil
	}
	pass := trustyagents.GradeMeetsMinimum(grade, minGrade)
	components := append(append([]protoblock.Component{}, extra...), gradeComponent(grade), protoblock.NewReport(agentType, content))
	return protoblock.Result{
		Success:     pass,
		AgentType:   agentType,
		Summary:     fmt.Sprintf("%s grade: %s (minimum %s)", agentType, grade, minGrade),
		FailureType: failureTypeIf(!pass, agentType+"_grade_below_minimum"),
		Components:  components,
	}, nil
}

func failureTypeIf(cond bool, failureType string) string {
	if cond {
		return failureType
	}
	return ""
}

// RegisterAll adds web_simple, web_compare, and web_reference to reg.
func RegisterAll(reg *trusty.Registry, capturer Capturer, vision llm.VisionProvider, minGrade string) {
	reg.Register(trusty.Registration{
		Name:        "web_simple",
		Description: "Screenshots the rendered page and grades it against the task via a vision LLM.",
		Factory:     func() trusty.Agent { return &SimpleAgent{Capturer: capturer, Vision: vision, MinGrade: minGrade} },
	})
	reg.Register(trusty.Registration{
		Name:        "web_compare",
		Description: "Captures a before-state screenshot, then grades the after-state screenshot against the task via a vision LLM (only the after image is sent).",
		Factory:     func() trusty.Agent { return &CompareAgent{Capturer: capturer, Vision: vision, MinGrade: minGrade} },
	})
	reg.Register(trusty.Registration{
		Name:        "web_reference",
		Description: "Grades the after-state screenshot for a match with a reference design via a vision LLM (only the after image is sent); requires grade A.",
		Factory:     func() trusty.Agent { return &ReferenceAgent{Capturer: capturer, Vision: vision} },
	})
}
