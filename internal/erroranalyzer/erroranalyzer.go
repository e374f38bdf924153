// Package erroranalyzer implements ErrorAnalyzer (§4.6): given a failed
// attempt's test results and the current codebase state, it asks the
// analysis LLM for a structured root-cause analysis that ProtoBlockGenerator
// folds into the next retry's prompt as "previous_analysis". Grounded on
// original_source/src/tac/core/error_analyzer.py's analyze_failure,
// generalized from python/pytest-specific framing to language-agnostic
// framing and from free text to a parsed Analysis struct.
package erroranalyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
)

// Analysis is the parsed result of one failure-analysis call, matching
// the original's fixed output sections.
type Analysis struct {
	Raw               string
	FailureType       string
	ErrorLocation     string
	RootCause         string
	DetailedAnalysis  string
	Recommendations   string
	MissingWriteFiles []string
}

// ErrorAnalyzer asks an LLM to explain a failed attempt.
type ErrorAnalyzer struct {
	Provider      llm.Provider
	UseSummaries  bool // fold in indexer summaries instead of full file content, when the codebase is large
}

// New returns an ErrorAnalyzer backed by provider.
func New(provider llm.Provider) *ErrorAnalyzer {
	return &ErrorAnalyzer{Provider: provider}
}

// Analyze builds the structured prompt and parses the LLM's structured
// response. codebase maps relative file path to either full content or
// an indexer-produced summary, depending on UseSummaries.
func (a *ErrorAnalyzer) Analyze(ctx context.Context, pb *protoblock.ProtoBlock, testResults string, codebase map[string]string) (Analysis, error) {
	prompt := a.buildPrompt(pb, testResults, codebase)

	resp, err := a.Provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a coding assistant specialized in analyzing test failures and implementation errors. Provide clear, actionable analysis."},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 4096,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("error analysis failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Analysis{}, fmt.Errorf("error analysis returned an empty response")
	}
	return parse(resp.Content), nil
}

func (a *ErrorAnalyzer) buildPrompt(pb *protoblock.ProtoBlock, testResults string, codebase map[string]string) string {
	var codebaseContent strings.Builder
	first := true
	for path, content := range codebase {
		if !first {
			codebaseContent.WriteString("\n\n")
		}
		first = false
		if a.UseSummaries {
			fmt.Fprintf(&codebaseContent, "File: %s\n%s", path, content)
		} else {
			fmt.Fprintf(&codebaseContent, "File: %s\n```\n%s\n```", path, content)
		}
	}

	return fmt.Sprintf(`<purpose>
You are a senior software engineer analyzing a failed implementation attempt. Your goal is to provide a clear and detailed analysis of what went wrong and suggest specific improvements.
</purpose>

<codebase_state>
%s
</codebase_state>

<protoblock>
Task Description: %s
Write Files: %v
Context Files: %v
</protoblock>

<test_results>
%s
</test_results>

<analysis_rules>
1. First identify the type of failure (syntax error, runtime error, test assertion, etc.)
2. Locate the specific files and lines where errors occurred
3. Analyze the root cause - what specifically went wrong?
4. Consider if the error relates to:
   - Implementation mistakes
   - Missing dependencies or imports
   - Incorrect test assumptions
   - Environment/configuration issues
5. Suggest specific improvements or fixes
</analysis_rules>

<output_format>
Provide your analysis in the following structure:

FAILURE TYPE:
(Describe the category of failure)

ERROR LOCATION:
(Identify specific files/lines where errors occurred)

ROOT CAUSE:
(Explain the fundamental issue that caused the failure)

DETAILED ANALYSIS:
(Provide in-depth analysis of what went wrong)

RECOMMENDATIONS:
(List specific suggestions for fixing the issues)

MISSING WRITE FILES:
(Provide a list of files that were previously not listed in Write Files above, but the coder needs write access to them. The format should be a list, e.g. ["tests/test_main.go"])
</output_format>`, codebaseContent.String(), pb.TaskDescription, pb.WriteFiles, pb.ContextFiles, testResults)
}

var sectionRe = regexp.MustCompile(`(?is)FAILURE TYPE:\s*(.*?)\s*ERROR LOCATION:\s*(.*?)\s*ROOT CAUSE:\s*(.*?)\s*DETAILED ANALYSIS:\s*(.*?)\s*RECOMMENDATIONS:\s*(.*?)\s*MISSING WRITE FILES:\s*(.*)`)

var fileListRe = regexp.MustCompile(`"([^"]+)"`)

// parse extracts the fixed sections from the LLM's structured response.
// A response that doesn't match the expected shape still round-trips as
// Raw, with every other field left empty, and is not an error (§7:
// analysis failures degrade gracefully, they never abort the retry
// loop).
func parse(text string) Analysis {
	a := Analysis{Raw: text}
	m := sectionRe.FindStringSubmatch(text)
	if m == nil {
		return a
	}
	a.FailureType = strings.TrimSpace(m[1])
	a.ErrorLocation = strings.TrimSpace(m[2])
	a.RootCause = strings.TrimSpace(m[3])
	a.DetailedAnalysis = strings.TrimSpace(m[4])
	a.Recommendations = strings.TrimSpace(m[5])
	for _, fm := range fileListRe.FindAllStringSubmatch(m[6], -1) {
		a.MissingWriteFiles = append(a.MissingWriteFiles, fm[1])
	}
	return a
}
