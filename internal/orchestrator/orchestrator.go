// Package orchestrator implements MultiBlockOrchestrator (§4.4): it
// decomposes a large task into a sequence of protoblock recipes via a
// chunking LLM call, then runs one BlockProcessor per chunk in strict
// sequence on a shared feature branch, committing each chunk before the
// next begins.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/processor"
	"github.com/vinayprograms/tac/internal/tacerr"
	"github.com/vinayprograms/tac/internal/telemetry"
	"github.com/vinayprograms/tac/internal/vcs"
)

const branchPrefix = "tac/feature/"

// Recipe is one chunk's work order: a title and a free-form description
// fed to the chunk's BlockProcessor as instructions.
type Recipe struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ChunkingResult is the §3 ChunkingResult data model.
type ChunkingResult struct {
	Strategy   string   `json:"strategy"`
	BranchName string   `json:"branch_name"`
	Chunks     []Recipe `json:"chunks"`
}

// CodebaseRefresher refreshes the codebase summary the generator
// consumes, since each chunk's commits alter the tree (§4.4 step "for
// each recipe in order").
type CodebaseRefresher interface {
	Refresh(ctx context.Context) (generator.CodebaseSummary, error)
}

// ConfirmFunc gates multi-block execution behind an interactive
// confirmation (confirm_multiblock_execution); return false to abort
// before any chunk runs. Pass nil to skip confirmation entirely.
type ConfirmFunc func(result ChunkingResult) bool

// ProcessorFactory builds a fresh BlockProcessor for one chunk. Each
// chunk gets its own Processor instance since BlockProcessor is
// stateful across one logical block's retries.
type ProcessorFactory func() *processor.Processor

// Orchestrator drives task decomposition and sequential chunk
// execution.
type Orchestrator struct {
	Provider  llm.Provider
	VCS       vcs.VCS
	Codebase  CodebaseRefresher
	NewProcessor ProcessorFactory
	Confirm   ConfirmFunc

	OnProgress func(phase, message string)

	// Tracer wraps each chunk in a span. A nil Tracer is a safe no-op.
	Tracer *telemetry.Tracer
}

func (o *Orchestrator) emit(phase, msg string) {
	if o.OnProgress != nil {
		o.OnProgress(phase, msg)
	}
}

// Execute is the MultiBlockOrchestrator contract: decompose, then run
// each chunk's BlockProcessor in order, committing between chunks.
func (o *Orchestrator) Execute(ctx context.Context, taskInstructions string, codebase generator.CodebaseSummary) (bool, error) {
	result, err := o.decompose(ctx, taskInstructions)
	if err != nil {
		return false, err
	}
	result.BranchName = normaliseBranchName(result.BranchName)

	if o.Confirm != nil && !o.Confirm(result) {
		o.emit("abort", "multi-block execution declined by operator")
		return false, nil
	}

	if err := o.VCS.EnsureBranch(ctx, result.BranchName); err != nil {
		return false, tacerr.Wrap(tacerr.CategoryVCS, "failed to switch to shared branch "+result.BranchName, err)
	}

	for i, recipe := range result.Chunks {
		o.emit("chunk", fmt.Sprintf("chunk %d/%d: %s", i+1, len(result.Chunks), recipe.Title))

		chunkCtx, span := o.Tracer.StartSpan(ctx, "tac.chunk",
			attribute.Int("chunk_index", i),
			attribute.String("chunk_title", recipe.Title),
		)

		chunkCodebase := codebase
		if o.Codebase != nil {
			refreshed, err := o.Codebase.Refresh(chunkCtx)
			if err != nil {
				span.End()
				return false, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to refresh codebase summary", err)
			}
			chunkCodebase = refreshed
		}

		proc := o.NewProcessor()
		ok, err := proc.RunLoop(chunkCtx, recipe.Description, chunkCodebase)
		span.End()
		if err != nil {
			return false, err
		}
		if !ok {
			o.emit("abort", fmt.Sprintf("chunk %d (%s) exhausted its retry budget; remaining chunks skipped", i+1, recipe.Title))
			return false, nil
		}
	}

	return true, nil
}

// decompose requests the chunking LLM call; a malformed response falls
// back to a single chunk containing the entire instructions, per §4.4
// step 2 ("advisory, no hard error").
func (o *Orchestrator) decompose(ctx context.Context, instructions string) (ChunkingResult, error) {
	resp, err := o.Provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You split a large coding task into an ordered sequence of small, independently testable chunks."},
			{Role: "user", Content: chunkingPrompt(instructions)},
		},
		MaxTokens: 2048,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return fallbackChunking(instructions), nil
	}

	var result ChunkingResult
	content := stripFences(resp.Content)
	if jsonErr := json.Unmarshal([]byte(content), &result); jsonErr != nil || len(result.Chunks) == 0 {
		return fallbackChunking(instructions), nil
	}
	return result, nil
}

func fallbackChunking(instructions string) ChunkingResult {
	return ChunkingResult{
		Strategy: "single-chunk-fallback",
		Chunks:   []Recipe{{Title: "full task", Description: instructions}},
	}
}

func chunkingPrompt(instructions string) string {
	return fmt.Sprintf(`<purpose>
Decompose the following large task into an ordered sequence of small, independently testable chunks. Each chunk should be completable and verifiable on its own.
</purpose>

<task>
%s
</task>

<output_format>
Respond with a single JSON object: {"strategy": string, "branch_name": string, "chunks": [{"title": string, "description": string}]}
</output_format>`, instructions)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normaliseBranchName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "multiblock"
	}
	if strings.HasPrefix(name, "tac/") {
		return name
	}
	return branchPrefix + name
}
