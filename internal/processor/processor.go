// Package processor implements BlockProcessor (§4.3): the retry/revert
// controller that drives ProtoBlockGenerator and BlockExecutor through
// up to max_retries attempts of one logical block, reverting the
// working tree between failures and regenerating with the failing
// agent's analysis as feedback.
package processor

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vinayprograms/tac/internal/blockexecutor"
	"github.com/vinayprograms/tac/internal/erroranalyzer"
	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/tacerr"
	"github.com/vinayprograms/tac/internal/telemetry"
	"github.com/vinayprograms/tac/internal/vcs"
)

const tacBranchPrefix = "tac/"

// ProgressFunc receives one lifecycle event per phase transition — the
// progress-event emission hook named in §9 DESIGN NOTES, subscribed to
// by any UI transport.
type ProgressFunc func(phase, message string)

// Processor drives one logical block's retry loop.
type Processor struct {
	Generator     *generator.Generator
	Executor      *blockexecutor.Executor
	ErrorAnalyzer *erroranalyzer.ErrorAnalyzer
	VCS           vcs.VCS

	MaxRetries    int
	HaltAfterFail bool
	// Resume, when HaltAfterFail is set and Resume is non-nil, must
	// receive a value between attempts before the processor continues;
	// a nil Resume does not block. Per the Open Question
	// decision in SPEC_FULL.md, this blocks on a caller-supplied
	// channel rather than stdin.
	Resume <-chan struct{}

	OnProgress ProgressFunc

	// Tracer wraps each attempt in a span. A nil Tracer is a safe no-op.
	Tracer *telemetry.Tracer
}

func (p *Processor) emit(phase, msg string) {
	if p.OnProgress != nil {
		p.OnProgress(phase, msg)
	}
}

// RunLoop is the BlockProcessor contract: generate, then up to
// MaxRetries attempts of execute/verify, reverting and regenerating
// between failures. Returns true on eventual success.
func (p *Processor) RunLoop(ctx context.Context, instructions string, codebase generator.CodebaseSummary) (bool, error) {
	if err := p.guardCleanTree(ctx); err != nil {
		return false, err
	}

	p.emit("generate", "requesting initial protoblock")
	pb, err := p.Generator.Generate(ctx, instructions, codebase)
	if err != nil {
		return false, err
	}

	if err := p.setupBranch(ctx, pb); err != nil {
		return false, err
	}

	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var previousAnalysis string
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pb.AttemptNumber = attempt
		p.emit("execute", "attempt "+strconv.Itoa(attempt))

		attemptCtx, span := p.Tracer.StartSpan(ctx, "tac.attempt",
			attribute.String("block_id", pb.BlockID),
			attribute.Int("attempt", attempt),
		)

		if p.Executor != nil {
			p.Executor.NewAttempt()
			if err := p.Executor.CaptureBeforeState(attemptCtx, pb); err != nil {
				span.End()
				return false, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to capture before-state", err)
			}
		}

		result, err := p.Executor.ExecuteBlock(attemptCtx, pb, previousAnalysis)
		if err != nil {
			span.End()
			return false, err
		}

		if result.Success {
			committed, err := p.VCS.Commit(attemptCtx, pb.CommitMessage, nil)
			span.End()
			if err != nil {
				return false, tacerr.Wrap(tacerr.CategoryVCS, "commit failed", err)
			}
			p.emit("commit", commitSummary(committed))
			return true, nil
		}

		p.emit("fail", result.ErrorAnalysis)
		span.End()

		if attempt == maxRetries {
			break
		}

		if p.HaltAfterFail {
			p.emit("halt", "awaiting resume signal")
			if p.Resume != nil {
				select {
				case <-p.Resume:
				case <-ctx.Done():
					return false, ctx.Err()
				}
			}
		}

		analysis := result.ErrorAnalysis
		if p.ErrorAnalyzer != nil {
			if a, aerr := p.ErrorAnalyzer.Analyze(ctx, pb, result.ErrorAnalysis, codebase); aerr == nil {
				analysis = a.Raw
			}
		}
		previousAnalysis = analysis

		if err := p.VCS.RevertChanges(ctx); err != nil {
			return false, tacerr.Wrap(tacerr.CategoryVCS, "revert failed", err)
		}

		p.emit("regenerate", "regenerating protoblock with failure analysis")
		pb, err = p.Generator.Retry(ctx, pb, attempt+1, analysis, codebase)
		if err != nil {
			return false, err
		}
	}

	return false, nil
}

// guardCleanTree enforces §7 category 4: never proceed on a dirty tree.
func (p *Processor) guardCleanTree(ctx context.Context) error {
	status, err := p.VCS.Status(ctx)
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryVCS, "failed to read working-tree status", err)
	}
	if !status.Clean {
		return tacerr.New(tacerr.CategoryVCS, "working tree is dirty; refusing to start a new block")
	}
	return nil
}

// setupBranch runs once per logical block: reuse the current branch if
// it is already tac/*-prefixed, otherwise switch to the protoblock's
// branch_name.
func (p *Processor) setupBranch(ctx context.Context, pb *protoblock.ProtoBlock) error {
	current, err := p.VCS.CurrentBranch(ctx)
	if err != nil {
		return tacerr.Wrap(tacerr.CategoryVCS, "failed to read current branch", err)
	}
	if strings.HasPrefix(current, tacBranchPrefix) {
		pb.BranchName = current
		return nil
	}
	if err := p.VCS.EnsureBranch(ctx, pb.BranchName); err != nil {
		return tacerr.Wrap(tacerr.CategoryVCS, "failed to set up branch "+pb.BranchName, err)
	}
	return nil
}

func commitSummary(committed bool) string {
	if committed {
		return "committed"
	}
	return "nothing to commit"
}

