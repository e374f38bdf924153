// Package blockexecutor implements BlockExecutor (§4.2): one attempt —
// invoke the coding agent, capture the working-tree diff, then run the
// protoblock's trusty agents in order, aborting on the first failure.
package blockexecutor

import (
	"context"
	"fmt"
	"sync"

	"github.com/vinayprograms/tac/internal/codingagent"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/tacerr"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/vcs"
)

// Snapshotter provides the read-only codebase view trusty agents
// consult. The indexer capability (§6.5) is the usual implementation.
type Snapshotter interface {
	Snapshot(ctx context.Context) (trusty.CodebaseSnapshot, error)
}

// Executor runs one protoblock attempt. Agent instances are cached per
// attempt so a comparative agent's CaptureBeforeState and Check calls
// land on the same instance — BlockProcessor must call NewAttempt
// before each coding-agent invocation to clear the cache.
type Executor struct {
	CodingAgent codingagent.Agent
	Registry    *trusty.Registry
	VCS         vcs.VCS
	Snapshot    Snapshotter

	mu        sync.Mutex
	instances map[string]trusty.Agent
}

// New constructs an Executor from its four collaborators.
func New(agent codingagent.Agent, registry *trusty.Registry, v vcs.VCS, snap Snapshotter) *Executor {
	return &Executor{CodingAgent: agent, Registry: registry, VCS: v, Snapshot: snap, instances: map[string]trusty.Agent{}}
}

// NewAttempt discards cached agent instances, called by BlockProcessor
// at the start of every attempt so before/after state is never reused
// across attempts.
func (e *Executor) NewAttempt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instances = map[string]trusty.Agent{}
}

func (e *Executor) getAgent(name string) (trusty.Agent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok := e.instances[name]; ok {
		return a, nil
	}
	a, err := e.Registry.New(name)
	if err != nil {
		return nil, err
	}
	e.instances[name] = a
	return a, nil
}

// Result is the BlockExecutor contract's three-valued outcome.
type Result struct {
	Success        bool
	ErrorAnalysis  string
	FailureType    string
}

// ExecuteBlock runs the coding agent, captures the diff, then runs the
// trusty-agent pipeline in list order, stopping at the first failure.
func (e *Executor) ExecuteBlock(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) (Result, error) {
	if err := e.CodingAgent.Run(ctx, pb, previousAnalysis); err != nil {
		// §7 category 2: coding-agent errors are treated as a
		// pytest-equivalent failure for this attempt, not fatal.
		result := protoblock.Result{
			Success:     false,
			AgentType:   "coding_agent",
			Summary:     "coding agent failed: " + err.Error(),
			FailureType: "coding_agent_error",
		}
		pb.AttachResult("coding_agent", result)
		return Result{Success: false, ErrorAnalysis: err.Error(), FailureType: result.FailureType}, nil
	}

	diff, err := e.VCS.Diff(ctx, nil)
	if err != nil {
		return Result{}, tacerr.Wrap(tacerr.CategoryVCS, "failed to obtain working-tree diff", err)
	}

	var snapshot trusty.CodebaseSnapshot
	if e.Snapshot != nil {
		snapshot, err = e.Snapshot.Snapshot(ctx)
		if err != nil {
			return Result{}, tacerr.Wrap(tacerr.CategoryInfrastructure, "failed to snapshot codebase", err)
		}
	}

	for _, name := range pb.TrustyAgents {
		agent, err := e.getAgent(name)
		if err != nil {
			return Result{}, fmt.Errorf("trusty agent pipeline: %w", err)
		}

		result, checkErr := agent.Check(ctx, pb, snapshot, diff)
		if checkErr != nil {
			// §7 propagation rule: only truly exceptional conditions
			// reach here, since Check itself must catch internally.
			result = protoblock.Result{
				Success:     false,
				AgentType:   name,
				Summary:     "agent invocation failed: " + checkErr.Error(),
				FailureType: name + "_invocation_error",
			}
		}
		pb.AttachResult(name, result)

		if !result.Success {
			return Result{Success: false, ErrorAnalysis: result.Summary, FailureType: result.FailureType}, nil
		}
	}

	return Result{Success: true}, nil
}

// CaptureBeforeState invokes CaptureBeforeState on every trusty agent in
// the protoblock that advertises the BeforeStateCapturer capability,
// called by BlockProcessor before the coding agent runs (§4.5).
func (e *Executor) CaptureBeforeState(ctx context.Context, pb *protoblock.ProtoBlock) error {
	for _, name := range pb.TrustyAgents {
		agent, err := e.getAgent(name)
		if err != nil {
			return fmt.Errorf("trusty agent pipeline: %w", err)
		}
		if capturer, ok := agent.(trusty.BeforeStateCapturer); ok {
			if err := capturer.CaptureBeforeState(ctx, pb); err != nil {
				return fmt.Errorf("capture before-state for %s: %w", name, err)
			}
		}
	}
	return nil
}
