// Package trusty defines the pluggable verifier ("trusty agent")
// contract and the process-wide registry of built-in and external
// trusty agents. Each agent inspects a completed coding-agent attempt
// and reports a protoblock.Result; the ordering and fail-fast
// semantics of running several of them live in package blockexecutor.
package trusty

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vinayprograms/tac/internal/protoblock"
)

// CodebaseSnapshot is a read-only view of the working tree state an
// agent may consult while checking an attempt (file contents keyed by
// relative path). The indexer capability is the usual source.
type CodebaseSnapshot map[string]string

// Agent is the contract every trusty agent satisfies (§4.5).
type Agent interface {
	// Check verifies one completed attempt and returns a structured
	// outcome. Implementations must never let a panic or error escape
	// uncaught — catch internally and report via Result's error
	// component (§7 propagation rule); Check itself may still return
	// an error for truly exceptional, non-verdict conditions (e.g. the
	// agent could not even be invoked), which the executor turns into
	// a failed Result carrying the error as its summary.
	Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot CodebaseSnapshot, diff string) (protoblock.Result, error)
}

// BeforeStateCapturer is the capability sub-interface comparative
// agents (web_compare, web_reference) additionally satisfy. The
// executor invokes CaptureBeforeState prior to running the coding
// agent, and only on agents advertising this interface — modeled as a
// capability check rather than multiple inheritance, per §9 DESIGN
// NOTES.
type BeforeStateCapturer interface {
	CaptureBeforeState(ctx context.Context, pb *protoblock.ProtoBlock) error
}

// PromptTarget determines where a registered agent's protoblock_prompt
// is injected.
type PromptTarget string

const (
	// PromptTargetNone means the prompt is used only by the verifier
	// itself, not surfaced to the coding agent.
	PromptTargetNone PromptTarget = ""
	// PromptTargetCodingAgent means the prompt is folded into the
	// coding-agent request alongside the task description.
	PromptTargetCodingAgent PromptTarget = "coding_agent"
)

// Registration is one entry in the registry: an agent factory plus
// the metadata the generator needs to describe it in the genesis
// prompt.
type Registration struct {
	Name             string
	Description      string
	ProtoblockPrompt string
	PromptTarget     PromptTarget
	LLMHint          string
	Factory          func() Agent
}

// Registry is the process-wide, write-once-then-read-only mapping
// from agent name to Registration (§3 TrustyAgentRegistry). It is
// safe for concurrent reads after registration completes; concurrent
// registration is also safe, but registering the same name twice is a
// warning, not an error, matching the idempotent-registration rule in
// §4.5.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
	onWarn  func(msg string)
}

// NewRegistry creates an empty registry. onWarn, if non-nil, receives
// a message on double-registration; pass nil to ignore.
func NewRegistry(onWarn func(msg string)) *Registry {
	return &Registry{entries: map[string]Registration{}, onWarn: onWarn}
}

// Register adds or idempotently overwrites a trusty agent entry.
func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Name]; exists && r.onWarn != nil {
		r.onWarn(fmt.Sprintf("trusty agent %q registered more than once; keeping latest registration", reg.Name))
	}
	r.entries[reg.Name] = reg
}

// Get returns the registration for name, if any.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// New instantiates a fresh Agent for name via its registered factory.
func (r *Registry) New(name string) (Agent, error) {
	reg, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("trusty agent %q is not registered", name)
	}
	return reg.Factory(), nil
}

// Names returns all registered agent names in a stable (sorted) order
// — used only for catalog enumeration in the genesis prompt; the
// ordering a given protoblock actually runs in is independent (§4.2).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns the full catalog in name order, used to render
// the "enumerated list of registered trusty agents with their
// descriptions" section of the genesis prompt (§4.1 step 1c/1d).
func (r *Registry) Descriptions() []Registration {
	names := r.Names()
	out := make([]Registration, 0, len(names))
	for _, n := range names {
		reg, _ := r.Get(n)
		out = append(out, reg)
	}
	return out
}
