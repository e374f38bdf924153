// Package protoblock defines the ProtoBlock data model — the recipe
// for one code-modification attempt — and the construction-time
// invariants the rest of the block lifecycle engine relies on.
package protoblock

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Grade/rating thresholds live with the trusty agents that use them;
// ProtoBlock itself is agnostic to agent semantics beyond ordering.
const (
	agentPytest       = "pytest"
	agentPlausibility = "plausibility"

	branchPrefix = "tac/feature/"
	tacPrefix    = "tac/"
	commitPrefix = "tac: "
)

// ProtoBlock is the recipe for one attempt. After construction the
// executor attaches trusty_agent_results as verification completes,
// and the processor updates attempt_number and branch_name.
type ProtoBlock struct {
	BlockID             string                       `json:"block_id"`
	TaskDescription     string                       `json:"task_description"`
	WriteFiles          []string                     `json:"write_files"`
	ContextFiles         []string                     `json:"context_files"`
	CommitMessage       string                       `json:"commit_message"`
	BranchName          string                       `json:"branch_name"`
	TrustyAgents        []string                     `json:"trusty_agents"`
	TrustyAgentPrompts  map[string]string            `json:"trusty_agent_prompts"`
	ImageURL            string                       `json:"image_url,omitempty"`
	AttemptNumber       int                          `json:"attempt_number"`
	TrustyAgentResults  map[string]Result            `json:"trusty_agent_results,omitempty"`
}

// AttachResult records a trusty agent's verdict on this block. Results
// are read-only from the caller's perspective once attached — only the
// executor calls this, immediately after running each agent.
func (pb *ProtoBlock) AttachResult(agentName string, result Result) {
	if pb.TrustyAgentResults == nil {
		pb.TrustyAgentResults = map[string]Result{}
	}
	pb.TrustyAgentResults[agentName] = result
}

// New constructs a ProtoBlock from generator-normalised fields,
// allocating a fresh block_id. Use NewRetry to preserve the block_id
// of a logical block across attempts.
func New(task, commitMessage, branchName string, writeFiles, contextFiles, trustyAgents []string, trustyAgentPrompts map[string]string) (*ProtoBlock, error) {
	id, err := newBlockID()
	if err != nil {
		return nil, err
	}
	return build(id, 1, task, commitMessage, branchName, writeFiles, contextFiles, trustyAgents, trustyAgentPrompts)
}

// NewRetry constructs a ProtoBlock for attempt N+1 of an existing
// logical block, preserving block_id, branch_name and commit_message
// from the prior attempt per the retry invariant in §3/§8.
func NewRetry(prior *ProtoBlock, attemptNumber int, task string, writeFiles, contextFiles, trustyAgents []string, trustyAgentPrompts map[string]string) (*ProtoBlock, error) {
	pb, err := build(prior.BlockID, attemptNumber, task, prior.CommitMessage, prior.BranchName, writeFiles, contextFiles, trustyAgents, trustyAgentPrompts)
	if err != nil {
		return nil, err
	}
	return pb, nil
}

func build(blockID string, attempt int, task, commitMessage, branchName string, writeFiles, contextFiles, trustyAgents []string, trustyAgentPrompts map[string]string) (*ProtoBlock, error) {
	wf := normaliseRelative(writeFiles)
	cf := normaliseRelative(contextFiles)
	cf = subtract(cf, wf)

	if trustyAgentPrompts == nil {
		trustyAgentPrompts = map[string]string{}
	}

	pb := &ProtoBlock{
		BlockID:            blockID,
		TaskDescription:    task,
		WriteFiles:         wf,
		ContextFiles:       cf,
		CommitMessage:      normaliseCommitMessage(commitMessage),
		BranchName:         normaliseBranchName(branchName),
		TrustyAgents:       normaliseTrustyAgents(trustyAgents),
		TrustyAgentPrompts: trustyAgentPrompts,
		AttemptNumber:      attempt,
	}
	return pb, pb.Validate()
}

// Validate checks the construction-time invariants from §3/§8:
// non-empty relative paths in disjoint sets, pytest-first/plausibility-last
// ordering, and a non-empty block_id. Other fields are not checked.
func (pb *ProtoBlock) Validate() error {
	for _, p := range pb.WriteFiles {
		if p == "" || filepath.IsAbs(p) {
			return errInvalidPath("write_files", p)
		}
	}
	for _, p := range pb.ContextFiles {
		if p == "" || filepath.IsAbs(p) {
			return errInvalidPath("context_files", p)
		}
	}
	writeSet := toSet(pb.WriteFiles)
	for _, p := range pb.ContextFiles {
		if writeSet[p] {
			return errNotDisjoint(p)
		}
	}
	if len(pb.TrustyAgents) == 0 || pb.TrustyAgents[0] != agentPytest {
		return errOrdering("pytest must be first")
	}
	if pb.TrustyAgents[len(pb.TrustyAgents)-1] != agentPlausibility {
		return errOrdering("plausibility must be last")
	}
	if pb.BlockID == "" {
		return errOrdering("block_id must not be empty")
	}
	return nil
}

// normaliseRelative trims and cleans each path and drops empty and
// duplicate entries, preserving input order. An absolute path only
// loses its leading separator; it is not resolved against the project
// root.
func normaliseRelative(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			// Stripping the leading separator keeps the result from
			// being an absolute path.
			p = strings.TrimPrefix(p, string(filepath.Separator))
		}
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// subtract returns a \ b, preserving a's order.
func subtract(a, b []string) []string {
	bs := toSet(b)
	out := make([]string, 0, len(a))
	for _, p := range a {
		if !bs[p] {
			out = append(out, p)
		}
	}
	return out
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func normaliseBranchName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled"
	}
	if strings.HasPrefix(name, tacPrefix) {
		return name
	}
	return branchPrefix + name
}

func normaliseCommitMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if strings.HasPrefix(msg, commitPrefix) {
		return msg
	}
	return commitPrefix + msg
}

// normaliseTrustyAgents deduplicates preserving first occurrence,
// then forces pytest to index 0 and plausibility to the last index,
// inserting either if missing.
func normaliseTrustyAgents(agents []string) []string {
	var deduped []string
	seen := map[string]bool{}
	for _, a := range agents {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		deduped = append(deduped, a)
	}

	// Pull pytest and plausibility out, keep the remainder in order.
	var middle []string
	for _, a := range deduped {
		if a == agentPytest || a == agentPlausibility {
			continue
		}
		middle = append(middle, a)
	}

	out := make([]string, 0, len(middle)+2)
	out = append(out, agentPytest)
	out = append(out, middle...)
	out = append(out, agentPlausibility)
	return out
}

func newBlockID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil // 8 hex chars
}

type invariantError struct{ msg string }

func (e *invariantError) Error() string { return e.msg }

func errInvalidPath(field, path string) error {
	return &invariantError{msg: "invalid relative path in " + field + ": " + path}
}
func errNotDisjoint(path string) error {
	return &invariantError{msg: "context_files and write_files must be disjoint, found: " + path}
}
func errOrdering(msg string) error { return &invariantError{msg: "trusty_agents ordering: " + msg} }
