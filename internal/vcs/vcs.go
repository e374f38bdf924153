// Package vcs defines the version-control capability tac's executor
// depends on (§6.2) and a shell git implementation of it. The capability
// is expressed as one interface rather than several concrete git calls so
// that --no-git runs can substitute a no-op implementation (§9 DESIGN
// NOTES: capability sub-interfaces over multiple inheritance).
package vcs

import "context"

// Status summarizes the working tree, mirroring what `git status
// --porcelain=v1 --branch` reports.
type Status struct {
	Branch    string
	Modified  []string
	Staged    []string
	Untracked []string
	Deleted   []string
	Clean     bool
}

// VCS is the capability a BlockExecutor needs from version control:
// branch setup, commit, revert, and inspection. Implementations must be
// safe to call from a single goroutine at a time per protoblock; tac
// never runs two protoblocks against the same working tree concurrently
// (§5).
type VCS interface {
	// EnsureBranch checks out branch, creating it off the configured base
	// branch if it does not exist. Re-running EnsureBranch with a branch
	// name already checked out is a no-op (idempotent retry semantics,
	// §4.3).
	EnsureBranch(ctx context.Context, branch string) error
	// Status reports the current working-tree state.
	Status(ctx context.Context) (Status, error)
	// Diff returns the unstaged diff for the given paths, or the full
	// working tree diff when paths is empty.
	Diff(ctx context.Context, paths []string) (string, error)
	// Commit stages paths (or everything changed, if paths is empty) and
	// commits with message. Committing with nothing staged is not an
	// error; it simply reports no commit was made.
	Commit(ctx context.Context, message string, paths []string) (committed bool, err error)
	// RevertChanges discards all uncommitted changes to the working tree
	// between retry attempts (§4.3 BlockProcessor retry loop).
	RevertChanges(ctx context.Context) error
	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)
}

// NoOp is the --no-git VCS implementation (§6.7): every mutating call is
// a successful no-op, and Status/Diff report an empty, clean tree.
type NoOp struct{}

func (NoOp) EnsureBranch(ctx context.Context, branch string) error { return nil }
func (NoOp) Status(ctx context.Context) (Status, error)            { return Status{Clean: true}, nil }
func (NoOp) Diff(ctx context.Context, paths []string) (string, error) { return "", nil }
func (NoOp) Commit(ctx context.Context, message string, paths []string) (bool, error) {
	return false, nil
}
func (NoOp) RevertChanges(ctx context.Context) error         { return nil }
func (NoOp) CurrentBranch(ctx context.Context) (string, error) { return "", nil }
