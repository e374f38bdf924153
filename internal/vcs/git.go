package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vinayprograms/tac/internal/tacerr"
)

// Git is the shell-git VCS implementation, grounded on the same
// exec.Command("git", ...) pattern used throughout the example pack's
// git tooling: run the binary, trim its output, wrap failures with
// context.
type Git struct {
	Dir        string // repository root
	BaseBranch string
}

// NewGit returns a Git capability rooted at dir, finding the repository
// root via `git rev-parse --show-toplevel` and failing if dir is not
// inside a git working tree.
func NewGit(ctx context.Context, dir, baseBranch string) (*Git, error) {
	out, err := runIn(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, tacerr.VCSError{Op: "rev-parse", Message: "not a git repository", Cause: err}
	}
	if baseBranch == "" {
		baseBranch = "main"
	}
	return &Git{Dir: strings.TrimSpace(out), BaseBranch: baseBranch}, nil
}

func runIn(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	return runIn(ctx, g.Dir, args...)
}

// EnsureBranch checks out branch, creating it off BaseBranch if absent.
func (g *Git) EnsureBranch(ctx context.Context, branch string) error {
	current, err := g.CurrentBranch(ctx)
	if err == nil && current == branch {
		return nil
	}
	if _, err := g.run(ctx, "rev-parse", "--verify", branch); err == nil {
		_, err := g.run(ctx, "checkout", branch)
		if err != nil {
			return tacerr.VCSError{Op: "checkout", Message: "failed to checkout existing branch " + branch, Cause: err}
		}
		return nil
	}
	if _, err := g.run(ctx, "checkout", "-b", branch, g.BaseBranch); err != nil {
		return tacerr.VCSError{Op: "checkout -b", Message: "failed to create branch " + branch, Cause: err}
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", tacerr.VCSError{Op: "branch --show-current", Cause: err}
	}
	return strings.TrimSpace(out), nil
}

// Status reports the working tree state via `git status --porcelain=v1`.
func (g *Git) Status(ctx context.Context) (Status, error) {
	out, err := g.run(ctx, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return Status{}, tacerr.VCSError{Op: "status", Cause: err}
	}
	return parsePorcelain(out), nil
}

func parsePorcelain(output string) Status {
	var st Status
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			info := strings.TrimPrefix(line, "## ")
			if idx := strings.IndexAny(info, ".["); idx != -1 {
				st.Branch = strings.TrimSpace(info[:idx])
			} else {
				st.Branch = info
			}
			continue
		}
		if len(line) < 3 {
			continue
		}
		code, file := line[:2], strings.TrimSpace(line[3:])
		switch {
		case code == "??":
			st.Untracked = append(st.Untracked, file)
		case code[1] == 'D' || code[0] == 'D':
			st.Deleted = append(st.Deleted, file)
		case code[0] != ' ':
			st.Staged = append(st.Staged, file)
		case code[1] == 'M':
			st.Modified = append(st.Modified, file)
		}
	}
	st.Clean = len(st.Modified) == 0 && len(st.Staged) == 0 && len(st.Untracked) == 0 && len(st.Deleted) == 0
	return st
}

// Diff returns the unstaged diff for paths, or the whole tree if empty.
func (g *Git) Diff(ctx context.Context, paths []string) (string, error) {
	args := append([]string{"diff"}, paths...)
	out, err := g.run(ctx, args...)
	if err != nil {
		return "", tacerr.VCSError{Op: "diff", Cause: err}
	}
	return out, nil
}

// Commit stages paths (or `-A` when empty) and commits with message.
// Returns committed=false, nil error when there was nothing to commit.
func (g *Git) Commit(ctx context.Context, message string, paths []string) (bool, error) {
	if len(paths) == 0 {
		if _, err := g.run(ctx, "add", "-A"); err != nil {
			return false, tacerr.VCSError{Op: "add", Cause: err}
		}
	} else {
		args := append([]string{"add"}, paths...)
		if _, err := g.run(ctx, args...); err != nil {
			return false, tacerr.VCSError{Op: "add", Cause: err}
		}
	}

	if _, err := g.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return false, nil
	}

	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return false, tacerr.VCSError{Op: "commit", Message: "commit failed", Cause: err}
	}
	return true, nil
}

// RevertChanges discards all uncommitted changes (tracked and untracked)
// so the next retry attempt starts from a clean tree, the way
// BlockRunner.run_loop calls git_manager.revert_changes() between
// attempts in the original implementation.
func (g *Git) RevertChanges(ctx context.Context) error {
	if _, err := g.run(ctx, "reset", "--hard", "HEAD"); err != nil {
		return tacerr.VCSError{Op: "reset --hard", Cause: err}
	}
	if _, err := g.run(ctx, "clean", "-fd"); err != nil {
		return tacerr.VCSError{Op: "clean -fd", Cause: err}
	}
	return nil
}
