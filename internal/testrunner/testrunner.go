// Package testrunner provides the subprocess test-runner capability
// (§6.3). It is grounded on the original BlockExecutor.run_tests, which
// shells out to pytest and captures combined output; tac generalizes
// that single hard-coded invocation into a configurable Runner capable
// of running any project's test command, with the pytest built-in
// trusty agent as one concrete consumer.
package testrunner

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Result is the outcome of one test-runner invocation.
type Result struct {
	Passed   bool
	Output   string
	Command  []string
	Duration time.Duration
}

// Runner is the capability a pytest (or other language) trusty agent
// uses to execute a project's test suite.
type Runner interface {
	Run(ctx context.Context, dir string) (Result, error)
}

// PytestRunner shells out to pytest the way the original
// BlockExecutor.run_tests did: `pytest <args> --maxfail=1
// --disable-warnings`, capturing combined stdout/stderr.
type PytestRunner struct {
	Args    []string // additional file/dir args, e.g. ["test_main.py"]
	Timeout time.Duration
}

// NewPytestRunner returns a PytestRunner mirroring the original's
// default invocation against test_main.py.
func NewPytestRunner(args []string, timeout time.Duration) *PytestRunner {
	if len(args) == 0 {
		args = []string{"test_main.py"}
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &PytestRunner{Args: args, Timeout: timeout}
}

func (r *PytestRunner) Run(ctx context.Context, dir string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := append([]string{}, r.Args...)
	args = append(args, "--maxfail=1", "--disable-warnings")

	cmd := exec.CommandContext(ctx, "pytest", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := Result{
		Output:   out.String(),
		Command:  append([]string{"pytest"}, args...),
		Duration: elapsed,
	}
	if runErr == nil {
		res.Passed = true
		return res, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		// pytest exit code 5 means no tests were collected, treated as a
		// pass per §6.3; any other non-zero exit is a genuine failure,
		// not a runner malfunction.
		res.Passed = exitErr.ExitCode() == 5
		return res, nil
	}
	return res, runErr
}

// GenericRunner executes an arbitrary test command. No configuration
// field selects it; cmd/tac always builds a PytestRunner.
type GenericRunner struct {
	Command []string
	Timeout time.Duration
}

func (r *GenericRunner) Run(ctx context.Context, dir string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(r.Command) == 0 {
		return Result{}, nil
	}
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	runErr := cmd.Run()
	res := Result{Output: out.String(), Command: r.Command, Duration: time.Since(start)}
	if runErr == nil {
		res.Passed = true
		return res, nil
	}
	if _, ok := runErr.(*exec.ExitError); ok {
		res.Passed = false
		return res, nil
	}
	return res, runErr
}
