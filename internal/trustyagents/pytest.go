package trustyagents

import (
	"context"

	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/testrunner"
	"github.com/vinayprograms/tac/internal/trusty"
)

// PytestAgent wraps a testrunner.Runner as the pytest built-in trusty
// agent (§4.5): zero failed/errored tests passes.
type PytestAgent struct {
	Runner testrunner.Runner
	Dir    string
}

func (a *PytestAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	res, err := a.Runner.Run(ctx, a.Dir)
	if err != nil {
		return protoblock.Result{
			Success:     false,
			AgentType:   "pytest",
			Summary:     "test runner could not be invoked: " + err.Error(),
			FailureType: "pytest_runner_error",
			Components:  []protoblock.Component{protoblock.NewError(err.Error(), "runner_error", "")},
		}, nil
	}

	summary := "all tests passed"
	if !res.Passed {
		summary = "one or more tests failed"
	}
	return protoblock.Result{
		Success:     res.Passed,
		AgentType:   "pytest",
		Summary:     summary,
		FailureType: failureTypeIf(!res.Passed, "pytest_failure"),
		Components:  []protoblock.Component{protoblock.NewReport("pytest output", res.Output)},
		Details:     map[string]interface{}{"command": res.Command, "duration_ms": res.Duration.Milliseconds()},
	}, nil
}

// RegisterPytest adds the pytest registration to reg. newRunner builds
// a fresh Runner per invocation (a PytestRunner is stateless and cheap
// to construct).
func RegisterPytest(reg *trusty.Registry, newRunner func() testrunner.Runner, dir string) {
	reg.Register(trusty.Registration{
		Name:        "pytest",
		Description: "Runs the project's test suite via a subprocess test runner; fails on any collected test failure.",
		Factory: func() trusty.Agent {
			return &PytestAgent{Runner: newRunner(), Dir: dir}
		},
	})
}

func failureTypeIf(cond bool, failureType string) string {
	if cond {
		return failureType
	}
	return ""
}
