package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/blockexecutor"
	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/vcs"
)

type fakeGenProvider struct {
	bodies []string
	i      int
}

func (f *fakeGenProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	b := f.bodies[f.i]
	if f.i < len(f.bodies)-1 {
		f.i++
	}
	return llm.Response{Content: b}, nil
}

type fakeCodingAgent struct{}

func (fakeCodingAgent) Run(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) error {
	return nil
}

type scriptedAgent struct {
	name     string
	outcomes []bool
	i        int
}

func (a *scriptedAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	ok := a.outcomes[a.i]
	if a.i < len(a.outcomes)-1 {
		a.i++
	}
	return protoblock.Result{Success: ok, AgentType: a.name, Summary: a.name + " result", FailureType: a.name + "_failed"}, nil
}

func newRegistry(pytestOutcomes []bool) *trusty.Registry {
	r := trusty.NewRegistry(nil)
	pytest := &scriptedAgent{name: "pytest", outcomes: pytestOutcomes}
	r.Register(trusty.Registration{Name: "pytest", Description: "tests", Factory: func() trusty.Agent { return pytest }})
	plaus := &scriptedAgent{name: "plausibility", outcomes: []bool{true}}
	r.Register(trusty.Registration{Name: "plausibility", Description: "grading", Factory: func() trusty.Agent { return plaus }})
	return r
}

func TestRunLoop_HappyPath(t *testing.T) {
	body := `{"task":{"specification":"add is_even"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b","trusty_agents":["pytest","plausibility"]}`
	gen := generator.New(&fakeGenProvider{bodies: []string{body}}, nil)
	reg := newRegistry([]bool{true})
	exec := blockexecutor.New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)

	p := &Processor{Generator: gen, Executor: exec, VCS: vcs.NoOp{}, MaxRetries: 3}
	ok, err := p.RunLoop(context.Background(), "add is_even", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLoop_RetriesThenSucceeds(t *testing.T) {
	gen1 := `{"task":{"specification":"first"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b","trusty_agents":["pytest","plausibility"]}`
	gen2 := `{"task":{"specification":"fixed"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b","trusty_agents":["pytest","plausibility"]}`
	gen := generator.New(&fakeGenProvider{bodies: []string{gen1, gen2}}, nil)
	reg := newRegistry([]bool{false, true})
	exec := blockexecutor.New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)

	p := &Processor{Generator: gen, Executor: exec, VCS: vcs.NoOp{}, MaxRetries: 3}
	ok, err := p.RunLoop(context.Background(), "implement factorial", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLoop_BudgetExhausted(t *testing.T) {
	body := `{"task":{"specification":"x"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b","trusty_agents":["pytest","plausibility"]}`
	gen := generator.New(&fakeGenProvider{bodies: []string{body, body}}, nil)
	reg := newRegistry([]bool{false, false})
	exec := blockexecutor.New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)

	p := &Processor{Generator: gen, Executor: exec, VCS: vcs.NoOp{}, MaxRetries: 2}
	ok, err := p.RunLoop(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
