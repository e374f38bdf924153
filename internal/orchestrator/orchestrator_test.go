package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/blockexecutor"
	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/processor"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/vcs"
)

type fakeProvider struct{ content string }

func (f fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: f.content}, nil
}

type fakeCodingAgent struct{}

func (fakeCodingAgent) Run(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) error {
	return nil
}

type alwaysPass struct{ name string }

func (a alwaysPass) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	return protoblock.Result{Success: true, AgentType: a.name}, nil
}

func newPassingRegistry() *trusty.Registry {
	r := trusty.NewRegistry(nil)
	r.Register(trusty.Registration{Name: "pytest", Factory: func() trusty.Agent { return alwaysPass{"pytest"} }})
	r.Register(trusty.Registration{Name: "plausibility", Factory: func() trusty.Agent { return alwaysPass{"plausibility"} }})
	return r
}

func genBody(spec string) string {
	return `{"task":{"specification":"` + spec + `"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b","trusty_agents":["pytest","plausibility"]}`
}

func TestExecute_ThreeChunksAllSucceed(t *testing.T) {
	chunkingResp := `{"strategy":"by-feature","branch_name":"big","chunks":[{"title":"c1","description":"d1"},{"title":"c2","description":"d2"},{"title":"c3","description":"d3"}]}`

	o := &Orchestrator{
		Provider: fakeProvider{content: chunkingResp},
		VCS:      vcs.NoOp{},
		NewProcessor: func() *processor.Processor {
			gen := generator.New(fakeProvider{content: genBody("x")}, nil)
			reg := newPassingRegistry()
			exec := blockexecutor.New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)
			return &processor.Processor{Generator: gen, Executor: exec, VCS: vcs.NoOp{}, MaxRetries: 2}
		},
	}

	ok, err := o.Execute(context.Background(), "big task", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExecute_MalformedChunkingFallsBackToSingleChunk(t *testing.T) {
	o := &Orchestrator{
		Provider: fakeProvider{content: "not json"},
		VCS:      vcs.NoOp{},
		NewProcessor: func() *processor.Processor {
			gen := generator.New(fakeProvider{content: genBody("x")}, nil)
			reg := newPassingRegistry()
			exec := blockexecutor.New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)
			return &processor.Processor{Generator: gen, Executor: exec, VCS: vcs.NoOp{}, MaxRetries: 2}
		},
	}

	ok, err := o.Execute(context.Background(), "small task", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDecompose_FallbackOnMalformedJSON(t *testing.T) {
	o := &Orchestrator{Provider: fakeProvider{content: "garbage"}}
	result, err := o.decompose(context.Background(), "do x")
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 1)
	assert.Equal(t, "do x", result.Chunks[0].Description)
}
