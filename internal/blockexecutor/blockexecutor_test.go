package blockexecutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/vcs"
)

type fakeCodingAgent struct {
	err error
}

func (f fakeCodingAgent) Run(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) error {
	return f.err
}

type fakeAgent struct {
	name    string
	success bool
	before  *bool
}

func (f *fakeAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	return protoblock.Result{Success: f.success, AgentType: f.name, Summary: f.name + " ran", FailureType: f.name + "_failed"}, nil
}

func (f *fakeAgent) CaptureBeforeState(ctx context.Context, pb *protoblock.ProtoBlock) error {
	v := true
	f.before = &v
	return nil
}

func newBlock(t *testing.T, agents []string) *protoblock.ProtoBlock {
	pb, err := protoblock.New("do the thing", "msg", "branch", []string{"a.go"}, nil, agents, nil)
	require.NoError(t, err)
	return pb
}

func TestExecuteBlock_AllPass(t *testing.T) {
	reg := trusty.NewRegistry(nil)
	reg.Register(trusty.Registration{Name: "pytest", Factory: func() trusty.Agent { return &fakeAgent{name: "pytest", success: true} }})
	reg.Register(trusty.Registration{Name: "plausibility", Factory: func() trusty.Agent { return &fakeAgent{name: "plausibility", success: true} }})

	exec := New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)
	pb := newBlock(t, []string{"pytest", "plausibility"})

	result, err := exec.ExecuteBlock(context.Background(), pb, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.ErrorAnalysis)
	assert.Empty(t, result.FailureType)
	assert.Len(t, pb.TrustyAgentResults, 2)
}

func TestExecuteBlock_FirstFailureAborts(t *testing.T) {
	reg := trusty.NewRegistry(nil)
	reg.Register(trusty.Registration{Name: "pytest", Factory: func() trusty.Agent { return &fakeAgent{name: "pytest", success: false} }})
	reg.Register(trusty.Registration{Name: "plausibility", Factory: func() trusty.Agent { return &fakeAgent{name: "plausibility", success: true} }})

	exec := New(fakeCodingAgent{}, reg, vcs.NoOp{}, nil)
	pb := newBlock(t, []string{"pytest", "plausibility"})

	result, err := exec.ExecuteBlock(context.Background(), pb, "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "pytest_failed", result.FailureType)
	assert.Len(t, pb.TrustyAgentResults, 1, "plausibility must not run once pytest fails")
}

func TestExecuteBlock_CodingAgentErrorIsNonFatal(t *testing.T) {
	reg := trusty.NewRegistry(nil)
	exec := New(fakeCodingAgent{err: assertErr("boom")}, reg, vcs.NoOp{}, nil)
	pb := newBlock(t, []string{"pytest", "plausibility"})

	result, err := exec.ExecuteBlock(context.Background(), pb, "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "coding_agent_error", result.FailureType)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
