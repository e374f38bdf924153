package trustyagents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/testrunner"
)

func newBlock(t *testing.T) *protoblock.ProtoBlock {
	pb, err := protoblock.New("add is_even", "msg", "branch", []string{"a.go"}, nil, []string{"pytest", "plausibility"}, nil)
	require.NoError(t, err)
	return pb
}

type fixedRunner struct{ res testrunner.Result }

func (f fixedRunner) Run(ctx context.Context, dir string) (testrunner.Result, error) { return f.res, nil }

func TestPytestAgent_Pass(t *testing.T) {
	a := &PytestAgent{Runner: fixedRunner{res: testrunner.Result{Passed: true}}}
	result, err := a.Check(context.Background(), newBlock(t), nil, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestPytestAgent_Fail(t *testing.T) {
	a := &PytestAgent{Runner: fixedRunner{res: testrunner.Result{Passed: false, Output: "1 failed"}}}
	result, err := a.Check(context.Background(), newBlock(t), nil, "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "pytest_failure", result.FailureType)
}

type fakeProvider struct{ content string }

func (f fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: f.content}, nil
}

func TestCodeReviewerAgent_PassesAtMinimum(t *testing.T) {
	a := &CodeReviewerAgent{Provider: fakeProvider{content: "GRADE: C\nLooks fine."}, MinGrade: "D"}
	result, err := a.Check(context.Background(), newBlock(t), nil, "diff")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCodeReviewerAgent_FailsBelowMinimum(t *testing.T) {
	a := &CodeReviewerAgent{Provider: fakeProvider{content: "GRADE: F\nBroken."}, MinGrade: "D"}
	result, err := a.Check(context.Background(), newBlock(t), nil, "diff")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "code_reviewer_grade_below_minimum", result.FailureType)
}

func TestPlausibilityAgent_ParsesStars(t *testing.T) {
	a := &PlausibilityAgent{Provider: fakeProvider{content: "STAR RATING: 4.5\nVery plausible."}, MinStars: 3.0}
	result, err := a.Check(context.Background(), newBlock(t), nil, "diff")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestPlausibilityAgent_BelowMinimumFails(t *testing.T) {
	a := &PlausibilityAgent{Provider: fakeProvider{content: "STAR RATING: 1.0\nWeak."}, MinStars: 3.0}
	result, err := a.Check(context.Background(), newBlock(t), nil, "diff")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestPexpectAgent_AlwaysPasses(t *testing.T) {
	result, err := PexpectAgent{}.Check(context.Background(), newBlock(t), nil, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestGradeMeetsMinimum(t *testing.T) {
	assert.True(t, gradeMeetsMinimum("A", "D"))
	assert.True(t, gradeMeetsMinimum("D", "D"))
	assert.False(t, gradeMeetsMinimum("F", "D"))
	assert.False(t, gradeMeetsMinimum("Z", "D"))
}
