package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/trusty"
)

type fakeProvider struct {
	content string
	err     error
}

func (f fakeProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: f.content}, f.err
}

func newTestRegistry() *trusty.Registry {
	r := trusty.NewRegistry(nil)
	r.Register(trusty.Registration{Name: "pytest", Description: "runs the test suite"})
	return r
}

func TestGenerate_ParsesPlainJSON(t *testing.T) {
	body := `{"task":{"specification":"add is_even"},"write_files":["a.go"],"context_files":[],"commit_message":"add helper","branch_name":"is-even","trusty_agents":["pytest"],"trusty_agent_prompts":{}}`
	g := New(fakeProvider{content: body}, newTestRegistry())

	pb, err := g.Generate(context.Background(), "add is_even helper", CodebaseSummary{"a.go": "package a"})
	require.NoError(t, err)
	assert.Equal(t, "add is_even", pb.TaskDescription)
	assert.Contains(t, pb.WriteFiles, "a.go")
	assert.Equal(t, "tac/feature/is-even", pb.BranchName)
}

func TestGenerate_StripsCodeFences(t *testing.T) {
	body := "```json\n{\"task\":{\"specification\":\"x\"},\"write_files\":[],\"context_files\":[],\"commit_message\":\"m\",\"branch_name\":\"b\"}\n```"
	g := New(fakeProvider{content: body}, newTestRegistry())

	pb, err := g.Generate(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", pb.TaskDescription)
}

func TestGenerate_InvalidJSONIsError(t *testing.T) {
	g := New(fakeProvider{content: "not json"}, newTestRegistry())
	_, err := g.Generate(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestRetry_UsesCachedPrefix(t *testing.T) {
	body := `{"task":{"specification":"first"},"write_files":["a.go"],"context_files":[],"commit_message":"m","branch_name":"b"}`
	g := New(fakeProvider{content: body}, newTestRegistry())
	first, err := g.Generate(context.Background(), "first", CodebaseSummary{"a.go": "package a"})
	require.NoError(t, err)

	retryBody := `{"task":{"specification":"retry"},"write_files":["a.go","b.go"],"context_files":[],"commit_message":"m","branch_name":"b"}`
	g.Provider = fakeProvider{content: retryBody}

	second, err := g.Retry(context.Background(), first, 2, "root cause: off by one", nil)
	require.NoError(t, err)
	assert.Equal(t, first.BlockID, second.BlockID)
	assert.Equal(t, 2, second.AttemptNumber)
}
