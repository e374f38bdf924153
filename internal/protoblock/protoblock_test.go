package protoblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OrdersTrustyAgents(t *testing.T) {
	pb, err := New("add is_even", "add is_even helper", "is-even",
		[]string{"mathutils.py"}, nil,
		[]string{"code_reviewer", "plausibility"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"pytest", "code_reviewer", "plausibility"}, pb.TrustyAgents)
	assert.Equal(t, "tac: add is_even helper", pb.CommitMessage)
	assert.Equal(t, "tac/feature/is-even", pb.BranchName)
	assert.Len(t, pb.BlockID, 8)
}

func TestNew_ContextFilesExcludeWriteFiles(t *testing.T) {
	pb, err := New("t", "m", "b",
		[]string{"a.py", "b.py"},
		[]string{"a.py", "c.py"},
		nil, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"c.py"}, pb.ContextFiles)
}

func TestNew_BranchAlreadyPrefixed(t *testing.T) {
	pb, err := New("t", "m", "tac/feature/existing", nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "tac/feature/existing", pb.BranchName)
}

func TestNew_CommitMessageAlreadyPrefixed(t *testing.T) {
	pb, err := New("t", "tac: already prefixed", "b", nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "tac: already prefixed", pb.CommitMessage)
}

func TestNewRetry_PreservesIdentity(t *testing.T) {
	first, err := New("t", "m", "b", []string{"a.py"}, nil, nil, nil)
	require.NoError(t, err)

	second, err := NewRetry(first, 2, "t retried", []string{"a.py", "b.py"}, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.BlockID, second.BlockID)
	assert.Equal(t, first.BranchName, second.BranchName)
	assert.Equal(t, first.CommitMessage, second.CommitMessage)
	assert.Equal(t, 2, second.AttemptNumber)
}

func TestNormaliseTrustyAgents_Dedup(t *testing.T) {
	got := normaliseTrustyAgents([]string{"plausibility", "code_reviewer", "code_reviewer", "pytest"})
	assert.Equal(t, []string{"pytest", "code_reviewer", "plausibility"}, got)
}

func TestValidate_RejectsAbsolutePath(t *testing.T) {
	pb := &ProtoBlock{
		BlockID:      "abcd1234",
		WriteFiles:   []string{"/abs/path.py"},
		TrustyAgents: []string{"pytest", "plausibility"},
	}
	assert.Error(t, pb.Validate())
}

func TestValidate_RejectsOverlap(t *testing.T) {
	pb := &ProtoBlock{
		BlockID:      "abcd1234",
		WriteFiles:   []string{"a.py"},
		ContextFiles: []string{"a.py"},
		TrustyAgents: []string{"pytest", "plausibility"},
	}
	assert.Error(t, pb.Validate())
}

func TestAttachResult(t *testing.T) {
	pb, err := New("t", "m", "b", nil, nil, nil, nil)
	require.NoError(t, err)

	pb.AttachResult("pytest", Result{Success: true, AgentType: "pytest", Summary: "all tests passed"})
	require.Contains(t, pb.TrustyAgentResults, "pytest")
	assert.True(t, pb.TrustyAgentResults["pytest"].Success)
}
