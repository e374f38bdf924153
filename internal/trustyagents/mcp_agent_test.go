package trustyagents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/tac/internal/mcpclient"
	"github.com/vinayprograms/tac/internal/trusty"
)

func TestMCPAgent_Check_UnconnectedServerReportsInvocationError(t *testing.T) {
	agent := &MCPAgent{Client: mcpclient.New(nil), ServerName: "missing", ToolName: "lint"}
	result, err := agent.Check(context.Background(), newBlock(t), nil, "diff")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "mcp:missing:lint_invocation_error", result.FailureType)
}

func TestMCPAgentName_FormatsServerAndTool(t *testing.T) {
	assert.Equal(t, "mcp:ci:lint", mcpAgentName("ci", "lint"))
}

func TestSummariseOutput_EmptyReportsNoOutput(t *testing.T) {
	assert.Equal(t, "no output", summariseOutput(""))
}

func TestSummariseOutput_PassesShortOutputThrough(t *testing.T) {
	assert.Equal(t, "all good", summariseOutput("all good"))
}

func TestSummariseOutput_TruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := summariseOutput(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, 123)
}

func TestRegisterMCPTools_NoToolsRegistersNothing(t *testing.T) {
	// Tools() is empty for a client that never connected; registration
	// over an empty set is a no-op, which should not panic.
	reg := trusty.NewRegistry(nil)
	RegisterMCPTools(reg, mcpclient.New(nil))
	assert.Empty(t, reg.Names())
}
