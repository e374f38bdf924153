package mcpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinayprograms/tac/internal/config"
)

func TestConnect_EmptyConfigIsNoOp(t *testing.T) {
	c := New(nil)
	err := c.Connect(context.Background(), config.MCPConfig{})
	require.NoError(t, err)
	assert.Empty(t, c.Tools())
}

func TestConnect_UnreachableServerWarnsAndContinues(t *testing.T) {
	var warnings []string
	c := New(func(msg string) { warnings = append(warnings, msg) })

	err := c.Connect(context.Background(), config.MCPConfig{
		Servers: map[string]config.MCPServerConfig{
			"broken": {Command: "/this/path/does/not/exist/tac-mcp-fixture"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, c.Tools())
	assert.Len(t, warnings, 1)
}

func TestCallTool_UnconnectedServerErrors(t *testing.T) {
	c := New(nil)
	_, err := c.CallTool(context.Background(), "missing", "tool", nil)
	assert.Error(t, err)
}

func TestClose_SafeWhenNothingConnected(t *testing.T) {
	c := New(nil)
	assert.NoError(t, c.Close())
}

func TestTools_ReturnsACopyNotTheInternalSlice(t *testing.T) {
	c := New(nil)
	tools := c.Tools()
	tools = append(tools, Tool{Name: "mutated"})
	assert.Empty(t, c.Tools())
	assert.Len(t, tools, 1)
}
