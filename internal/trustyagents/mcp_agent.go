package trustyagents

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/tac/internal/mcpclient"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
)

// MCPAgent adapts one tool on a connected MCP server (§B) into a
// trusty.Agent: an external process verifies the attempt and reports
// back over the MCP protocol instead of running in-process.
type MCPAgent struct {
	Client     *mcpclient.Client
	ServerName string
	ToolName   string
}

// Check invokes the remote tool with the block's task, commit message
// and diff, and treats the tool's response as a pass/fail report. MCP
// tools have no structured verdict of their own, so a response
// starting with "FAIL" (case-insensitive) is treated as a failure;
// anything else, including an empty response, passes with the raw
// output attached as a report.
func (a *MCPAgent) Check(ctx context.Context, pb *protoblock.ProtoBlock, snapshot trusty.CodebaseSnapshot, diff string) (protoblock.Result, error) {
	agentType := mcpAgentName(a.ServerName, a.ToolName)

	output, err := a.Client.CallTool(ctx, a.ServerName, a.ToolName, map[string]interface{}{
		"task_description": pb.TaskDescription,
		"commit_message":   pb.CommitMessage,
		"diff":             diff,
	})
	if err != nil {
		return errorResult(agentType, err), nil
	}

	trimmed := strings.TrimSpace(output)
	failed := strings.HasPrefix(strings.ToUpper(trimmed), "FAIL")

	return protoblock.Result{
		Success:     !failed,
		AgentType:   agentType,
		Summary:     fmt.Sprintf("mcp tool %s on server %s: %s", a.ToolName, a.ServerName, summariseOutput(trimmed)),
		FailureType: failureTypeIf(failed, "mcp_tool_reported_failure"),
		Components:  []protoblock.Component{protoblock.NewReport(agentType, trimmed)},
	}, nil
}

func summariseOutput(output string) string {
	if output == "" {
		return "no output"
	}
	const maxLen = 120
	if len(output) > maxLen {
		return output[:maxLen] + "..."
	}
	return output
}

func mcpAgentName(serverName, toolName string) string {
	return fmt.Sprintf("mcp:%s:%s", serverName, toolName)
}

// RegisterMCPTools registers every tool currently known to mc as its
// own trusty agent, named "mcp:<server>:<tool>" so it can be listed in
// trusty_agents.default alongside the built-in agents.
func RegisterMCPTools(reg *trusty.Registry, mc *mcpclient.Client) {
	for _, tool := range mc.Tools() {
		tool := tool
		name := mcpAgentName(tool.ServerName, tool.Name)
		description := tool.Description
		if description == "" {
			description = fmt.Sprintf("external MCP tool %q on server %q", tool.Name, tool.ServerName)
		}
		reg.Register(trusty.Registration{
			Name:        name,
			Description: description,
			Factory: func() trusty.Agent {
				return &MCPAgent{Client: mc, ServerName: tool.ServerName, ToolName: tool.Name}
			},
		})
	}
}
