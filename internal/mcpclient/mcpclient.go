// Package mcpclient connects to external MCP tool servers configured
// under config.MCPConfig (§B) and exposes their tools for consumption
// by tac's trusty-agent registry. Grounded on the pack's MCP client
// (Reauheau-wilson's internal mcp.Client): one stdio subprocess per
// configured server, tools discovered via ListTools at connect time
// and invoked via CallTool on demand.
package mcpclient

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vinayprograms/tac/internal/config"
	"github.com/vinayprograms/tac/internal/tacerr"
)

const connectTimeout = 5 * time.Second

// Tool describes one tool discovered on a connected MCP server.
type Tool struct {
	ServerName  string
	Name        string
	Description string
	InputSchema mcp.ToolInputSchema
}

// Client manages stdio connections to configured MCP servers.
type Client struct {
	mu      sync.RWMutex
	servers map[string]*client.Client
	tools   []Tool
	onWarn  func(msg string)
}

// New returns an empty Client. onWarn, if non-nil, receives a message
// whenever an individual server fails to connect; connection failures
// are per-server and never abort the remaining servers.
func New(onWarn func(msg string)) *Client {
	return &Client{servers: map[string]*client.Client{}, onWarn: onWarn}
}

func (c *Client) warn(format string, args ...interface{}) {
	if c.onWarn != nil {
		c.onWarn(fmt.Sprintf(format, args...))
	}
}

// Connect dials every server in cfg.Servers, each under its own
// connectTimeout deadline. A server that fails to connect or list
// tools is skipped with a warning rather than failing the whole call,
// since one misconfigured MCP server should not block the others.
func (c *Client) Connect(ctx context.Context, cfg config.MCPConfig) error {
	for name, serverCfg := range cfg.Servers {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := c.connectServer(connectCtx, name, serverCfg)
		cancel()
		if err != nil {
			c.warn("mcp server %q: %v", name, err)
		}
	}
	return nil
}

func (c *Client) connectServer(ctx context.Context, name string, cfg config.MCPServerConfig) error {
	envVars := make([]string, 0, len(cfg.Env))
	for key, value := range cfg.Env {
		envVars = append(envVars, fmt.Sprintf("%s=%s", key, os.ExpandEnv(value)))
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, envVars, cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "tac", Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize: %w", err)
	}

	listed, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	c.mu.Lock()
	c.servers[name] = mcpClient
	for _, t := range listed.Tools {
		c.tools = append(c.tools, Tool{
			ServerName:  name,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	c.mu.Unlock()

	return nil
}

// Tools returns every tool discovered across all connected servers.
func (c *Client) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// CallTool invokes toolName on serverName and returns its combined
// text output.
func (c *Client) CallTool(ctx context.Context, serverName, toolName string, arguments map[string]interface{}) (string, error) {
	c.mu.RLock()
	server, ok := c.servers[serverName]
	c.mu.RUnlock()
	if !ok {
		return "", tacerr.New(tacerr.CategoryVerifier, fmt.Sprintf("mcp server %q is not connected", serverName))
	}

	result, err := server.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: arguments},
	})
	if err != nil {
		return "", tacerr.Wrap(tacerr.CategoryVerifier, fmt.Sprintf("mcp tool %q on server %q failed", toolName, serverName), err)
	}

	var output string
	for _, content := range result.Content {
		output += fmt.Sprintf("%v\n", content)
	}
	return output, nil
}

// Close closes every connected server. Safe to call on a Client that
// never connected to anything.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, server := range c.servers {
		server.Close()
	}
	c.servers = map[string]*client.Client{}
	c.tools = nil
	return nil
}
