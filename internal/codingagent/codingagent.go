// Package codingagent implements the §6.1 coding-agent capability: given
// a protoblock and the previous attempt's error analysis, it modifies
// the files in write_files on disk and returns. It is fronted directly
// by agentkit/llm.Provider's tool-calling Chat API rather than the
// narrower text-completion Provider in package llm, since tool use is a
// distinct concern from the generator/analyzer's plain completions —
// the same split the teacher's own cmd/agent draws between its
// coding-agent executor and its embedding/completion provider factories.
//
// The tool loop itself is adapted from internal/executor.Executor's
// sub-agent execution loop (subAgentExecutePhaseWithProvider /
// executeToolsParallel), narrowed to three tools: read_file and
// write_file, scoped to write_files ∪ context_files, and done, which
// ends the attempt.
package codingagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	agentkitllm "github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/tacerr"
)

// Agent is the capability BlockExecutor invokes for one attempt.
type Agent interface {
	Run(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) error
}

// ToolLoopAgent drives agentkit's tool-calling Chat API in a read/write
// loop scoped to the protoblock's file lists, until the model signals
// completion by calling no further tools.
type ToolLoopAgent struct {
	Provider      agentkitllm.Provider
	Root          string // project root write_files/context_files are relative to
	MaxIterations int
	MaxTokens     int
}

// New returns a ToolLoopAgent rooted at root, with teacher-matching
// defaults for iteration and token budget.
func New(provider agentkitllm.Provider, root string) *ToolLoopAgent {
	return &ToolLoopAgent{Provider: provider, Root: root, MaxIterations: 40, MaxTokens: 8192}
}

func (a *ToolLoopAgent) Run(ctx context.Context, pb *protoblock.ProtoBlock, previousAnalysis string) error {
	messages := []agentkitllm.Message{
		{Role: "system", Content: systemPrompt()},
		{Role: "user", Content: userPrompt(pb, previousAnalysis)},
	}
	tools := []agentkitllm.ToolDef{readFileTool(), writeFileTool(), doneTool()}

	for i := 0; i < a.MaxIterations; i++ {
		resp, err := a.Provider.Chat(ctx, agentkitllm.ChatRequest{
			Messages:  messages,
			Tools:     tools,
			MaxTokens: a.MaxTokens,
		})
		if err != nil {
			return tacerr.Wrap(tacerr.CategoryCodingAgent, "coding agent chat failed", err)
		}
		messages = append(messages, agentkitllm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		if len(resp.ToolCalls) == 0 {
			return nil
		}

		done := false
		for _, tc := range resp.ToolCalls {
			result, callErr := a.executeTool(pb, tc)
			if tc.Name == "done" {
				done = true
			}
			content := result
			if callErr != nil {
				content = fmt.Sprintf("error: %v", callErr)
			}
			messages = append(messages, agentkitllm.Message{Role: "tool", ToolCallID: tc.ID, Content: content})
		}
		if done {
			return nil
		}
	}
	return tacerr.New(tacerr.CategoryCodingAgent, "coding agent exceeded max tool iterations without signaling completion")
}

func (a *ToolLoopAgent) executeTool(pb *protoblock.ProtoBlock, tc agentkitllm.ToolCallResponse) (string, error) {
	switch tc.Name {
	case "read_file":
		path, _ := tc.Args["path"].(string)
		if !allowed(path, pb.WriteFiles, pb.ContextFiles) {
			return "", fmt.Errorf("path %q is outside write_files/context_files", path)
		}
		data, err := os.ReadFile(filepath.Join(a.Root, path))
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "write_file":
		path, _ := tc.Args["path"].(string)
		content, _ := tc.Args["content"].(string)
		if !allowed(path, pb.WriteFiles, nil) {
			return "", fmt.Errorf("path %q is not in write_files", path)
		}
		full := filepath.Join(a.Root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return "", err
		}
		return "written", nil

	case "done":
		return "ok", nil

	default:
		return "", fmt.Errorf("unknown tool: %s", tc.Name)
	}
}

func allowed(path string, write, context []string) bool {
	path = filepath.Clean(path)
	for _, p := range write {
		if p == path {
			return true
		}
	}
	for _, p := range context {
		if p == path {
			return true
		}
	}
	return false
}

func systemPrompt() string {
	return strings.TrimSpace(`
You are the coding agent in an autonomous code-modification pipeline.
You may read any file in write_files or context_files using read_file,
and modify files using write_file, but only within write_files. When
the edit is complete and the files are in a parseable state, call done.
Never touch a file outside the listed scopes.
`)
}

func userPrompt(pb *protoblock.ProtoBlock, previousAnalysis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TASK:\n%s\n\n", pb.TaskDescription)
	fmt.Fprintf(&b, "WRITE_FILES: %s\n", strings.Join(pb.WriteFiles, ", "))
	fmt.Fprintf(&b, "CONTEXT_FILES: %s\n", strings.Join(pb.ContextFiles, ", "))
	if prompt, ok := pb.TrustyAgentPrompts["coding_agent"]; ok && prompt != "" {
		fmt.Fprintf(&b, "\nADDITIONAL GUIDANCE:\n%s\n", prompt)
	}
	if previousAnalysis != "" {
		fmt.Fprintf(&b, "\nPREVIOUS ATTEMPT FAILED BECAUSE:\n%s\n", previousAnalysis)
	}
	return b.String()
}

func readFileTool() agentkitllm.ToolDef {
	return agentkitllm.ToolDef{
		Name:        "read_file",
		Description: "Read the contents of a file within write_files or context_files.",
		Parameters:  mustSchema(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	}
}

func writeFileTool() agentkitllm.ToolDef {
	return agentkitllm.ToolDef{
		Name:        "write_file",
		Description: "Overwrite a file within write_files with new content.",
		Parameters:  mustSchema(`{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`),
	}
}

func doneTool() agentkitllm.ToolDef {
	return agentkitllm.ToolDef{
		Name:        "done",
		Description: "Signal that all required edits are complete.",
		Parameters:  mustSchema(`{"type":"object","properties":{}}`),
	}
}

func mustSchema(raw string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		panic(err)
	}
	return m
}
