// Package generator implements ProtoBlockGenerator (§4.1): given a task
// description, the current codebase, and the trusty-agent catalog, it
// asks the analysis LLM for a genesis protoblock and parses/validates
// the JSON response. Grounded on
// original_source/src/tdac/utils/protoblock_factory.py's
// get_seed_instructions/create_protoblock/verify_protoblock, generalized
// from a Python-only codebase dump to an arbitrary-language codebase and
// from a hard-coded test/write/context schema to one that also carries
// trusty_agents and trusty_agent_prompts (§3).
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/trusty"
)

// CodebaseSummary maps a relative file path to either its full content
// or an indexer-produced summary, interchangeably (the generator does
// not care which, matching the original's use_summaries toggle).
type CodebaseSummary map[string]string

// genesisResponse is the JSON shape the LLM is instructed to emit,
// mirroring protoblock_factory.py's output_format with trusty_agents
// added for §3.
type genesisResponse struct {
	Task struct {
		Specification string `json:"specification"`
	} `json:"task"`
	WriteFiles         []string          `json:"write_files"`
	ContextFiles       []string          `json:"context_files"`
	CommitMessage      string            `json:"commit_message"`
	BranchName         string            `json:"branch_name"`
	TrustyAgents       []string          `json:"trusty_agents"`
	TrustyAgentPrompts map[string]string `json:"trusty_agent_prompts"`
}

// Generator is ProtoBlockGenerator.
type Generator struct {
	Provider llm.Provider
	Registry *trusty.Registry

	mu          sync.Mutex
	promptCache map[string]string // block_id -> rendered codebase+catalog prefix
}

// New returns a Generator backed by provider and the trusty agent
// catalog in registry (used to enumerate agents in the genesis prompt).
func New(provider llm.Provider, registry *trusty.Registry) *Generator {
	return &Generator{Provider: provider, Registry: registry, promptCache: map[string]string{}}
}

// Generate produces a brand-new protoblock for task, given the current
// codebase state.
func (g *Generator) Generate(ctx context.Context, task string, codebase CodebaseSummary) (*protoblock.ProtoBlock, error) {
	prefix := g.renderPrefix(codebase)
	prompt := prefix + g.renderTaskSection(task, "")

	data, err := g.requestGenesis(ctx, prompt)
	if err != nil {
		return nil, err
	}

	pb, err := protoblock.New(data.Task.Specification, data.CommitMessage, data.BranchName,
		data.WriteFiles, data.ContextFiles, data.TrustyAgents, data.TrustyAgentPrompts)
	if err != nil {
		return nil, fmt.Errorf("generated protoblock failed validation: %w", err)
	}

	g.mu.Lock()
	g.promptCache[pb.BlockID] = prefix
	g.mu.Unlock()

	return pb, nil
}

// Retry produces the next attempt's protoblock for a block that failed,
// folding in the previous attempt's error analysis as
// "previous_analysis" (§4.1 retry path). It reuses the cached
// codebase+catalog prefix for this block_id rather than re-rendering it,
// since the codebase summary doesn't change between attempts of the
// same block, only the analysis does.
func (g *Generator) Retry(ctx context.Context, prior *protoblock.ProtoBlock, attempt int, previousAnalysis string, codebase CodebaseSummary) (*protoblock.ProtoBlock, error) {
	g.mu.Lock()
	prefix, cached := g.promptCache[prior.BlockID]
	g.mu.Unlock()
	if !cached {
		prefix = g.renderPrefix(codebase)
	}
	prompt := prefix + g.renderTaskSection(prior.TaskDescription, previousAnalysis)

	data, err := g.requestGenesis(ctx, prompt)
	if err != nil {
		return nil, err
	}

	pb, err := protoblock.NewRetry(prior, attempt, data.Task.Specification,
		data.WriteFiles, data.ContextFiles, data.TrustyAgents, data.TrustyAgentPrompts)
	if err != nil {
		return nil, fmt.Errorf("retried protoblock failed validation: %w", err)
	}
	return pb, nil
}

func (g *Generator) requestGenesis(ctx context.Context, prompt string) (*genesisResponse, error) {
	resp, err := g.Provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a coding assistant. Output must be valid JSON with keys: 'task', 'write_files', 'context_files', 'commit_message', 'branch_name', 'trusty_agents', 'trusty_agent_prompts'. No markdown, no code fences. Keep it strictly formatted."},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("protoblock generation failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("protoblock generation received an empty response")
	}
	return parseGenesis(resp.Content)
}

// parseGenesis parses the LLM's JSON response, first as-is and then
// after stripping markdown code fences — mirroring
// protoblock_factory.py's verify_protoblock/_clean_code_fences two-pass
// approach.
func parseGenesis(content string) (*genesisResponse, error) {
	var data genesisResponse
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), &data); err == nil {
		if data.Task.Specification != "" {
			return &data, nil
		}
	}

	cleaned := stripCodeFences(trimmed)
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		preview := trimmed
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("invalid protoblock JSON: %w (response preview: %s)", err, preview)
	}
	if data.Task.Specification == "" {
		return nil, fmt.Errorf("protoblock JSON is missing task.specification")
	}
	return &data, nil
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	start := 1
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	if start >= end {
		return content
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

func (g *Generator) renderPrefix(codebase CodebaseSummary) string {
	var codebaseContent strings.Builder
	first := true
	for path, content := range codebase {
		if !first {
			codebaseContent.WriteString("\n\n")
		}
		first = false
		fmt.Fprintf(&codebaseContent, "File: %s\n%s", path, content)
	}

	var catalog strings.Builder
	for _, reg := range g.registryDescriptions() {
		fmt.Fprintf(&catalog, "- %s: %s\n", reg.Name, reg.Description)
	}

	return fmt.Sprintf(`<purpose>
You are a senior software engineer. You precisely formulate instructions for an autonomous coding agent and a panel of trusty agents that will verify its work. You follow strictly the output_format below, which is a JSON object.
</purpose>

<codebase>
%s
</codebase>

<trusty_agent_catalog>
%s</trusty_agent_catalog>

`, codebaseContent.String(), catalog.String())
}

func (g *Generator) renderTaskSection(task, previousAnalysis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<task_instructions>\n%s\n</task_instructions>\n\n", task)
	if previousAnalysis != "" {
		fmt.Fprintf(&b, "<previous_analysis>\n%s\n</previous_analysis>\n\n", previousAnalysis)
	}
	b.WriteString(`<planning_rules>
- Scan the codebase and list every file that could potentially need read or write access.
- Choose which trusty agents from the catalog above should verify this task; pytest (or the project's equivalent) is implied unless the task has no testable behavior.
- Bring everything into the right format and structure.
</planning_rules>

<output_format>
{
  "task": {"specification": "..."},
  "write_files": ["..."],
  "context_files": ["..."],
  "commit_message": "...",
  "branch_name": "...",
  "trusty_agents": ["..."],
  "trusty_agent_prompts": {"agent_name": "task-specific guidance for that agent"}
}
</output_format>`)
	return b.String()
}

func (g *Generator) registryDescriptions() []trusty.Registration {
	if g.Registry == nil {
		return nil
	}
	return g.Registry.Descriptions()
}
