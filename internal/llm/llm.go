// Package llm defines the text/vision completion capability (§6.4) that
// ProtoBlockGenerator, ErrorAnalyzer, and the LLM-backed trusty agents
// depend on, and binds it to github.com/vinayprograms/agentkit/llm — the
// same provider construction path the teacher's cmd/agent uses — with
// direct HTTP adapters as a fallback for providers agentkit does not
// front (e.g. a custom base_url).
package llm

import (
	"context"
	"time"

	agentkitllm "github.com/vinayprograms/agentkit/llm"
)

// Message is one turn in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request is a provider-agnostic completion request.
type Request struct {
	Messages  []Message
	MaxTokens int
}

// Response is a provider-agnostic completion result.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Provider is the capability ProtoBlockGenerator, ErrorAnalyzer, and the
// LLM-backed trusty agents (code_reviewer, plausibility, web_*) depend
// on. It deliberately exposes only text completion, not tool calling —
// tool use belongs to the coding-agent capability, a separate concern
// (§6.1) fronted directly by agentkit/llm.Provider there.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// AgentKitProvider adapts an agentkit/llm.Provider (the same construction
// path cmd/agent/main.go uses via llm.NewProvider) to the narrower
// completion-only Provider contract tac's analysis components need.
type AgentKitProvider struct {
	inner agentkitllm.Provider
}

// NewAgentKitProvider builds a completion provider for profile/provider
// name, model, and API key via agentkit's own provider factory —
// resolving thinking level and retry behavior the same way
// cmd/agent/main.go does for its coding-agent provider.
func NewAgentKitProvider(provider, model, apiKey string, maxTokens int, thinking string, maxRetries int, retryBackoff string) (*AgentKitProvider, error) {
	inner, err := agentkitllm.NewProvider(agentkitllm.ProviderConfig{
		Provider:    provider,
		Model:       model,
		APIKey:      apiKey,
		MaxTokens:   maxTokens,
		Thinking:    agentkitllm.ThinkingConfig{Level: agentkitllm.ThinkingLevel(thinking)},
		RetryConfig: parseRetryConfig(maxRetries, retryBackoff),
	})
	if err != nil {
		return nil, err
	}
	return &AgentKitProvider{inner: inner}, nil
}

// WrapProvider adapts an already-constructed agentkit/llm.Provider (e.g.
// one shared with the coding-agent executor) to the Provider contract.
func WrapProvider(inner agentkitllm.Provider) *AgentKitProvider {
	return &AgentKitProvider{inner: inner}
}

// parseRetryConfig mirrors cmd/agent/util.go's helper of the same name.
func parseRetryConfig(maxRetries int, backoffStr string) agentkitllm.RetryConfig {
	cfg := agentkitllm.RetryConfig{MaxRetries: maxRetries}
	if backoffStr != "" {
		if d, err := time.ParseDuration(backoffStr); err == nil {
			cfg.MaxBackoff = d
		}
	}
	return cfg
}

func (p *AgentKitProvider) Complete(ctx context.Context, req Request) (Response, error) {
	msgs := make([]agentkitllm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, agentkitllm.Message{Role: m.Role, Content: m.Content})
	}
	resp, err := p.inner.Chat(ctx, agentkitllm.ChatRequest{
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Content:      resp.Content,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Model:        resp.Model,
	}, nil
}
