package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnthropicProvider is a direct HTTP completion adapter for Claude,
// used when a profile names a base_url agentkit's client does not
// support (e.g. a self-hosted gateway). Adapted from the teacher's
// AnthropicAdapter, stripped of tool-calling since Provider here is
// completion-only.
type AnthropicProvider struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	client    *http.Client
}

// NewAnthropicProvider returns a direct Anthropic completion provider.
func NewAnthropicProvider(apiKey, model string, maxTokens int, baseURL string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicProvider{
		APIKey: apiKey, Model: model, MaxTokens: maxTokens, BaseURL: baseURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string         `json:"model"`
	Messages  []anthropicMsg `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var msgs []anthropicMsg
	var system string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		msgs = append(msgs, anthropicMsg{Role: m.Role, Content: m.Content})
	}
	maxTokens := a.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	body, err := json.Marshal(anthropicRequest{Model: a.Model, Messages: msgs, MaxTokens: maxTokens, System: system})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Response{}, fmt.Errorf("failed to unmarshal anthropic response: %w", err)
	}

	var text string
	for _, c := range apiResp.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	return Response{
		Content:      text,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		Model:        apiResp.Model,
	}, nil
}

// OpenAIProvider is a direct HTTP completion adapter for OpenAI-compatible
// endpoints (OpenRouter, LiteLLM, Ollama, LM Studio), adapted from the
// teacher's OpenAIAdapter.
type OpenAIProvider struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	client    *http.Client
}

// NewOpenAIProvider returns a direct OpenAI-compatible completion
// provider.
func NewOpenAIProvider(apiKey, model string, maxTokens int, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		APIKey: apiKey, Model: model, MaxTokens: maxTokens, BaseURL: baseURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type openaiMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model     string      `json:"model"`
	Messages  []openaiMsg `json:"messages"`
	MaxTokens int         `json:"max_tokens,omitempty"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (o *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var msgs []openaiMsg
	for _, m := range req.Messages {
		msgs = append(msgs, openaiMsg{Role: m.Role, Content: m.Content})
	}
	maxTokens := o.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	body, err := json.Marshal(openaiRequest{Model: o.Model, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read openai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Response{}, fmt.Errorf("failed to unmarshal openai response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in openai response")
	}
	return Response{
		Content:      apiResp.Choices[0].Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		Model:        apiResp.Model,
	}, nil
}

// NewProvider selects a completion provider by name, preferring the
// direct HTTP adapters for providers that need a custom base_url and
// agentkit otherwise.
func NewProvider(provider, model, apiKey string, maxTokens int, baseURL, thinking string, maxRetries int, retryBackoff string) (Provider, error) {
	switch provider {
	case "anthropic":
		if baseURL != "" {
			return NewAnthropicProvider(apiKey, model, maxTokens, baseURL), nil
		}
		return NewAgentKitProvider(provider, model, apiKey, maxTokens, thinking, maxRetries, retryBackoff)
	case "openai":
		if baseURL != "" {
			return NewOpenAIProvider(apiKey, model, maxTokens, baseURL), nil
		}
		return NewAgentKitProvider(provider, model, apiKey, maxTokens, thinking, maxRetries, retryBackoff)
	case "google":
		return NewAgentKitProvider(provider, model, apiKey, maxTokens, thinking, maxRetries, retryBackoff)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
