package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// VisionRequest carries an image alongside the text prompt for the
// web_simple/web_compare/web_reference trusty agents (§6.4). agentkit's
// Chat API (as called from cmd/agent and internal/executor) carries no
// image field on its Message type, so vision completion is served only
// by the direct HTTP adapters, which speak each provider's native
// multimodal content-block format.
type VisionRequest struct {
	Prompt    string
	ImagePNG  []byte
	MaxTokens int
}

// VisionProvider is the narrower capability the visualagent package
// depends on. Not every Provider implements it — AgentKitProvider does
// not, since the underlying agentkit client exposes no image input.
type VisionProvider interface {
	CompleteVision(ctx context.Context, req VisionRequest) (Response, error)
}

func (a *AnthropicProvider) CompleteVision(ctx context.Context, req VisionRequest) (Response, error) {
	content := []anthropicContentBlock{
		{Type: "image", Source: &anthropicImageSource{
			Type:      "base64",
			MediaType: "image/png",
			Data:      base64.StdEncoding.EncodeToString(req.ImagePNG),
		}},
		{Type: "text", Text: req.Prompt},
	}
	maxTokens := a.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	body, err := json.Marshal(anthropicVisionRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		Messages:  []anthropicVisionMsg{{Role: "user", Content: content}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal anthropic vision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build anthropic vision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic vision request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read anthropic vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("anthropic vision API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Response{}, fmt.Errorf("failed to unmarshal anthropic vision response: %w", err)
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

type anthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicVisionMsg struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicVisionRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	Messages  []anthropicVisionMsg `json:"messages"`
}

func (o *OpenAIProvider) CompleteVision(ctx context.Context, req VisionRequest) (Response, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ImagePNG)
	content := []openaiContentBlock{
		{Type: "text", Text: req.Prompt},
		{Type: "image_url", ImageURL: &openaiImageURL{URL: dataURL}},
	}
	maxTokens := o.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	body, err := json.Marshal(openaiVisionRequest{
		Model:     o.Model,
		MaxTokens: maxTokens,
		Messages:  []openaiVisionMsg{{Role: "user", Content: content}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal openai vision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build openai vision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("openai vision request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read openai vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("openai vision API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Response{}, fmt.Errorf("failed to unmarshal openai vision response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in openai vision response")
	}
	return Response{
		Content:      apiResp.Choices[0].Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		Model:        apiResp.Model,
	}, nil
}

type openaiContentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiVisionMsg struct {
	Role    string               `json:"role"`
	Content []openaiContentBlock `json:"content"`
}

type openaiVisionRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens,omitempty"`
	Messages  []openaiVisionMsg `json:"messages"`
}
