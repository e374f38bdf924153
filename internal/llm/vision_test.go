package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_CompleteVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicVisionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "image", req.Messages[0].Content[0].Type)

		resp := anthropicResponse{Model: "claude-3-5-sonnet"}
		resp.Content = append(resp.Content, struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: "looks correct"})
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-3-5-sonnet", 1024, srv.URL)
	resp, err := p.CompleteVision(context.Background(), VisionRequest{Prompt: "does this match?", ImagePNG: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "looks correct", resp.Content)
}

func TestOpenAIProvider_CompleteVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiVisionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages[0].Content, 2)
		assert.Contains(t, req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,")

		resp := openaiResponse{Model: "gpt-4o"}
		resp.Choices = append(resp.Choices, struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{})
		resp.Choices[0].Message.Content = "matches reference"
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", "gpt-4o", 1024, srv.URL)
	resp, err := p.CompleteVision(context.Background(), VisionRequest{Prompt: "compare", ImagePNG: []byte{4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, "matches reference", resp.Content)
}
