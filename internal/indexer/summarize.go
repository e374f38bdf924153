package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/tac/internal/llm"
)

// Summarizer produces a high-level, one-paragraph description of a
// file's contents for the codebase summary. A real implementation
// delegates to an LLM; firstLinesSummarizer below is the cheap
// fallback used when none is configured.
type Summarizer interface {
	Summarize(ctx context.Context, relpath, content string) (string, error)
}

// LLMSummarizer asks the configured completion provider for a one or
// two sentence description of the file, grounded on the original
// indexer's FileSummarizer collaborator.
type LLMSummarizer struct {
	Provider llm.Provider
}

func (s *LLMSummarizer) Summarize(ctx context.Context, relpath, content string) (string, error) {
	if len(content) > 8000 {
		content = content[:8000]
	}
	resp, err := s.Provider.Complete(ctx, llm.Request{Messages: []llm.Message{
		{Role: "user", Content: fmt.Sprintf("Summarize the purpose of this file in one or two sentences. Respond with the summary only, no preamble.\n\nFile: %s\n\n%s", relpath, content)},
	}})
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", relpath, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// firstLinesSummarizer is a degraded, LLM-free fallback: it takes the
// first non-blank lines of the file as its "summary". Used in tests
// and when no Summarizer is configured.
type firstLinesSummarizer struct {
	MaxLines int
}

func (s firstLinesSummarizer) Summarize(ctx context.Context, relpath, content string) (string, error) {
	maxLines := s.MaxLines
	if maxLines <= 0 {
		maxLines = 3
	}
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimSpace(line))
		if len(kept) >= maxLines {
			break
		}
	}
	if len(kept) == 0 {
		return "(empty file)", nil
	}
	return strings.Join(kept, " "), nil
}
