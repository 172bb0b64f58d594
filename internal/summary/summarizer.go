// Package summary generates short descriptions of fetched webpage content by
// calling an OpenAI-compatible chat completion endpoint. Summarization is a
// best-effort enrichment: every failure mode collapses to an empty string so
// the calling pipeline never aborts a bookmark write because of it.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// maxPromptContentLen caps the content embedded in the prompt. Applied here
// regardless of any cap the fetcher has already enforced.
const maxPromptContentLen = 1500

const promptTemplate = `Summarize this webpage content in 1-2 sentences. Focus on the main topic and key information.
Title: %s
Content: %s

Provide a concise, informative summary:`

// Generator produces 1–2 sentence summaries via a chat completion model.
// A nil *Generator is valid and always returns "" — the wiring layer leaves
// it nil when no API credential is configured.
type Generator struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// NewGenerator constructs a Generator for the given credential and model.
// Returns nil when apiKey is empty, which callers treat as "summaries
// unavailable" rather than an error. baseURL overrides the API endpoint when
// non-empty (OpenAI-compatible providers).
func NewGenerator(apiKey, model, baseURL string, log *slog.Logger) *Generator {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{client: openai.NewClientWithConfig(cfg), model: model, log: log}
}

// Summarize reduces content + title to a short summary. It returns "" when
// the generator is nil, the service call fails, or the response is empty;
// failures are logged, never returned.
func (g *Generator) Summarize(ctx context.Context, content, title string) string {
	if g == nil {
		return ""
	}

	prompt := Prompt(content, title)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: 200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		g.log.Warn("summary generation failed", "error", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		g.log.Warn("summary generation returned no choices")
		return ""
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// Prompt exposes the exact prompt built for content and title, including the
// content cap. Split out so the truncation behavior is testable without a
// live API call.
func Prompt(content, title string) string {
	if len(content) > maxPromptContentLen {
		content = content[:maxPromptContentLen]
	}
	return fmt.Sprintf(promptTemplate, title, content)
}
