// Package ai provides request and response types for the LLM providers.
package ai

import (
	"context"
	"strings"
)

// FallbackText is returned when a provider answers without usable content.
const FallbackText = "No pude analizar la batalla."

// minSuggestionLength is the shortest text accepted as a suggestion.
const minSuggestionLength = 10

// Generation defaults shared by both providers.
const (
	Temperature     = 0.5
	MaxOutputTokens = 512
)

// Generator produces a suggestion text from a system and a user prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// IsFailedSuggestion reports whether text is empty, the fallback phrase or
// too short to be a real two-line answer.
func IsFailedSuggestion(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || t == FallbackText || len([]rune(t)) < minSuggestionLength
}

// ChatMessage represents a message in the chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse represents the chat completion response.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// errorBody is the error envelope OpenRouter returns on failures.
type errorBody struct {
	Error struct {
		Message  string `json:"message"`
		Metadata struct {
			Raw string `json:"raw"`
		} `json:"metadata"`
	} `json:"error"`
	Metadata struct {
		Raw string `json:"raw"`
	} `json:"metadata"`
}
