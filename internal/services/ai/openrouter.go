package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DefaultOpenRouterURL is the chat completions endpoint.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// DefaultOpenRouterModel is used when no model is selected.
const DefaultOpenRouterModel = "openrouter/aurora-alpha"

// OpenRouterClient talks to OpenRouter's OpenAI-compatible API.
type OpenRouterClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOpenRouterClient creates a client. The per-call deadline comes from ctx.
func NewOpenRouterClient(apiKey, apiURL, model string, httpClient *http.Client, logger *zap.Logger) *OpenRouterClient {
	if apiURL == "" {
		apiURL = DefaultOpenRouterURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenRouterClient{
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger.Named("openrouter"),
	}
}

// Name implements Generator.
func (c *OpenRouterClient) Name() string { return "OpenRouter" }

// Generate implements Generator.
func (c *OpenRouterClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: Temperature,
		MaxTokens:   MaxOutputTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("OpenRouter API error", zap.Int("status", resp.StatusCode), zap.String("model", c.model))
		return "", &APIError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return FallbackText, nil
	}
	if text := strings.TrimSpace(chatResp.Choices[0].Message.Content); text != "" {
		return text, nil
	}
	return FallbackText, nil
}
