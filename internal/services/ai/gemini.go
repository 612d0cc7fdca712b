package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used for suggestions.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates suggestions with the Gemini API through genai.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiClient creates a client. baseURL overrides the API host, mainly
// for tests; an empty value uses Google's endpoint.
func NewGeminiClient(ctx context.Context, apiKey, model, baseURL string, httpClient *http.Client, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &MissingKeyError{Provider: "Gemini"}
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.Named("gemini"),
	}, nil
}

// Name implements Generator.
func (c *GeminiClient) Name() string { return "Gemini" }

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](Temperature),
		MaxOutputTokens:   MaxOutputTokens,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("Gemini API error", zap.Int("status", apiErr.Code), zap.String("model", c.model))
			return "", &APIError{Provider: c.Name(), StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", fmt.Errorf("request failed: %w", err)
	}

	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text, nil
	}
	return FallbackText, nil
}
