package ai

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/showdex/internal/config"
)

// Options carries the endpoint settings that are not user-editable.
type Options struct {
	GeminiModel   string
	GeminiBaseURL string
	OpenRouterURL string
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// NewGenerator builds the generator for provider. model only applies to
// OpenRouter; Gemini uses opts.GeminiModel.
func NewGenerator(ctx context.Context, provider, apiKey, model string, opts Options) (Generator, error) {
	switch provider {
	case config.ProviderOpenRouter:
		if apiKey == "" {
			return nil, &MissingKeyError{Provider: "OpenRouter"}
		}
		return NewOpenRouterClient(apiKey, opts.OpenRouterURL, model, opts.HTTPClient, opts.Logger), nil
	case config.ProviderGemini, "":
		return NewGeminiClient(ctx, apiKey, opts.GeminiModel, opts.GeminiBaseURL, opts.HTTPClient, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}
