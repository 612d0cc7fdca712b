// Package suggest turns a Showdown request payload into a battle summary
// and, when a provider is configured, a short LLM suggestion.
package suggest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/config"
	"github.com/showdex/internal/retry"
	"github.com/showdex/internal/services/ai"
	"github.com/showdex/internal/storage"
)

const (
	// DefaultTimeout bounds a single provider attempt.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxRetries is the number of extra attempts for unusable answers.
	DefaultMaxRetries = 2
	// DefaultRetryDelay is waited between attempts.
	DefaultRetryDelay = 2500 * time.Millisecond
	// NoRetries disables retrying when set as Options.MaxRetries.
	NoRetries = -1
)

// Request is one suggestion request.
type Request struct {
	Payload  string
	Opponent *battlelog.OpponentSummary
}

// Result is what the overlay renders. A zero Result means there was no
// battle data in the payload.
type Result struct {
	Suggestion string                   `json:"suggestion,omitempty"`
	Summary    *battlelog.BattleSummary `json:"battleSummary,omitempty"`
	Provider   string                   `json:"provider,omitempty"`
	Attempts   int                      `json:"attempts,omitempty"`
}

// GeneratorFactory builds the provider for the current settings.
type GeneratorFactory func(ctx context.Context, s storage.Settings) (ai.Generator, error)

// SettingsSource returns the current settings.
type SettingsSource interface {
	Get() storage.Settings
}

// Options configures a Service. Zero values take the defaults above;
// MaxRetries set to NoRetries turns retrying off.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// Timer replaces the wall-clock wait between attempts. Tests only.
	Timer backoff.Timer
}

// Service is the Suggestion Service.
type Service struct {
	settings SettingsSource
	factory  GeneratorFactory
	policy   retry.Policy[string]
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service.
func New(settings SettingsSource, factory GeneratorFactory, opts Options, logger *zap.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		settings: settings,
		factory:  factory,
		policy: retry.Policy[string]{
			MaxRetries: opts.MaxRetries,
			Delay:      opts.RetryDelay,
			Failed:     ai.IsFailedSuggestion,
			Timer:      opts.Timer,
		},
		timeout: opts.Timeout,
		logger:  logger.Named("suggest"),
	}
	s.policy.Notify = func(_ error, wait time.Duration) {
		s.logger.Debug("Unusable suggestion, retrying", zap.Duration("wait", wait))
	}
	return s
}

// ProviderFactory returns the GeneratorFactory backed by the real providers.
func ProviderFactory(opts ai.Options) GeneratorFactory {
	return func(ctx context.Context, s storage.Settings) (ai.Generator, error) {
		switch s.Provider {
		case config.ProviderOpenRouter:
			return ai.NewGenerator(ctx, s.Provider, s.OpenRouterAPIKey, s.OpenRouterModel, opts)
		default:
			return ai.NewGenerator(ctx, s.Provider, s.GeminiAPIKey, "", opts)
		}
	}
}

// Suggest runs one request through the selected provider.
func (s *Service) Suggest(ctx context.Context, req Request) (Result, error) {
	settings := s.settings.Get()

	summary := battlelog.Summarize(req.Payload)
	if summary == nil {
		s.logger.Debug("No battle data in payload")
		return Result{}, nil
	}
	summary = summary.WithOpponent(req.Opponent)

	result := Result{Summary: summary, Provider: settings.Provider}
	if settings.Provider == config.ProviderNone {
		return result, nil
	}

	if key := apiKeyFor(settings); key == "" {
		return result, &ai.MissingKeyError{Provider: providerLabel(settings.Provider)}
	}

	gen, err := s.factory(ctx, settings)
	if err != nil {
		return result, err
	}
	result.Provider = gen.Name()

	userPrompt := ai.BuildUserPrompt(req.Payload, req.Opponent)
	out, err := retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) (string, error) {
		return s.attempt(ctx, gen, userPrompt, attempt)
	})
	result.Attempts = out.Attempts
	if err != nil {
		return result, err
	}
	if out.Exhausted {
		s.logger.Warn("Suggestion still unusable after retries",
			zap.String("provider", gen.Name()), zap.Int("attempts", out.Attempts))
	}

	result.Suggestion = out.Value
	return result, nil
}

func (s *Service) attempt(ctx context.Context, gen ai.Generator, userPrompt string, attempt int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := gen.Generate(ctx, ai.SystemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &ai.TimeoutError{After: s.timeout}
		}
		return "", err
	}

	s.logger.Debug("Provider answered",
		zap.String("provider", gen.Name()),
		zap.Int("attempt", attempt+1),
		zap.Duration("took", time.Since(start)))
	return text, nil
}

func apiKeyFor(s storage.Settings) string {
	if s.Provider == config.ProviderOpenRouter {
		return s.OpenRouterAPIKey
	}
	return s.GeminiAPIKey
}

func providerLabel(provider string) string {
	if provider == config.ProviderOpenRouter {
		return "OpenRouter"
	}
	return "Gemini"
}
