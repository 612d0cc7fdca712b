package overlay

import (
	"context"
	"fmt"
	"strings"

	"github.com/showdex/internal/config"
	"github.com/showdex/internal/data"
	"github.com/showdex/internal/storage"
)

// Form is the panel's configuration form.
type Form struct {
	Provider         string `json:"provider"`
	GeminiAPIKey     string `json:"apiKey"`
	OpenRouterAPIKey string `json:"openRouterApiKey"`
	OpenRouterModel  string `json:"openRouterModel"`
}

// SettingsSaver persists settings.
type SettingsSaver interface {
	Save(ctx context.Context, s storage.Settings) error
}

// FormFrom fills a form from stored settings.
func FormFrom(s storage.Settings) Form {
	return Form{
		Provider:         s.Provider,
		GeminiAPIKey:     s.GeminiAPIKey,
		OpenRouterAPIKey: s.OpenRouterAPIKey,
		OpenRouterModel:  s.OpenRouterModel,
	}
}

// KeepMasked replaces keys that were sent back in their masked form with
// the stored ones, so a form filled from masked settings does not clobber
// the real keys.
func (f Form) KeepMasked(current storage.Settings) Form {
	if f.GeminiAPIKey != "" && f.GeminiAPIKey == storage.MaskKey(current.GeminiAPIKey) {
		f.GeminiAPIKey = current.GeminiAPIKey
	}
	if f.OpenRouterAPIKey != "" && f.OpenRouterAPIKey == storage.MaskKey(current.OpenRouterAPIKey) {
		f.OpenRouterAPIKey = current.OpenRouterAPIKey
	}
	return f
}

// Settings normalises the form: keys trimmed, an empty provider means data
// only and an empty model means the first catalogue model.
func (f Form) Settings() (storage.Settings, error) {
	provider := strings.TrimSpace(f.Provider)
	switch provider {
	case "":
		provider = config.ProviderNone
	case config.ProviderNone, config.ProviderGemini, config.ProviderOpenRouter:
	default:
		return storage.Settings{}, fmt.Errorf("unknown provider %q", provider)
	}

	model := strings.TrimSpace(f.OpenRouterModel)
	if model == "" {
		model = data.FirstModel()
	}

	return storage.Settings{
		Provider:         provider,
		GeminiAPIKey:     strings.TrimSpace(f.GeminiAPIKey),
		OpenRouterAPIKey: strings.TrimSpace(f.OpenRouterAPIKey),
		OpenRouterModel:  model,
	}, nil
}

// Save normalises the form and stores it.
func (f Form) Save(ctx context.Context, store SettingsSaver) (storage.Settings, error) {
	s, err := f.Settings()
	if err != nil {
		return storage.Settings{}, err
	}
	if err := store.Save(ctx, s); err != nil {
		return storage.Settings{}, err
	}
	return s, nil
}
