package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Settings is the user-editable configuration of the suggestion service.
type Settings struct {
	Provider         string `json:"provider"`
	GeminiAPIKey     string `json:"apiKey"`
	OpenRouterAPIKey string `json:"openRouterApiKey"`
	OpenRouterModel  string `json:"openRouterModel"`
}

// Masked returns a copy safe to show or log: keys reduced to a hint.
func (s Settings) Masked() Settings {
	s.GeminiAPIKey = MaskKey(s.GeminiAPIKey)
	s.OpenRouterAPIKey = MaskKey(s.OpenRouterAPIKey)
	return s
}

// MaskKey keeps the first four characters of a secret.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "***"
	}
	return key[:4] + "***"
}

// SettingsStore keeps the current Settings in memory and persists them as a
// JSON blob in Redis. Concurrent saves are last-write-wins.
type SettingsStore struct {
	redis    *RedisClient
	key      string
	logger   *zap.Logger
	mu       sync.RWMutex
	settings Settings
}

// NewSettingsStore creates a store seeded with defaults, used until Load
// finds persisted settings.
func NewSettingsStore(redis *RedisClient, key string, defaults Settings, logger *zap.Logger) *SettingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsStore{
		redis:    redis,
		key:      key,
		logger:   logger.Named("settings"),
		settings: defaults,
	}
}

// Load replaces the in-memory settings with the persisted ones, if any.
func (s *SettingsStore) Load(ctx context.Context) error {
	data, err := s.redis.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if data == "" {
		return nil
	}

	var loaded Settings
	if err := json.Unmarshal([]byte(data), &loaded); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()

	s.logger.Info("Loaded settings", zap.String("provider", loaded.Provider))
	return nil
}

// Get returns the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Save trims and stores settings, then persists them.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	settings.Provider = strings.TrimSpace(settings.Provider)
	settings.GeminiAPIKey = strings.TrimSpace(settings.GeminiAPIKey)
	settings.OpenRouterAPIKey = strings.TrimSpace(settings.OpenRouterAPIKey)
	settings.OpenRouterModel = strings.TrimSpace(settings.OpenRouterModel)

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	if err := s.redis.Set(ctx, s.key, string(data), 0); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	s.logger.Info("Saved settings", zap.String("provider", settings.Provider), zap.String("model", settings.OpenRouterModel))
	return nil
}
