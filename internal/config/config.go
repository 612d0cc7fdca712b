// Package config provides configuration management for Showdex.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider identifiers, also persisted by the settings store.
const (
	ProviderNone       = "solo-datos"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP / overlay
	Addr string

	// Showdown server
	ShowdownServerURL string
	ShowdownLoginURL  string
	ShowdownUser      string
	ShowdownPass      string
	ShowdownRooms     []string

	// AI / LLM API
	Provider         string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	OpenRouterAPIKey string
	OpenRouterModel  string
	OpenRouterURL    string
	AITimeout        time.Duration
	AIRetryMax       int
	AIRetryDelay     time.Duration

	// Remote suggestion service. Empty means in-process.
	SuggestRemoteURL string

	// Battle log
	LogBufferCapacity int

	// Redis
	RedisURL         string
	RedisKeySettings string
	RedisCachePrefix string

	// PokeAPI
	PokeAPIURL string
	PokeAPIRPS float64

	// Discord relay (optional)
	DiscordToken     string
	DiscordChannelID string

	Log LoggerConfig
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	ServiceName string
	Level       string
	Format      string // "console" or "json"
	LogFile     string
	MaxSize     int
	MaxBackups  int
	MaxAge      int
	Compress    bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	var errs []string

	timeout, err := getEnvDuration("AI_TIMEOUT", 15*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	retryDelay, err := getEnvDuration("AI_RETRY_DELAY", 2500*time.Millisecond)
	if err != nil {
		errs = append(errs, err.Error())
	}
	retryMax, err := getEnvInt("AI_RETRY_MAX", 2)
	if err != nil {
		errs = append(errs, err.Error())
	}
	capacity, err := getEnvInt("LOG_BUFFER_CAPACITY", 5000)
	if err != nil {
		errs = append(errs, err.Error())
	}
	rps, err := getEnvFloat("POKEAPI_RPS", 5)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}

	cfg := &Config{
		Addr: getEnvOrDefault("SHOWDEX_ADDR", ":8080"),

		ShowdownServerURL: getEnvOrDefault("SHOWDOWN_SERVER_URL", "wss://sim3.psim.us/showdown/websocket"),
		ShowdownLoginURL:  getEnvOrDefault("SHOWDOWN_LOGIN_URL", "https://play.pokemonshowdown.com/api/login"),
		ShowdownUser:      os.Getenv("SHOWDOWN_USER"),
		ShowdownPass:      os.Getenv("SHOWDOWN_PASS"),
		ShowdownRooms:     splitList(os.Getenv("SHOWDOWN_ROOMS")),

		Provider:         strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini)),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnvOrDefault("OPENROUTER_MODEL", "openrouter/aurora-alpha"),
		OpenRouterURL:    getEnvOrDefault("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),
		AITimeout:        timeout,
		AIRetryMax:       retryMax,
		AIRetryDelay:     retryDelay,

		SuggestRemoteURL: os.Getenv("SUGGEST_REMOTE_URL"),

		LogBufferCapacity: capacity,

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisKeySettings: getEnvOrDefault("REDIS_KEY_SETTINGS", "showdex:settings"),
		RedisCachePrefix: getEnvOrDefault("REDIS_CACHE_PREFIX", "showdex:cache:"),

		PokeAPIURL: getEnvOrDefault("POKEAPI_URL", "https://pokeapi.co/api/v2"),
		PokeAPIRPS: rps,

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		Log: LoggerConfig{
			ServiceName: "showdex",
			Level:       getEnvOrDefault("LOG_LEVEL", "info"),
			Format:      getEnvOrDefault("LOG_FORMAT", "console"),
			LogFile:     os.Getenv("LOG_FILE"),
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      7,
			Compress:    true,
		},
	}

	return cfg, nil
}

// Validate checks if all configuration values are usable.
// API keys are optional here: they can be set later from the overlay.
func (c *Config) Validate() error {
	var errs []string

	if c.Addr == "" {
		errs = append(errs, "SHOWDEX_ADDR is empty")
	}

	switch c.Provider {
	case ProviderNone, ProviderGemini, ProviderOpenRouter:
	default:
		errs = append(errs, fmt.Sprintf("AI_PROVIDER %q is not one of %s, %s, %s",
			c.Provider, ProviderNone, ProviderGemini, ProviderOpenRouter))
	}

	if c.ShowdownUser != "" && c.ShowdownPass == "" {
		errs = append(errs, "SHOWDOWN_PASS is missing for SHOWDOWN_USER")
	}

	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		errs = append(errs, "DISCORD_CHANNEL_ID is missing for DISCORD_TOKEN")
	}

	if c.AITimeout <= 0 {
		errs = append(errs, "AI_TIMEOUT must be positive")
	}
	if c.AIRetryMax < 0 {
		errs = append(errs, "AI_RETRY_MAX must not be negative")
	}
	if c.LogBufferCapacity <= 0 {
		errs = append(errs, "LOG_BUFFER_CAPACITY must be positive")
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(errs, "; "))
	}

	return nil
}

// ShowdownEnabled reports whether the service should log in to Showdown itself.
func (c *Config) ShowdownEnabled() bool {
	return c.ShowdownUser != ""
}

// DiscordEnabled reports whether the Discord relay is configured.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != ""
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
