package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/showdex/internal/bot"
	"github.com/showdex/internal/bridge"
	"github.com/showdex/internal/config"
	"github.com/showdex/internal/observability"
	"github.com/showdex/internal/server"
	"github.com/showdex/internal/services/ai"
	"github.com/showdex/internal/services/pokeapi"
	"github.com/showdex/internal/showdown"
	"github.com/showdex/internal/storage"
	"github.com/showdex/internal/suggest"
	"github.com/showdex/pkg/healthcheck"
)

const cacheTTL = 24 * time.Hour

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the overlay server and, if configured, the Showdown client and Discord relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	logger := observability.Initialize(cfg.Log, zapcore.Lock(os.Stdout))
	defer observability.Sync()
	logger.Info("Starting Showdex", zap.String("provider", cfg.Provider), zap.String("addr", cfg.Addr))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redis := storage.NewRedisClient(ctx, cfg.RedisURL, logger)
	defer redis.Close()

	settings := storage.NewSettingsStore(redis, cfg.RedisKeySettings, storage.Settings{
		Provider:         cfg.Provider,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
		OpenRouterModel:  cfg.OpenRouterModel,
	}, logger)
	if err := settings.Load(ctx); err != nil {
		logger.Warn("Using default settings", zap.Error(err))
	}

	cache := storage.NewCache(redis, cfg.RedisCachePrefix, cacheTTL)
	species := pokeapi.NewClient(cfg.PokeAPIURL+"/pokemon", cfg.PokeAPIRPS, cache, logger)
	defer species.Close()

	retries := cfg.AIRetryMax
	if retries == 0 {
		retries = suggest.NoRetries
	}
	service := suggest.New(settings, suggest.ProviderFactory(ai.Options{
		GeminiModel:   cfg.GeminiModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
		OpenRouterURL: cfg.OpenRouterURL,
		Logger:        logger,
	}), suggest.Options{
		Timeout:    cfg.AITimeout,
		MaxRetries: retries,
		RetryDelay: cfg.AIRetryDelay,
	}, logger)

	var transport bridge.Transport
	if cfg.SuggestRemoteURL != "" {
		transport = bridge.NewHTTPTransport(cfg.SuggestRemoteURL, &http.Client{Timeout: cfg.AITimeout * time.Duration(cfg.AIRetryMax+2)})
		logger.Info("Using remote suggestion service", zap.String("url", cfg.SuggestRemoteURL))
	}

	deps := server.Deps{
		Settings:    settings,
		Suggester:   service,
		Transport:   transport,
		Species:     species,
		LogCapacity: cfg.LogBufferCapacity,
		Checks: map[string]healthcheck.Check{
			"redis": redis.Ping,
		},
	}

	var discordBot *bot.Bot
	if cfg.DiscordEnabled() {
		discordBot, err = bot.New(cfg, settings, logger)
		if err != nil {
			return fmt.Errorf("bot error: %w", err)
		}
		deps.Listeners = append(deps.Listeners, discordBot)
	}

	srv := server.New(ctx, cfg.Addr, deps, logger)
	if discordBot != nil {
		discordBot.SetRefresher(srv)
		if err := discordBot.Start(); err != nil {
			return fmt.Errorf("start error: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)

	if cfg.ShowdownEnabled() {
		client := showdown.NewClient(showdown.Options{
			ServerURL: cfg.ShowdownServerURL,
			LoginURL:  cfg.ShowdownLoginURL,
			User:      cfg.ShowdownUser,
			Pass:      cfg.ShowdownPass,
			Rooms:     cfg.ShowdownRooms,
		}, nil, logger)
		if err := client.Connect(gctx); err != nil {
			return fmt.Errorf("showdown connect: %w", err)
		}
		srv.AttachHost(gctx, client)
		g.Go(func() error {
			defer client.Close()
			if err := client.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		// Graceful shutdown with short timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if discordBot != nil {
			if err := discordBot.Stop(); err != nil {
				logger.Warn("Discord stop failed", zap.Error(err))
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Stopped")
	return nil
}
