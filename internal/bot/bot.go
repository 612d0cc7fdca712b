// Package bot provides the Discord relay for Showdex: every suggestion is
// posted to a channel, and slash commands drive the service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/showdex/internal/bridge"
	"github.com/showdex/internal/config"
	"github.com/showdex/internal/embeds"
	"github.com/showdex/internal/overlay"
	"github.com/showdex/internal/storage"
)

// Refresher resends the last request of the current battle.
type Refresher interface {
	Refresh() error
}

// SettingsStore reads and persists user settings.
type SettingsStore interface {
	Get() storage.Settings
	Save(ctx context.Context, s storage.Settings) error
}

// sender is the part of a discordgo session used to post messages.
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot represents the Discord bot.
type Bot struct {
	session   *discordgo.Session
	sender    sender
	channelID string
	settings  SettingsStore
	logger    *zap.Logger

	mu        sync.RWMutex
	refresher Refresher
	commands  []*discordgo.ApplicationCommand
}

var _ bridge.Listener = (*Bot)(nil)

// New creates a new Bot instance.
func New(cfg *config.Config, settings SettingsStore, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	if logger == nil {
		logger = zap.NewNop()
	}
	bot := &Bot{
		session:   session,
		sender:    session,
		channelID: cfg.DiscordChannelID,
		settings:  settings,
		logger:    logger.Named("discord"),
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteractionCreate)

	return bot, nil
}

// SetRefresher wires the /refresh command.
func (b *Bot) SetRefresher(r Refresher) {
	b.mu.Lock()
	b.refresher = r
	b.mu.Unlock()
}

// Start connects to Discord and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	b.logger.Info("Connected to Discord")

	if err := b.registerCommands(); err != nil {
		b.logger.Warn("Register commands failed", zap.Error(err))
	}
	return nil
}

// Stop removes the commands and closes the session.
func (b *Bot) Stop() error {
	b.mu.RLock()
	commands := b.commands
	b.mu.RUnlock()

	if b.session.State != nil && b.session.State.User != nil {
		for _, cmd := range commands {
			if cmd == nil {
				continue
			}
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID); err != nil {
				b.logger.Debug("Command delete failed", zap.String("command", cmd.Name), zap.Error(err))
			}
		}
	}
	return b.session.Close()
}

// RequestSent implements bridge.Listener; nothing is posted while loading.
func (b *Bot) RequestSent(string) {}

// Reply implements bridge.Listener.
func (b *Bot) Reply(r bridge.Reply) {
	var embed *discordgo.MessageEmbed
	switch {
	case r.Error != "":
		embed = embeds.Error(r.Error, "")
	case r.Suggestion != "":
		embed = embeds.Suggestion(r.Room, r.Suggestion, r.BattleSummary)
	case r.BattleSummary != nil:
		embed = embeds.DataOnly(r.Room, r.BattleSummary)
	default:
		return
	}
	b.post(embed)
}

// Error implements bridge.Listener.
func (b *Bot) Error(room, message string) {
	b.post(embeds.Error(message, ""))
}

func (b *Bot) post(embed *discordgo.MessageEmbed) {
	if b.channelID == "" {
		return
	}
	if _, err := b.sender.ChannelMessageSendEmbed(b.channelID, embed); err != nil {
		b.logger.Warn("Failed to post to Discord", zap.String("channel", b.channelID), zap.Error(err))
	}
}

// onReady is called when the bot is ready.
func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("Bot ready", zap.String("user", event.User.Username))
}

// registerCommands registers all slash commands.
func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Comprueba que el bot sigue vivo",
		},
		{
			Name:        "refresh",
			Description: "Pide otra sugerencia para el turno actual",
		},
		{
			Name:        "ajustes",
			Description: "Muestra o cambia el modo de sugerencias",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "modo",
					Description: "Proveedor de IA",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Solo datos (sin IA)", Value: config.ProviderNone},
						{Name: "OpenRouter", Value: config.ProviderOpenRouter},
						{Name: "Gemini", Value: config.ProviderGemini},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "modelo",
					Description: "Modelo de OpenRouter (VD: openai/gpt-oss-120b:free)",
					Required:    false,
				},
			},
		},
	}

	registered := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, cmd := range commands {
		r, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			b.logger.Warn("Command registration failed", zap.String("command", cmd.Name), zap.Error(err))
			continue
		}
		registered = append(registered, r)
	}

	b.mu.Lock()
	b.commands = registered
	b.mu.Unlock()
	b.logger.Info("Registered commands", zap.Int("count", len(registered)))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	var embed *discordgo.MessageEmbed
	switch data.Name {
	case "ping":
		embed = embeds.Success(fmt.Sprintf("🏓 Pong! Latencia: **%dms**", s.HeartbeatLatency().Milliseconds()), "✅ Bot activo")
	case "refresh":
		embed = b.handleRefresh()
	case "ajustes":
		embed = b.handleAjustes(optionMap(data.Options))
	default:
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("Interaction respond failed", zap.String("command", data.Name), zap.Error(err))
	}
}

func (b *Bot) handleRefresh() *discordgo.MessageEmbed {
	b.mu.RLock()
	r := b.refresher
	b.mu.RUnlock()
	if r == nil {
		return embeds.Error("No hay ninguna batalla conectada.", "")
	}

	if err := r.Refresh(); err != nil {
		if errors.Is(err, bridge.ErrNothingToRefresh) {
			return embeds.Info("Todavía no hay un turno que actualizar.", "")
		}
		return embeds.Error("No hay ninguna batalla conectada.", "")
	}
	return embeds.Info("Pidiendo otra sugerencia...", "🔄 Actualizar")
}

// handleAjustes shows the settings, or saves them when options are given.
func (b *Bot) handleAjustes(opts map[string]string) *discordgo.MessageEmbed {
	current := b.settings.Get()
	if len(opts) == 0 {
		return embeds.Settings(current)
	}

	form := overlay.FormFrom(current)
	if modo, ok := opts["modo"]; ok {
		form.Provider = modo
	}
	if modelo, ok := opts["modelo"]; ok {
		form.OpenRouterModel = modelo
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	saved, err := form.Save(ctx, b.settings)
	if err != nil {
		return embeds.Error(err.Error(), "")
	}
	return embeds.Settings(saved)
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	m := make(map[string]string, len(options))
	for _, o := range options {
		if o.Type == discordgo.ApplicationCommandOptionString {
			m[o.Name] = o.StringValue()
		}
	}
	return m
}
