// Package embeds provides Discord embed builders for Showdex.
package embeds

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/overlay"
	"github.com/showdex/internal/storage"
)

// Colors for embeds
const (
	ColorSuggestion = 0x22D3EE // Cyan, like the overlay
	ColorError      = 0xFF0000 // Red
	ColorInfo       = 0x3498DB // Blue
	ColorWarning    = 0xFFFF00 // Yellow
	ColorDataOnly   = 0x64748B // Slate
)

// SpriteBaseURL serves the animated sprites used as thumbnails.
var SpriteBaseURL = "https://play.pokemonshowdown.com/sprites/ani"

// SpriteURL returns the Showdown sprite of a species id.
func SpriteURL(speciesID string) string {
	if speciesID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s.gif", SpriteBaseURL, speciesID)
}

// Success creates a success embed.
func Success(message, title string) *discordgo.MessageEmbed {
	if title == "" {
		title = "✅ Listo"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       ColorSuggestion,
	}
}

// Error creates an error embed.
func Error(message, title string) *discordgo.MessageEmbed {
	if title == "" {
		title = "❌ Error"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       ColorError,
	}
}

// Info creates an info embed.
func Info(message, title string) *discordgo.MessageEmbed {
	if title == "" {
		title = "ℹ️ Información"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       ColorInfo,
	}
}

// Suggestion renders a suggestion with the action as title and the reason
// as description. The thumbnail is our active Pokémon.
func Suggestion(room, text string, summary *battlelog.BattleSummary) *discordgo.MessageEmbed {
	action, reason := overlay.ParseSuggestion(text)
	if reason == "" {
		reason = "Sin explicación."
	}

	embed := &discordgo.MessageEmbed{
		Title:       "💡 " + action,
		Description: "**Por qué:** " + reason,
		Color:       ColorSuggestion,
		Fields:      summaryFields(summary),
	}
	if room != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: room}
	}
	if summary != nil && summary.OurActive != nil {
		if url := SpriteURL(summary.OurActive.SpeciesID); url != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
		}
	}
	return embed
}

// DataOnly renders a battle summary without suggestion.
func DataOnly(room string, summary *battlelog.BattleSummary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📊 Solo datos",
		Description: overlay.MsgDataOnly,
		Color:       ColorDataOnly,
		Fields:      summaryFields(summary),
	}
	if room != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: room}
	}
	if summary != nil && summary.OpponentActive != nil {
		if url := SpriteURL(summary.OpponentActive.SpeciesID); url != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
		}
	}
	return embed
}

// Settings renders the current settings with keys masked.
func Settings(s storage.Settings) *discordgo.MessageEmbed {
	m := s.Masked()
	orNone := func(v string) string {
		if v == "" {
			return "-"
		}
		return "`" + v + "`"
	}

	return &discordgo.MessageEmbed{
		Title: "⚙️ Ajustes",
		Color: ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Modo", Value: orNone(m.Provider), Inline: true},
			{Name: "Modelo", Value: orNone(m.OpenRouterModel), Inline: true},
			{Name: "Gemini", Value: orNone(m.GeminiAPIKey), Inline: true},
			{Name: "OpenRouter", Value: orNone(m.OpenRouterAPIKey), Inline: true},
		},
	}
}

func summaryFields(summary *battlelog.BattleSummary) []*discordgo.MessageEmbedField {
	if summary == nil {
		return nil
	}

	var fields []*discordgo.MessageEmbedField
	if summary.OurActive != nil {
		value := battlelog.SpeciesName(summary.OurActive.Details)
		if summary.OurActive.Condition != "" {
			value += " (" + summary.OurActive.Condition + ")"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Tu activo", Value: value, Inline: true})
	}
	if summary.OpponentActive != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Rival",
			Value:  battlelog.SpeciesName(summary.OpponentActive.Details),
			Inline: true,
		})
	}
	if len(summary.OurMoves) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Tus movimientos", Value: strings.Join(summary.OurMoves, ", ")})
	}
	if len(summary.OpponentMoves) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Movimientos del rival", Value: strings.Join(summary.OpponentMoves, ", ")})
	}
	return fields
}
