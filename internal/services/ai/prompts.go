// Package ai provides system prompts for battle suggestions.
package ai

import (
	"strings"

	"github.com/showdex/internal/battlelog"
)

// SystemPrompt is the fixed instruction sent with every suggestion request.
const SystemPrompt = `Eres un experto en batallas competitivas de Pokémon (formato Showdown).
Analiza el JSON de estado de batalla y responde SIEMPRE en este formato exacto y breve (en español):

1. Una sola línea con la acción, usando exactamente una de estas frases:
   - "Atacar: [nombre del movimiento]" (si la mejor opción es un ataque)
   - "Usar: [nombre del movimiento]" (si es un movimiento de apoyo/estado)
   - "Cambiar a: [nombre del Pokémon]" (si la mejor opción es cambiar de Pokémon)

2. Una segunda línea que empiece por "Por qué: " y en una sola frase corta expliques la razón (tipos, ventaja, o riesgo principal).

No añadas párrafos largos, listas numeradas ni código. Solo esas dos líneas. Responde completo sin cortarte a mitad de frase.`

const (
	userPromptPrefix = "Estado de batalla (JSON):\n\n"
	userPromptSuffix = "\n\nResponde en exactamente dos líneas: (1) Atacar/Usar/Cambiar a [nombre], (2) Por qué: [una frase]. No te cortes; mantén la respuesta corta y completa."
)

// BuildUserPrompt embeds the raw request payload and, when known, the
// opponent's active species and the moves it has shown.
func BuildUserPrompt(payload string, opponent *battlelog.OpponentSummary) string {
	var sb strings.Builder

	sb.WriteString(userPromptPrefix)
	sb.WriteString(payload)

	if opponent != nil && (opponent.Details != "" || len(opponent.Moves) > 0) {
		rival := "desconocido"
		if opponent.Details != "" {
			rival = battlelog.SpeciesName(opponent.Details)
		}
		moves := "ninguno visto aún"
		if len(opponent.Moves) > 0 {
			moves = strings.Join(opponent.Moves, ", ")
		}
		sb.WriteString("\n\nRival activo: ")
		sb.WriteString(rival)
		sb.WriteString(". Movimientos que ha usado hasta ahora: ")
		sb.WriteString(moves)
		sb.WriteString(".")
	}

	sb.WriteString(userPromptSuffix)
	return sb.String()
}
