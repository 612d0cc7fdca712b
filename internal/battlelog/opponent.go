package battlelog

import "strings"

// OpponentSummary is the opponent's active Pokémon as recovered from the log.
type OpponentSummary struct {
	Details   string   `json:"details"`
	SpeciesID string   `json:"speciesId"`
	Moves     []string `json:"moves"`
}

// OpponentPrefix returns the actor slot prefix of the side facing sideID.
func OpponentPrefix(sideID string) string {
	if sideID == "p1" {
		return "p2a:"
	}
	return "p1a:"
}

// SummarizeOpponent scans lines for the side with the given actor prefix.
// The last switch or drag sets the identity; moves are collected once each
// in first-seen order. It returns nil when no switch or drag was seen.
func SummarizeOpponent(lines []string, prefix string) *OpponentSummary {
	var details string
	moves := []string{}
	seen := make(map[string]bool)

	for _, raw := range lines {
		line, ok := ParseLine(raw)
		if !ok || line.Actor == "" || !strings.HasPrefix(line.Actor, prefix) {
			continue
		}
		switch line.Kind {
		case KindSwitch, KindDrag:
			details = line.Detail
		case KindMove:
			if line.Detail != "" && !seen[line.Detail] {
				seen[line.Detail] = true
				moves = append(moves, line.Detail)
			}
		}
	}

	if details == "" {
		return nil
	}
	return &OpponentSummary{
		Details:   details,
		SpeciesID: SpeciesID(details),
		Moves:     moves,
	}
}
