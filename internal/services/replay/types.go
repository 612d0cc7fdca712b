// Package replay imports Showdown replay pages for offline analysis.
package replay

import "github.com/showdex/internal/battlelog"

// Replay is a downloaded battle log.
type Replay struct {
	URL   string   `json:"url"`
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// TurnSummary is what the opponent had shown by the start of a turn.
type TurnSummary struct {
	Turn     int                        `json:"turn"`
	Opponent *battlelog.OpponentSummary `json:"opponent"`
}
