package bridge

import (
	"github.com/google/uuid"

	"github.com/showdex/internal/battlelog"
)

// KindShowdownRequest is the only envelope kind.
const KindShowdownRequest = "showdown_request"

// Envelope carries one request payload from the page side to the
// suggestion service.
type Envelope struct {
	ID       string                     `json:"id"`
	Kind     string                     `json:"type"`
	Room     string                     `json:"room,omitempty"`
	Payload  string                     `json:"payload"`
	Opponent *battlelog.OpponentSummary `json:"opponentSummary,omitempty"`
}

// NewEnvelope builds an envelope with a fresh id.
func NewEnvelope(room, payload string, opponent *battlelog.OpponentSummary) Envelope {
	return Envelope{
		ID:       uuid.NewString(),
		Kind:     KindShowdownRequest,
		Room:     room,
		Payload:  payload,
		Opponent: opponent,
	}
}

// Reply is the answer to an Envelope. Suggestion, BattleSummary and Error
// are each optional; a reply with none of them means no battle data.
type Reply struct {
	ID            string                   `json:"id"`
	Room          string                   `json:"room,omitempty"`
	Suggestion    string                   `json:"suggestion,omitempty"`
	BattleSummary *battlelog.BattleSummary `json:"battleSummary,omitempty"`
	Provider      string                   `json:"provider,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// Empty reports a reply with no suggestion, summary or error.
func (r Reply) Empty() bool {
	return r.Suggestion == "" && r.BattleSummary == nil && r.Error == ""
}
