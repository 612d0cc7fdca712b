// Package overlay holds the state of the in-battle suggestion panel.
package overlay

import (
	"sync"
	"time"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/bridge"
	"github.com/showdex/internal/services/pokeapi"
)

// Status is the panel's display state.
type Status string

// Panel states.
const (
	StatusIdle       Status = "idle"
	StatusLoading    Status = "loading"
	StatusSuggestion Status = "suggestion"
	StatusError      Status = "error"
	StatusDataOnly   Status = "data-only"
)

// Texts shown in the panel body.
const (
	MsgAnalyzing    = "Analizando batalla..."
	MsgLoadingData  = "Cargando datos..."
	MsgWaiting      = "Esperando tu turno en la batalla..."
	MsgDataOnly     = "Modo solo datos: sin sugerencia de IA."
	MsgNoBattleData = "Sin datos de batalla."
	MsgConnection   = "Error de conexión con el servicio."
)

// Snapshot is the full panel state sent to the page.
type Snapshot struct {
	Status     Status                   `json:"status"`
	Room       string                   `json:"room,omitempty"`
	Message    string                   `json:"message,omitempty"`
	Suggestion string                   `json:"suggestion,omitempty"`
	Action     string                   `json:"action,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Provider   string                   `json:"provider,omitempty"`
	Summary    *battlelog.BattleSummary `json:"battleSummary,omitempty"`
	Ours       *pokeapi.Species         `json:"ours,omitempty"`
	Opponent   *pokeapi.Species         `json:"opponent,omitempty"`
	Weaknesses []string                 `json:"weaknesses,omitempty"`
	Position   Position                 `json:"position"`
	Dragging   bool                     `json:"dragging"`
	UpdatedAt  time.Time                `json:"updatedAt"`
}

// Panel is the overlay state of one battle page. It implements
// bridge.Listener; every change is reported to the OnChange callback.
type Panel struct {
	mu       sync.Mutex
	state    Snapshot
	dataOnly bool
	drag     dragState
	onChange func(Snapshot)
	now      func() time.Time
}

var _ bridge.Listener = (*Panel)(nil)

// NewPanel creates an idle panel at the default position.
func NewPanel() *Panel {
	p := &Panel{now: time.Now}
	p.state = Snapshot{
		Status:   StatusIdle,
		Message:  MsgWaiting,
		Position: DefaultPosition,
	}
	return p
}

// OnChange sets the callback receiving every new snapshot.
func (p *Panel) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SetDataOnly tells the panel whether the AI is disabled, which changes the
// loading and empty texts.
func (p *Panel) SetDataOnly(dataOnly bool) {
	p.mu.Lock()
	p.dataOnly = dataOnly
	p.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// RequestSent implements bridge.Listener.
func (p *Panel) RequestSent(room string) {
	p.update(func(s *Snapshot) {
		s.Status = StatusLoading
		s.Room = room
		s.Error = ""
		s.Message = MsgAnalyzing
		if p.dataOnly {
			s.Message = MsgLoadingData
		}
	})
}

// Refresh puts the panel into loading for a user-triggered resend.
func (p *Panel) Refresh() {
	p.mu.Lock()
	room := p.state.Room
	p.mu.Unlock()
	p.RequestSent(room)
}

// Reply implements bridge.Listener.
func (p *Panel) Reply(r bridge.Reply) {
	p.update(func(s *Snapshot) {
		if r.Room != "" {
			s.Room = r.Room
		}
		s.Provider = r.Provider

		switch {
		case r.Error != "":
			s.Status = StatusError
			s.Error = r.Error
			s.Message = ""
			clearResult(s)
		case r.Suggestion != "":
			s.Status = StatusSuggestion
			s.Error = ""
			s.Message = ""
			s.Suggestion = r.Suggestion
			s.Action, s.Reason = ParseSuggestion(r.Suggestion)
			setSummary(s, r.BattleSummary)
		case r.BattleSummary != nil:
			s.Status = StatusDataOnly
			s.Error = ""
			s.Message = MsgDataOnly
			s.Suggestion, s.Action, s.Reason = "", "", ""
			setSummary(s, r.BattleSummary)
		default:
			s.Status = StatusIdle
			s.Error = ""
			s.Message = MsgNoBattleData
			clearResult(s)
		}
	})
}

// Error implements bridge.Listener.
func (p *Panel) Error(room, message string) {
	if message == "" {
		message = MsgConnection
	}
	p.update(func(s *Snapshot) {
		if room != "" {
			s.Room = room
		}
		s.Status = StatusError
		s.Error = message
		s.Message = ""
		s.Suggestion, s.Action, s.Reason = "", "", ""
	})
}

// SetCosmetics attaches sprites and weaknesses fetched for summary. They
// are dropped when the panel already shows another summary.
func (p *Panel) SetCosmetics(summary *battlelog.BattleSummary, c Cosmetics) {
	p.update(func(s *Snapshot) {
		if s.Summary != summary {
			return
		}
		s.Ours = c.Ours
		s.Opponent = c.Opponent
		s.Weaknesses = c.Weaknesses
	})
}

func (p *Panel) update(fn func(s *Snapshot)) {
	p.mu.Lock()
	fn(&p.state)
	p.state.UpdatedAt = p.now()
	snap := p.snapshotLocked()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

func (p *Panel) snapshotLocked() Snapshot {
	snap := p.state
	snap.Dragging = p.drag.active
	return snap
}

func setSummary(s *Snapshot, summary *battlelog.BattleSummary) {
	if s.Summary != summary {
		s.Ours, s.Opponent, s.Weaknesses = nil, nil, nil
	}
	s.Summary = summary
}

func clearResult(s *Snapshot) {
	s.Suggestion, s.Action, s.Reason = "", "", ""
	s.Summary = nil
	s.Ours, s.Opponent, s.Weaknesses = nil, nil, nil
}
