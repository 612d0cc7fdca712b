// Package bridge forwards intercepted requests to the suggestion service
// and fans the replies out to listeners.
package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/interceptor"
)

// ErrNothingToRefresh is returned by Refresh before any payload was seen.
var ErrNothingToRefresh = errors.New("no request to refresh")

// Messages shown when the transport itself breaks.
const (
	MsgReloaded      = "Extensión recargada. Refresca la página de la batalla (F5)."
	MsgServiceClosed = "El servicio se cerró antes de responder. Refresca la página e inténtalo de nuevo."
)

// Listener is told about every send and its outcome.
type Listener interface {
	RequestSent(room string)
	Reply(reply Reply)
	Error(room, message string)
}

// roomState is what a bridge remembers about one room.
type roomState struct {
	payload  string
	opponent *battlelog.OpponentSummary
}

// Bridge remembers the last request of every room and sends envelopes
// asynchronously. Concurrent sends are not serialised; the last reply to
// arrive wins.
type Bridge struct {
	ctx       context.Context
	transport Transport
	logger    *zap.Logger

	mu        sync.Mutex
	listeners []Listener
	rooms     map[string]*roomState
	lastRoom  string

	wg sync.WaitGroup
}

// New creates a Bridge. Sends in flight are cancelled with ctx.
func New(ctx context.Context, transport Transport, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		ctx:       ctx,
		transport: transport,
		logger:    logger.Named("bridge"),
		rooms:     make(map[string]*roomState),
	}
}

// AddListener registers l for all following sends.
func (b *Bridge) AddListener(l Listener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
}

// Emit forwards an intercepted event. A nil opponent falls back to the last
// one known for the same room.
func (b *Bridge) Emit(ev interceptor.Event) {
	if strings.TrimSpace(ev.Payload) == "" {
		return
	}

	b.mu.Lock()
	st, ok := b.rooms[ev.Room]
	if !ok {
		st = &roomState{}
		b.rooms[ev.Room] = st
	}
	st.payload = ev.Payload
	if ev.Opponent != nil {
		st.opponent = ev.Opponent
	}
	b.lastRoom = ev.Room
	env := NewEnvelope(ev.Room, st.payload, st.opponent)
	b.mu.Unlock()

	b.send(env)
}

// Refresh resends the last payload with the last known opponent of the
// room that emitted most recently.
func (b *Bridge) Refresh() error {
	b.mu.Lock()
	st, ok := b.rooms[b.lastRoom]
	if !ok || st.payload == "" {
		b.mu.Unlock()
		return ErrNothingToRefresh
	}
	env := NewEnvelope(b.lastRoom, st.payload, st.opponent)
	b.mu.Unlock()

	b.send(env)
	return nil
}

// Forget drops what the bridge remembers about room. It is called when a
// new battle starts in the room or the room is left.
func (b *Bridge) Forget(room string) {
	b.mu.Lock()
	delete(b.rooms, room)
	b.mu.Unlock()
}

// LastOpponent returns the last opponent summary seen in the room that
// emitted most recently, if any.
func (b *Bridge) LastOpponent() *battlelog.OpponentSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.rooms[b.lastRoom]; ok {
		return st.opponent
	}
	return nil
}

// Wait blocks until every send in flight has been delivered.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) snapshotListeners() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Listener(nil), b.listeners...)
}

func (b *Bridge) send(env Envelope) {
	for _, l := range b.snapshotListeners() {
		l.RequestSent(env.Room)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		reply, err := b.transport.Send(b.ctx, env)
		listeners := b.snapshotListeners()
		if err != nil {
			msg := NormalizeError(err)
			b.logger.Warn("Send failed", zap.String("id", env.ID), zap.String("room", env.Room), zap.Error(err))
			for _, l := range listeners {
				l.Error(env.Room, msg)
			}
			return
		}

		if reply.Room == "" {
			reply.Room = env.Room
		}
		for _, l := range listeners {
			l.Reply(reply)
		}
	}()
}

// NormalizeError maps transport failures to the text shown to the player.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "context invalidated"):
		return MsgReloaded
	case strings.Contains(lower, "channel closed"),
		strings.Contains(lower, "use of closed network connection"),
		strings.Contains(lower, "connection reset"),
		errors.Is(err, context.Canceled):
		return MsgServiceClosed
	}
	return msg
}
