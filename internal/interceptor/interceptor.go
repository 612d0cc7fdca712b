// Package interceptor taps the stream of protocol chunks a host receives,
// keeps a per-battle log and emits an Event whenever the player is asked
// to act.
package interceptor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
)

// Receiver handles one chunk of protocol text.
type Receiver func(data string)

// Event is emitted for every actionable request the player receives.
type Event struct {
	Room     string
	Payload  string
	Opponent *battlelog.OpponentSummary
}

// Interceptor owns the battle log buffers of one host.
type Interceptor struct {
	capacity int
	emit     func(Event)
	logger   *zap.Logger

	mu      sync.Mutex
	buffers map[string]*battlelog.Buffer // room -> log
	onReset func(room string)
}

// New creates an interceptor keeping capacity lines per room and passing
// events to emit.
func New(capacity int, emit func(Event), logger *zap.Logger) *Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{
		capacity: capacity,
		emit:     emit,
		logger:   logger.Named("interceptor"),
		buffers:  make(map[string]*battlelog.Buffer),
	}
}

// Wrap returns a receiver that observes each chunk and then always hands
// it to original, even when observing fails.
func (i *Interceptor) Wrap(original Receiver) Receiver {
	return func(data string) {
		i.safeObserve(data)
		if original != nil {
			original(data)
		}
	}
}

func (i *Interceptor) safeObserve(data string) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Warn("Chunk observation failed", zap.String("panic", fmt.Sprint(r)))
		}
	}()
	i.Observe(data)
}

// OnRoomReset registers fn to be told whenever a room's log is cleared,
// either because a new battle starts in it or because the host left it.
func (i *Interceptor) OnRoomReset(fn func(room string)) {
	i.mu.Lock()
	i.onReset = fn
	i.mu.Unlock()
}

// Observe buffers the chunk's lines and emits an Event when the chunk
// carries a request.
func (i *Interceptor) Observe(data string) {
	ev, ok, reset := i.record(data)
	if reset != nil {
		reset(battlelog.RoomOf(data))
	}
	if ok && i.emit != nil {
		i.emit(ev)
	}
}

// record returns the event to emit, if any, and the reset callback to run
// when the room's log was cleared.
func (i *Interceptor) record(data string) (Event, bool, func(string)) {
	room := battlelog.RoomOf(data)

	i.mu.Lock()
	defer i.mu.Unlock()

	if battlelog.IsRoomEnd(data) {
		delete(i.buffers, room)
		i.logger.Debug("Room closed", zap.String("room", room))
		return Event{}, false, i.onReset
	}

	var reset func(string)
	buf := i.bufferFor(room)
	if battlelog.IsBattleStart(data) {
		buf.Reset()
		reset = i.onReset
	}
	buf.Append(data)

	payload, ok := battlelog.ExtractRequest(data)
	if !ok {
		return Event{}, false, reset
	}

	sideID := battlelog.DefaultSideID
	req, err := battlelog.DecodeRequest(payload)
	switch {
	case err != nil:
		i.logger.Debug("Request payload is not JSON", zap.String("room", room), zap.Error(err))
	case req.IsWait():
		return Event{}, false, reset
	case req.SideID != "":
		sideID = req.SideID
	}

	return Event{
		Room:     room,
		Payload:  payload,
		Opponent: battlelog.SummarizeOpponent(buf.Lines(), battlelog.OpponentPrefix(sideID)),
	}, true, reset
}

// Lines returns a copy of the buffered log for room.
func (i *Interceptor) Lines(room string) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if buf, ok := i.buffers[room]; ok {
		return buf.Lines()
	}
	return nil
}

// Forget drops the log of room, for example when the host leaves it.
func (i *Interceptor) Forget(room string) {
	i.mu.Lock()
	delete(i.buffers, room)
	i.mu.Unlock()
}

// Rooms returns the number of rooms with a buffered log.
func (i *Interceptor) Rooms() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.buffers)
}

func (i *Interceptor) bufferFor(room string) *battlelog.Buffer {
	buf, ok := i.buffers[room]
	if !ok {
		buf = battlelog.NewBuffer(i.capacity)
		i.buffers[room] = buf
	}
	return buf
}
