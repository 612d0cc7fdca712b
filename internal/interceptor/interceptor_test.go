package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

const room = ">battle-gen9ou-42\n"

func TestObserve_EmitsOpponentSummaryOnRequest(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, zap.NewNop())

	ic.Observe(room + "|switch|p2a: Noivern|Noivern, M|100/100\n|move|p2a: Noivern|Hurricane|p1a: Ferrothorn")
	ic.Observe(room + `|request|{"side":{"id":"p1","pokemon":[{"details":"Ferrothorn, M","active":true}]}}`)

	events := rec.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "battle-gen9ou-42", ev.Room)
	assert.JSONEq(t, `{"side":{"id":"p1","pokemon":[{"details":"Ferrothorn, M","active":true}]}}`, ev.Payload)
	require.NotNil(t, ev.Opponent)
	assert.Equal(t, "Noivern, M", ev.Opponent.Details)
	assert.Equal(t, "noivern", ev.Opponent.SpeciesID)
	assert.Equal(t, []string{"Hurricane"}, ev.Opponent.Moves)
}

func TestObserve_MalformedPayloadDefaultsToP2(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, nil)

	// side defaults to p2, so the opponent is p1
	ic.Observe(room + "|switch|p1a: Garchomp|Garchomp, F|100/100\n|switch|p2a: Rotom|Rotom-Wash|100/100")
	ic.Observe(room + "|request|{broken")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "{broken", events[0].Payload)
	require.NotNil(t, events[0].Opponent)
	assert.Equal(t, "garchomp", events[0].Opponent.SpeciesID)
}

func TestObserve_WaitRequestIsNotEmitted(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, nil)

	ic.Observe(room + `|request|{"requestType":"wait","side":{"id":"p1"}}`)
	ic.Observe(room + `|request|{"wait":true,"side":{"id":"p1"}}`)

	assert.Empty(t, rec.all())
}

func TestObserve_NoSwitchGivesNilOpponent(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, nil)

	ic.Observe(room + "|move|p2a: Noivern|Hurricane|p1a: Ferrothorn")
	ic.Observe(room + `|request|{"side":{"id":"p1"}}`)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Opponent)
}

func TestObserve_RoomsAreIsolatedAndResetOnInit(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, nil)

	ic.Observe(">battle-a\n|switch|p2a: Noivern|Noivern, M|100/100")
	ic.Observe(">battle-b\n|init|battle\n|title|x vs. y")
	ic.Observe(">battle-b\n" + `|request|{"side":{"id":"p1"}}`)
	require.Len(t, rec.all(), 1)
	assert.Nil(t, rec.all()[0].Opponent, "battle-b must not see battle-a's log")

	ic.Observe(">battle-a\n|init|battle")
	ic.Observe(">battle-a\n" + `|request|{"side":{"id":"p1"}}`)
	require.Len(t, rec.all(), 2)
	assert.Nil(t, rec.all()[1].Opponent, "a new battle starts with an empty log")
}

func TestObserve_DeinitReleasesRoom(t *testing.T) {
	rec := &recorder{}
	ic := New(100, rec.emit, nil)
	var resets []string
	ic.OnRoomReset(func(room string) { resets = append(resets, room) })

	ic.Observe(">battle-x\n|switch|p2a: Noivern|Noivern, M|100/100")
	ic.Observe(">battle-y\n|init|battle")
	require.Equal(t, 2, ic.Rooms())

	ic.Observe(">battle-x\n|deinit")
	assert.Equal(t, 1, ic.Rooms())
	assert.Nil(t, ic.Lines("battle-x"))
	assert.Equal(t, []string{"battle-y", "battle-x"}, resets)
	assert.Empty(t, rec.all())

	ic.Observe(">battle-x\n" + `|request|{"side":{"id":"p1"}}`)
	require.Len(t, rec.all(), 1)
	assert.Nil(t, rec.all()[0].Opponent, "a closed room keeps nothing")
}

func TestObserve_BufferStaysBounded(t *testing.T) {
	ic := New(5, nil, nil)
	for i := 0; i < 20; i++ {
		ic.Observe(room + "|turn|1\n|upkeep")
	}
	assert.Len(t, ic.Lines("battle-gen9ou-42"), 5)

	ic.Forget("battle-gen9ou-42")
	assert.Nil(t, ic.Lines("battle-gen9ou-42"))
}

func TestWrap_AlwaysCallsOriginal(t *testing.T) {
	panicky := New(10, func(Event) { panic("emit exploded") }, zap.NewNop())

	var got []string
	recv := panicky.Wrap(func(data string) { got = append(got, data) })

	chunk := room + `|request|{"side":{"id":"p1"}}`
	assert.NotPanics(t, func() { recv(chunk) })
	assert.NotPanics(t, func() { recv("|turn|2") })
	assert.Equal(t, []string{chunk, "|turn|2"}, got)
}

type fakeHost struct {
	mu   sync.Mutex
	recv Receiver
}

func (h *fakeHost) Receiver() Receiver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recv
}

func (h *fakeHost) SetReceiver(r Receiver) {
	h.mu.Lock()
	h.recv = r
	h.mu.Unlock()
}

func TestInstall_Immediate(t *testing.T) {
	rec := &recorder{}
	var original []string
	host := &fakeHost{recv: func(d string) { original = append(original, d) }}

	err := Install(context.Background(), host, New(10, rec.emit, nil), DefaultInstallOptions)
	require.NoError(t, err)

	host.Receiver()(room + `|request|{"side":{"id":"p2"}}`)
	assert.Len(t, rec.all(), 1)
	assert.Len(t, original, 1)
}

func TestInstall_WaitsForHost(t *testing.T) {
	host := &fakeHost{}
	go func() {
		time.Sleep(30 * time.Millisecond)
		host.SetReceiver(func(string) {})
	}()

	err := Install(context.Background(), host, New(10, nil, nil), InstallOptions{
		Timeout:      2 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
}

func TestInstall_TimesOut(t *testing.T) {
	err := Install(context.Background(), &fakeHost{}, New(10, nil, nil), InstallOptions{
		Timeout:      20 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrHostUnavailable)
}

func TestInstall_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Install(ctx, &fakeHost{}, New(10, nil, nil), InstallOptions{Timeout: time.Minute, PollInterval: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}
