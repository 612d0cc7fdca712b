package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/showdex/internal/bridge"
	"github.com/showdex/internal/config"
	"github.com/showdex/internal/interceptor"
	"github.com/showdex/internal/overlay"
)

// MsgHostUnavailable is shown when the page never exposed its handler.
const MsgHostUnavailable = "No se encontró la conexión de la batalla. Recarga la página."

// PageHost is the interceptor.Host of a browser page connected over the
// websocket. Its receiver appears once the page reports it is ready.
type PageHost struct {
	mu        sync.RWMutex
	receiver  interceptor.Receiver
	delivered atomic.Int64
}

// Receiver implements interceptor.Host.
func (h *PageHost) Receiver() interceptor.Receiver {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.receiver
}

// SetReceiver implements interceptor.Host.
func (h *PageHost) SetReceiver(r interceptor.Receiver) {
	h.mu.Lock()
	h.receiver = r
	h.mu.Unlock()
}

// Ready installs the page's own handler if none is set yet.
func (h *PageHost) Ready() {
	h.mu.Lock()
	if h.receiver == nil {
		h.receiver = h.count
	}
	h.mu.Unlock()
}

// Deliver hands a chunk to the current receiver. Chunks before Ready are
// dropped, like messages reaching a page that has not loaded.
func (h *PageHost) Deliver(chunk string) bool {
	r := h.Receiver()
	if r == nil {
		return false
	}
	r(chunk)
	return true
}

// Delivered is the number of chunks the page's handler received.
func (h *PageHost) Delivered() int64 {
	return h.delivered.Load()
}

func (h *PageHost) count(string) {
	h.delivered.Add(1)
}

// Session ties one host to its interceptor, bridge and panel.
type Session struct {
	ID    string
	Host  interceptor.Host
	Panel *overlay.Panel

	server      *Server
	interceptor *interceptor.Interceptor
	bridge      *bridge.Bridge
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *zap.Logger

	// onInstalled runs once the interceptor wraps the host.
	onInstalled func()
}

func (s *Server) newSession(ctx context.Context, host interceptor.Host) *Session {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))

	sess := &Session{
		ID:     id,
		Host:   host,
		Panel:  overlay.NewPanel(),
		server: s,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	sess.bridge = bridge.New(ctx, s.deps.Transport, logger)
	sess.bridge.AddListener(sess.Panel)
	sess.bridge.AddListener(cosmeticsListener{sess})
	for _, l := range s.deps.Listeners {
		sess.bridge.AddListener(l)
	}

	sess.interceptor = interceptor.New(s.deps.LogCapacity, sess.emit, logger)
	sess.interceptor.OnRoomReset(sess.bridge.Forget)
	return sess
}

// install wraps the host's receiver in the background.
func (sess *Session) install() {
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		err := interceptor.Install(sess.ctx, sess.Host, sess.interceptor, sess.server.deps.Install)
		switch {
		case err == nil:
			sess.logger.Debug("Interceptor installed")
			if sess.onInstalled != nil {
				sess.onInstalled()
			}
		case errors.Is(err, interceptor.ErrHostUnavailable):
			sess.logger.Warn("Host never became ready")
			sess.Panel.Error("", MsgHostUnavailable)
		}
	}()
}

func (sess *Session) emit(ev interceptor.Event) {
	sess.server.markActive(sess)
	sess.syncMode()
	sess.bridge.Emit(ev)
}

// Refresh resends the last request of this session. Without one the
// panel falls back to showing no battle data.
func (sess *Session) Refresh() error {
	sess.syncMode()
	sess.Panel.Refresh()
	err := sess.bridge.Refresh()
	if errors.Is(err, bridge.ErrNothingToRefresh) {
		sess.Panel.Reply(bridge.Reply{})
	}
	return err
}

func (sess *Session) syncMode() {
	settings := sess.server.deps.Settings.Get()
	sess.Panel.SetDataOnly(settings.Provider == config.ProviderNone)
}

func (sess *Session) close() {
	sess.cancel()
	sess.bridge.Wait()
	sess.wg.Wait()
}

// cosmeticsListener fetches sprites for every reply carrying a summary.
type cosmeticsListener struct {
	sess *Session
}

func (c cosmeticsListener) RequestSent(string) {}

func (c cosmeticsListener) Error(string, string) {}

func (c cosmeticsListener) Reply(r bridge.Reply) {
	species := c.sess.server.deps.Species
	if r.BattleSummary == nil || r.Error != "" || species == nil {
		return
	}

	c.sess.wg.Add(1)
	go func() {
		defer c.sess.wg.Done()
		cosmetics := overlay.Decorate(c.sess.ctx, species, r.BattleSummary, c.sess.logger)
		c.sess.Panel.SetCosmetics(r.BattleSummary, cosmetics)
	}()
}
