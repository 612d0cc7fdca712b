package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/showdex/internal/data"
	"github.com/showdex/internal/overlay"
	"github.com/showdex/internal/storage"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Request chunks can carry a whole team.
	maxMessageSize = 1 << 20
	// Settings are four short strings.
	maxSettingsSize = 16 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page runs on play.pokemonshowdown.com, never on our origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound message types sent by the page.
const (
	MsgReady     = "ready"
	MsgChunk     = "chunk"
	MsgRefresh   = "refresh"
	MsgDragStart = "drag_start"
	MsgDragMove  = "drag_move"
	MsgDragEnd   = "drag_end"
	MsgGetConfig = "get_config"
	MsgConfig    = "config"
)

// Outbound message types.
const (
	MsgPanel       = "panel"
	MsgInstalled   = "installed"
	MsgConfigState = "config_state"
	MsgError       = "error"
)

type inbound struct {
	Type   string        `json:"type"`
	Data   string        `json:"data,omitempty"`
	X      float64       `json:"x,omitempty"`
	Y      float64       `json:"y,omitempty"`
	Config *overlay.Form `json:"config,omitempty"`
}

type outbound struct {
	Type     string            `json:"type"`
	Panel    *overlay.Snapshot `json:"panel,omitempty"`
	Settings *storage.Settings `json:"settings,omitempty"`
	Models   []data.Model      `json:"models,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// wsClient is one connected battle page.
type wsClient struct {
	server  *Server
	conn    *websocket.Conn
	host    *PageHost
	session *Session
	logger  *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	host := &PageHost{}
	session := s.newSession(s.ctx, host)
	c := &wsClient{
		server:  s,
		conn:    conn,
		host:    host,
		session: session,
		logger:  session.logger.Named("ws"),
		send:    make(chan []byte, 32),
	}

	session.Panel.OnChange(func(snap overlay.Snapshot) {
		c.push(outbound{Type: MsgPanel, Panel: &snap})
	})
	session.onInstalled = func() { c.push(outbound{Type: MsgInstalled}) }
	if !s.register(c) {
		conn.Close()
		session.close()
		return
	}
	c.logger.Info("Page connected", zap.String("remote", r.RemoteAddr))

	snap := session.Panel.Snapshot()
	c.push(outbound{Type: MsgPanel, Panel: &snap})
	session.install()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump()

	s.unregister(c)
	session.Panel.OnChange(nil)
	session.close()
	c.closeSend()
	<-done
	c.logger.Info("Page disconnected")
}

func (c *wsClient) push(msg outbound) {
	raw, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		c.logger.Warn("Send buffer full, dropping message", zap.String("type", msg.Type))
	}
}

func (c *wsClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles page messages until the connection drops.
func (c *wsClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Websocket read error", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug("Ignoring malformed message", zap.Error(err))
			continue
		}
		c.handle(msg)
	}
}

func (c *wsClient) handle(msg inbound) {
	panel := c.session.Panel

	switch msg.Type {
	case MsgReady:
		c.host.Ready()
	case MsgChunk:
		if !c.host.Deliver(msg.Data) {
			c.logger.Debug("Chunk before ready, dropped")
		}
	case MsgRefresh:
		if err := c.session.Refresh(); err != nil {
			c.logger.Debug("Nothing to refresh", zap.Error(err))
		}
	case MsgDragStart:
		panel.DragStart(msg.X, msg.Y)
	case MsgDragMove:
		panel.DragMove(msg.X, msg.Y)
	case MsgDragEnd:
		panel.DragEnd()
	case MsgGetConfig:
		c.pushConfig()
	case MsgConfig:
		if msg.Config == nil {
			c.push(outbound{Type: MsgError, Error: "missing config"})
			return
		}
		store := c.server.deps.Settings
		form := msg.Config.KeepMasked(store.Get())
		if _, err := form.Save(c.session.ctx, store); err != nil {
			c.push(outbound{Type: MsgError, Error: err.Error()})
			return
		}
		c.pushConfig()
	default:
		c.logger.Debug("Unknown message type", zap.String("type", msg.Type))
	}
}

func (c *wsClient) pushConfig() {
	masked := c.server.deps.Settings.Get().Masked()
	c.push(outbound{Type: MsgConfigState, Settings: &masked, Models: data.GetModels()})
}

// writePump pumps queued messages and pings to the page.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
