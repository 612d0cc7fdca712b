// Package showdown is a minimal Pokémon Showdown websocket client. It
// exposes its message handler as a replaceable receiver so the battle log
// interceptor can wrap it.
package showdown

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/showdex/internal/interceptor"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 << 20
)

// ErrNotConnected is returned by Send before Connect.
var ErrNotConnected = errors.New("showdown client not connected")

// Options configures a Client.
type Options struct {
	ServerURL string
	LoginURL  string
	User      string
	Pass      string
	Rooms     []string
}

// Client holds one connection to a Showdown server.
type Client struct {
	opts       Options
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu       sync.RWMutex
	receiver interceptor.Receiver
	conn     *websocket.Conn
	ctx      context.Context
	joined   bool

	writeMu sync.Mutex
}

var _ interceptor.Host = (*Client)(nil)

// NewClient creates a client whose receiver handles login and auto-join.
func NewClient(opts Options, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		opts:       opts,
		httpClient: httpClient,
		dialer:     websocket.DefaultDialer,
		logger:     logger.Named("showdown"),
		ctx:        context.Background(),
	}
	c.receiver = c.handle
	return c
}

// Receiver implements interceptor.Host.
func (c *Client) Receiver() interceptor.Receiver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.receiver
}

// SetReceiver implements interceptor.Host.
func (c *Client) SetReceiver(r interceptor.Receiver) {
	c.mu.Lock()
	c.receiver = r
	c.mu.Unlock()
}

// Connect dials the server.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.opts.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.opts.ServerURL, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	c.conn = conn
	c.joined = false
	c.mu.Unlock()

	c.logger.Info("Connected to Showdown", zap.String("url", c.opts.ServerURL))
	return nil
}

// Run reads messages and hands each to the current receiver until ctx ends
// or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.ctx = ctx
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("showdown read failed: %w", err)
		}

		if receive := c.Receiver(); receive != nil {
			receive(string(message))
		}
	}
}

// Send writes one command to room; an empty room targets the lobby.
func (c *Client) Send(room, message string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(room+"|"+message))
}

// Join enters a room.
func (c *Client) Join(room string) error {
	return c.Send("", "/join "+room)
}

// Close sends a close frame and drops the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return conn.Close()
}

// handle is the client's own receiver: global login and room messages.
func (c *Client) handle(data string) {
	for _, line := range strings.Split(data, "\n") {
		switch {
		case strings.HasPrefix(line, "|challstr|"):
			c.login(strings.TrimPrefix(line, "|challstr|"))
		case strings.HasPrefix(line, "|updateuser|"):
			c.onUpdateUser(line)
		case strings.HasPrefix(line, "|popup|"):
			c.logger.Info("Server popup", zap.String("text", strings.TrimPrefix(line, "|popup|")))
		}
	}
}

func (c *Client) login(challstr string) {
	if c.opts.User == "" {
		return
	}

	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()

	assertion, err := c.assertion(ctx, challstr)
	if err != nil {
		c.logger.Error("Showdown login failed", zap.String("user", c.opts.User), zap.Error(err))
		return
	}
	if err := c.Send("", fmt.Sprintf("/trn %s,0,%s", c.opts.User, assertion)); err != nil {
		c.logger.Error("Failed to send /trn", zap.Error(err))
	}
}

// onUpdateUser joins the configured rooms once the name is registered.
// Format: |updateuser| NAME|NAMED|AVATAR|SETTINGS
func (c *Client) onUpdateUser(line string) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 || parts[3] != "1" {
		return
	}

	c.mu.Lock()
	already := c.joined
	c.joined = true
	c.mu.Unlock()
	if already {
		return
	}

	c.logger.Info("Logged in to Showdown", zap.String("user", strings.TrimSpace(parts[2])))
	for _, room := range c.opts.Rooms {
		if err := c.Join(room); err != nil {
			c.logger.Warn("Failed to join room", zap.String("room", room), zap.Error(err))
		}
	}
}
