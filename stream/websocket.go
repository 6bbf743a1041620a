package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The demo UI may be served from another origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to Conn.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(c *websocket.Conn) *wsConn {
	c.SetReadLimit(maxMessageSize)
	return &wsConn{conn: c}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// Handler upgrades requests and runs one Session per connection.
type Handler struct {
	cfg Config
	ctx context.Context
}

// NewHandler creates a WebSocket endpoint. Sessions end when ctx is done.
func NewHandler(ctx context.Context, cfg Config) *Handler {
	return &Handler{cfg: cfg.withDefaults(), ctx: ctx}
}

// Path returns the mount path of the handler's protocol.
func (h *Handler) Path() string { return h.cfg.Protocol.Path }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := NewSession(uuid.NewString(), newWSConn(c), h.cfg)
	sess.remote = r.RemoteAddr
	h.cfg.Logger.Info("Stream opened", "session", sess.id, "path", h.cfg.Protocol.Path, "remote", r.RemoteAddr)

	if err := sess.Run(h.ctx); err != nil {
		h.cfg.Logger.Warn("Stream ended with error", "session", sess.id, "error", err)
		return
	}
	h.cfg.Logger.Info("Stream closed", "session", sess.id, "duration", time.Since(sess.started).Truncate(time.Millisecond))
}
