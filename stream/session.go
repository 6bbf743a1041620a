// Package stream implements the subscribe-and-push protocol that carries
// live entries to browsers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/live"
)

// DefaultReceiveTimeout bounds each receive attempt, and so the push cadence.
const DefaultReceiveTimeout = 250 * time.Millisecond

const (
	typeSubscribe  = "subscribe"
	typeSubscribed = "subscribed"
)

// Protocol names the path and wire fields of one deployment profile.
type Protocol struct {
	Path     string
	Field    string
	PushType string
}

var (
	CarouselProtocol = Protocol{Path: "/ws/live", Field: "item_ids", PushType: "update"}
	TickerProtocol   = Protocol{Path: "/ws/prices", Field: "symbols", PushType: "tick"}
)

// ProtocolFor returns the protocol served by a profile.
func ProtocolFor(p catalog.Profile) Protocol {
	if p == catalog.ProfileTicker {
		return TickerProtocol
	}
	return CarouselProtocol
}

// Conn is the part of a WebSocket connection a session needs.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Config is shared by every session of one endpoint.
type Config struct {
	Store          *live.Store
	Protocol       Protocol
	ReceiveTimeout time.Duration
	Registry       *Registry
	Logger         *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.Protocol.Field == "" {
		c.Protocol = CarouselProtocol
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Session is one connection's subscription state machine.
type Session struct {
	id      string
	conn    Conn
	cfg     Config
	subs    []string
	remote  string
	started time.Time
}

// NewSession wraps conn. The session owns conn and closes it when Run ends.
func NewSession(id string, conn Conn, cfg Config) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		cfg:     cfg.withDefaults(),
		subs:    []string{},
		started: time.Now(),
	}
}

// Run loops receive-or-timeout, then push, until the peer goes away or ctx
// ends. A closed connection is not an error.
func (s *Session) Run(ctx context.Context) error {
	if s.cfg.Registry != nil {
		s.cfg.Registry.add(s)
		defer s.cfg.Registry.remove(s.id)
	}

	done := make(chan struct{})
	msgs := make(chan []byte)
	readErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.readLoop(msgs, readErr, done)
	}()
	defer func() {
		close(done)
		s.conn.Close()
		wg.Wait()
	}()

	timer := time.NewTimer(s.cfg.ReceiveTimeout)
	defer timer.Stop()

	for {
		timer.Reset(s.cfg.ReceiveTimeout)
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return closeError(err)
		case data := <-msgs:
			if err := s.handle(data); err != nil {
				return closeError(err)
			}
		case <-timer.C:
		}

		if len(s.subs) == 0 {
			continue
		}
		if err := s.push(); err != nil {
			return closeError(err)
		}
	}
}

func (s *Session) readLoop(msgs chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case msgs <- data:
		case <-done:
			return
		}
	}
}

// handle applies one inbound message. Malformed or unknown messages are
// dropped; only write failures are returned.
func (s *Session) handle(data []byte) error {
	ids, ok := s.parseSubscribe(data)
	if !ok {
		s.cfg.Logger.Debug("Ignoring stream message", "session", s.id, "bytes", len(data))
		return nil
	}

	s.subs = s.cfg.Store.Filter(ids)
	if s.cfg.Registry != nil {
		s.cfg.Registry.setSubscriptions(s.id, s.subs)
	}
	s.cfg.Logger.Debug("Stream subscribed", "session", s.id, "requested", len(ids), "accepted", len(s.subs))

	msg := map[string]any{"type": typeSubscribed}
	msg[s.cfg.Protocol.Field] = s.subs
	return s.conn.WriteJSON(msg)
}

func (s *Session) parseSubscribe(data []byte) ([]string, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false
	}
	var typ string
	if err := json.Unmarshal(raw["type"], &typ); err != nil || typ != typeSubscribe {
		return nil, false
	}
	var ids []string
	if field, ok := raw[s.cfg.Protocol.Field]; ok {
		if err := json.Unmarshal(field, &ids); err != nil {
			return nil, false
		}
	}
	return ids, true
}

func (s *Session) push() error {
	snap := s.cfg.Store.Snapshot(s.subs)
	if err := s.conn.WriteJSON(map[string]any{
		"type": s.cfg.Protocol.PushType,
		"data": snap,
	}); err != nil {
		return err
	}
	if s.cfg.Registry != nil {
		s.cfg.Registry.observePush(s.id, s.cfg.Protocol.PushType)
	}
	return nil
}

// closeError maps the ways a peer can go away to nil and wraps the rest.
func closeError(err error) error {
	if isClosed(err) {
		return nil
	}
	return fmt.Errorf("stream: %w", err)
}

func isClosed(err error) bool {
	if err == nil {
		return true
	}
	var ce *websocket.CloseError
	return errors.As(err, &ce) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, websocket.ErrCloseSent)
}
