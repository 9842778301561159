// Package ws maintains the push channel to the Wetty backend: one live
// WebSocket connection per client, a fixed-interval heartbeat, and a single
// pending reconnect. Inbound message frames are normalized and reconciled
// into the state container; malformed frames are dropped without effect.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"Wetty/pkg/core"
	"Wetty/pkg/models"
	"Wetty/pkg/normalize"
	"Wetty/pkg/store"
)

const (
	// DefaultPingInterval is how often a ping frame is written while the
	// socket is open.
	DefaultPingInterval = 10 * time.Second
	// DefaultReconnectDelay is the fixed delay before a reconnect attempt.
	// Reconnection is unconditional and indefinite; availability wins over
	// thundering-herd protection at this client's fan-out.
	DefaultReconnectDelay = 5 * time.Second

	wsPath = "/_api/ws"
)

var pingFrame = []byte(`{"type":"ping"}`)

// ErrClosed is returned by Connect after Close has shut the connector down.
var ErrClosed = errors.New("ws: connector closed")

// State is the connector's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Stats are cumulative connector counters.
type Stats struct {
	FramesReceived int64
	FramesDropped  int64
	Reconnects     int64
}

// Config configures a Connector.
type Config struct {
	// BaseURL is the backend origin, http(s) or ws(s) scheme.
	BaseURL string
	// UID identifies the connecting user on the push channel.
	UID int
	// Store receives reconciled deliveries and the connectivity flag.
	Store *store.Store
	// Logger for connection lifecycle and dropped frames.
	Logger zerolog.Logger
	// PingInterval and ReconnectDelay override the defaults (for tests).
	PingInterval   time.Duration
	ReconnectDelay time.Duration
}

// Connector owns the push-channel socket and its heartbeat and reconnect
// timers. Connect is idempotent: an active connection is torn down first.
type Connector struct {
	cfg    Config
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	sessionDone    chan struct{}
	reconnectTimer *time.Timer
	state          State
	closed         bool

	events chan core.Event

	framesReceived atomic.Int64
	framesDropped  atomic.Int64
	reconnects     atomic.Int64
}

// NewConnector builds a connector for the given backend. It does not dial;
// call Connect.
func NewConnector(cfg Config) (*Connector, error) {
	if cfg.Store == nil {
		return nil, errors.New("ws: config requires a store")
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ws: invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("ws: unsupported scheme %q", u.Scheme)
	}
	u.Path = wsPath
	u.RawQuery = url.Values{"uid": {fmt.Sprint(cfg.UID)}}.Encode()

	return &Connector{
		cfg:    cfg,
		url:    u.String(),
		dialer: websocket.DefaultDialer,
		log:    cfg.Logger.With().Str("component", "ws").Logger(),
		events: make(chan core.Event, 64),
	}, nil
}

// Events returns the connector's event stream. Emission is non-blocking; a
// slow consumer loses events, never stalls the socket.
func (c *Connector) Events() <-chan core.Event {
	return c.events
}

// State returns the current connection state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns cumulative counters.
func (c *Connector) Stats() Stats {
	return Stats{
		FramesReceived: c.framesReceived.Load(),
		FramesDropped:  c.framesDropped.Load(),
		Reconnects:     c.reconnects.Load(),
	}
}

// Connect opens the push channel, tearing down any previous socket and
// cancelling a pending reconnect first. On dial failure the reconnect timer
// is armed and the error returned.
func (c *Connector) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.clearReconnectLocked()
	c.teardownLocked()
	c.state = StateConnecting
	c.mu.Unlock()

	conn, resp, err := c.dialer.Dial(c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("dial failed")
		c.mu.Lock()
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.cfg.Store.SetConnected(false)
		c.emit(core.ConnectionEvent{Connected: false})
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	// A racing Connect may have installed a socket while we were dialing.
	c.teardownLocked()
	done := make(chan struct{})
	c.conn = conn
	c.sessionDone = done
	c.state = StateConnected
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("connected")
	c.cfg.Store.SetConnected(true)
	c.emit(core.ConnectionEvent{Connected: true})

	go c.pingLoop(conn, done)
	go c.readLoop(conn)
	return nil
}

// Close shuts the connector down for good: no further reconnects.
func (c *Connector) Close() {
	c.mu.Lock()
	c.closed = true
	c.clearReconnectLocked()
	c.teardownLocked()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.cfg.Store.SetConnected(false)
}

// teardownLocked closes the current socket and stops its heartbeat.
func (c *Connector) teardownLocked() {
	if c.sessionDone != nil {
		close(c.sessionDone)
		c.sessionDone = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Connector) clearReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// scheduleReconnectLocked arms the reconnect timer unless one is already
// pending or the connector is closed.
func (c *Connector) scheduleReconnectLocked() {
	if c.closed || c.reconnectTimer != nil {
		return
	}
	c.reconnects.Inc()
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if err := c.Connect(); err != nil && !errors.Is(err, ErrClosed) {
			c.log.Warn().Err(err).Msg("reconnect failed")
		}
	})
}

// markDisconnected handles error/close of a specific socket. Stale callbacks
// from an already-replaced session are ignored, so each closure tears down
// and schedules at most once.
func (c *Connector) markDisconnected(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.state = StateDisconnected
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.log.Info().Msg("disconnected")
	c.cfg.Store.SetConnected(false)
	c.emit(core.ConnectionEvent{Connected: false})
}

func (c *Connector) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				c.markDisconnected(conn)
				return
			}
		}
	}
}

func (c *Connector) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.markDisconnected(conn)
			return
		}
		if msgType != websocket.TextMessage {
			c.framesDropped.Inc()
			continue
		}
		c.handleFrame(data)
	}
}

// handleFrame parses one inbound text frame. Anything that is not a valid
// {type, payload} envelope is dropped; nothing here may panic or propagate.
func (c *Connector) handleFrame(data []byte) {
	c.framesReceived.Inc()

	var frame struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		c.framesDropped.Inc()
		return
	}
	switch frame.Type {
	case "pong":
		// Heartbeat acknowledged; no state change.
	case "message":
		if frame.Payload == nil {
			c.framesDropped.Inc()
			return
		}
		msg := normalize.Message(frame.Payload)
		if msg == nil {
			c.framesDropped.Inc()
			return
		}
		c.reconcile(*msg)
	default:
		c.framesDropped.Inc()
	}
}

// reconcile applies the live-delivery algorithm: a delivery matching a
// pending optimistic entry confirms it in place; one matching nothing is a
// new message; anything else is a duplicate and dropped. The confirmation
// check runs before the duplicate check so a just-sent message folds into its
// placeholder instead of appending twice. Token comparisons skip empty
// tokens: server-originated messages carry none.
func (c *Connector) reconcile(msg models.Message) {
	all := c.cfg.Store.AllMessagesForChat(msg.ChatID)

	if msg.ClientGeneratedID != "" {
		for _, m := range all {
			if m.ClientGeneratedID == msg.ClientGeneratedID && m.IsPending() {
				c.cfg.Store.ConfirmPendingMessage(msg.ChatID, msg.ClientGeneratedID, msg)
				c.emit(core.ConfirmedEvent{
					ChatID:            msg.ChatID,
					ClientGeneratedID: msg.ClientGeneratedID,
					Message:           msg,
				})
				return
			}
		}
	}

	for _, m := range all {
		if m.ID == msg.ID || (msg.ClientGeneratedID != "" && m.ClientGeneratedID == msg.ClientGeneratedID) {
			// Duplicate delivery of an already-known message.
			return
		}
	}

	c.cfg.Store.AddMessage(msg.ChatID, msg)
	c.emit(core.MessageEvent{Message: msg})
}

func (c *Connector) emit(ev core.Event) {
	select {
	case c.events <- ev:
	default:
	}
}
