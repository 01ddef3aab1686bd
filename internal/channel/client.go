// Package channel maintains the persistent connection to the push gateway.
// One Client is constructed at composition time and shared by every view;
// its lifecycle is owned by the process, not by lazy first use.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "expo/internal/errors"
)

// Handler receives validated inbound events. Handlers run on the read loop
// goroutine, one at a time, mirroring the single-threaded event model the
// views assume.
type Handler func(Event)

type Config struct {
	URL          string
	DialTimeout  time.Duration
	MinReconnect time.Duration
	MaxReconnect time.Duration
	WriteTimeout time.Duration
}

type Client struct {
	cfg       Config
	log       *zap.Logger
	sessionID string

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]Handler
	rooms    map[string]struct{}
	hooks    []func()
	dials    int

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.MinReconnect == 0 {
		cfg.MinReconnect = 500 * time.Millisecond
	}
	if cfg.MaxReconnect == 0 {
		cfg.MaxReconnect = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Client{
		cfg:       cfg,
		log:       log,
		sessionID: uuid.New().String(),
		handlers:  make(map[string]Handler),
		rooms:     make(map[string]struct{}),
		closed:    make(chan struct{}),
	}
}

// Subscribe registers the handler for a named event. One handler is active
// per event name; subscribing again replaces the previous one.
func (c *Client) Subscribe(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Unsubscribe removes the handler for a named event. Events arriving
// afterwards are dropped.
func (c *Client) Unsubscribe(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, name)
}

// OnReconnect registers fn to run after every re-established connection
// (not the first dial). Views use it to refetch state the stream may have
// missed while disconnected.
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// JoinRoom adds the client to a broadcast room. Membership is tracked
// locally and re-announced after every reconnect, so a silent drop cannot
// leave the client outside rooms it believes it is in. Joining before the
// connection is up is allowed; the join is announced once connected.
func (c *Client) JoinRoom(room string) error {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return c.writeEnvelope(conn, envelope{Event: joinEvent(room)}, roomPayload{Session: c.sessionID})
}

// LeaveRoom removes the client from a broadcast room.
func (c *Client) LeaveRoom(room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return c.writeEnvelope(conn, envelope{Event: leaveEvent(room)}, roomPayload{Session: c.sessionID})
}

// Emit sends a named event upstream. It fails immediately when the channel
// is down; commands are never queued locally.
func (c *Client) Emit(name string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return apperrors.NewUnavailableError("push channel not connected", nil)
	}
	return c.writeEnvelope(conn, envelope{Event: name}, payload)
}

// Run dials the gateway and keeps the connection alive until ctx is
// canceled or Close is called. Reconnection uses exponential backoff and
// re-announces room membership on every successful redial.
func (c *Client) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.MinReconnect
	bo.MaxInterval = c.cfg.MaxReconnect
	bo.MaxElapsedTime = 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		select {
		case <-c.closed:
			return nil
		default:
		}

		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := bo.NextBackOff()
			c.log.Warn("push channel dial failed",
				zap.String("url", c.cfg.URL),
				zap.Duration("retryIn", wait),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-c.closed:
				return nil
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		c.attach(conn)
		err = c.readLoop(ctx, conn)
		c.detach(conn)

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-c.closed:
			return nil
		default:
		}
		c.log.Warn("push channel connection lost", zap.Error(err))
	}
}

// Close tears the connection down for good. Run returns and no further
// events are delivered.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// attach publishes the live connection, replays room joins, and fires
// reconnect hooks when this is not the first dial.
func (c *Client) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.dials++
	reconnected := c.dials > 1
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	hooks := make([]func(), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	c.log.Info("push channel connected",
		zap.String("session", c.sessionID),
		zap.Bool("reconnect", reconnected))

	for _, room := range rooms {
		if err := c.writeEnvelope(conn, envelope{Event: joinEvent(room)}, roomPayload{Session: c.sessionID}); err != nil {
			c.log.Error("re-announcing room membership failed", zap.String("room", room), zap.Error(err))
		}
	}

	if reconnected {
		// Hooks refetch over HTTP; keep them off the read loop so pushed
		// events are consumed while the refetch runs.
		go func() {
			for _, h := range hooks {
				h()
			}
		}()
	}
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-c.closed:
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := decodeEvent(raw)
		if err != nil {
			c.log.Warn("dropping malformed push event", zap.Error(err))
			continue
		}

		c.mu.Lock()
		h := c.handlers[ev.Name]
		c.mu.Unlock()
		if h == nil {
			continue
		}
		h(ev)
	}
}

type roomPayload struct {
	Session string `json:"session"`
}

func (c *Client) writeEnvelope(conn *websocket.Conn, env envelope, payload interface{}) error {
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return apperrors.NewInternalError("encoding event payload", err)
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return apperrors.NewInternalError("encoding event frame", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return apperrors.NewUnavailableError(fmt.Sprintf("emitting %s", env.Event), err)
	}
	return nil
}

func joinEvent(room string) string {
	return fmt.Sprintf("join-%s-room", room)
}

func leaveEvent(room string) string {
	return fmt.Sprintf("leave-%s-room", room)
}
