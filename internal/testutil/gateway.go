// Package testutil provides in-process doubles for the two external
// collaborators: the push gateway and the order-management API. Tests run
// against real network I/O without needing either service installed.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is a raw event envelope as seen on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Gateway is a minimal in-process push gateway: it accepts websocket
// clients, records every frame they emit, and can broadcast frames to them.
type Gateway struct {
	srv *httptest.Server

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	received []Frame

	frames    chan Frame
	connected chan struct{}
}

func NewGateway(t *testing.T) *Gateway {
	t.Helper()
	g := &Gateway{
		conns:     make(map[*websocket.Conn]struct{}),
		frames:    make(chan Frame, 64),
		connected: make(chan struct{}, 16),
	}
	upgrader := websocket.Upgrader{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.mu.Lock()
		g.conns[conn] = struct{}{}
		g.mu.Unlock()
		select {
		case g.connected <- struct{}{}:
		default:
		}
		go g.readPump(conn)
	}))
	t.Cleanup(g.Close)
	return g
}

func (g *Gateway) readPump(conn *websocket.Conn) {
	defer func() {
		g.mu.Lock()
		delete(g.conns, conn)
		g.mu.Unlock()
		conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		g.mu.Lock()
		g.received = append(g.received, f)
		g.mu.Unlock()
		select {
		case g.frames <- f:
		default:
		}
	}
}

// URL is the ws:// address clients dial.
func (g *Gateway) URL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

// WaitConnected blocks until a client connection is established.
func (g *Gateway) WaitConnected(t *testing.T) {
	t.Helper()
	select {
	case <-g.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("no client connected to gateway")
	}
}

// WaitFrame blocks until a client emits a frame.
func (g *Gateway) WaitFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-g.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received from client")
		return Frame{}
	}
}

// Received returns all frames emitted by clients so far.
func (g *Gateway) Received() []Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Frame, len(g.received))
	copy(out, g.received)
	return out
}

// Broadcast pushes an event to every connected client.
func (g *Gateway) Broadcast(t *testing.T, event string, payload interface{}) {
	t.Helper()
	env := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling broadcast payload: %v", err)
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshaling broadcast frame: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Logf("broadcast to client failed: %v", err)
		}
	}
}

// BroadcastRaw pushes raw bytes, letting tests send malformed frames.
func (g *Gateway) BroadcastRaw(t *testing.T, raw []byte) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.conns {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			t.Logf("broadcast to client failed: %v", err)
		}
	}
}

// DropClients severs every client connection, simulating a network drop.
// Clients are expected to redial on their own.
func (g *Gateway) DropClients() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for conn := range g.conns {
		conn.Close()
		delete(g.conns, conn)
	}
}

func (g *Gateway) Close() {
	g.DropClients()
	g.srv.Close()
}
