package channel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	apperrors "expo/internal/errors"
	"expo/internal/testutil"
)

func newTestClient(t *testing.T, url string) (*Client, context.CancelFunc) {
	t.Helper()
	c := New(Config{
		URL:          url,
		MinReconnect: 10 * time.Millisecond,
		MaxReconnect: 50 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		c.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not stop")
		}
	})
	return c, cancel
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestClientDeliversSubscribedEvents(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	got := make(chan Event, 1)
	c.Subscribe(EventNewOrder, func(ev Event) { got <- ev })

	gw.WaitConnected(t)
	gw.Broadcast(t, EventNewOrder, map[string]interface{}{
		"id": "o1", "kitchenStatus": "new", "createdAt": "2025-03-01T12:00:00Z",
	})

	select {
	case ev := <-got:
		assert.Equal(t, "o1", ev.OrderID)
		require.NotNil(t, ev.Order)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestClientDropsMalformedAndUnhandledEvents(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	got := make(chan Event, 4)
	c.Subscribe(EventNewOrder, func(ev Event) { got <- ev })

	gw.WaitConnected(t)
	gw.BroadcastRaw(t, []byte(`not even json`))
	gw.Broadcast(t, EventNewOrder, map[string]interface{}{"priority": "high"}) // no id
	gw.Broadcast(t, EventOrderUpdated, map[string]interface{}{"id": "ignored"})
	gw.Broadcast(t, EventNewOrder, map[string]interface{}{"id": "good"})

	select {
	case ev := <-got:
		// Only the well-formed, subscribed event arrives; the view never
		// crashed on the garbage before it.
		assert.Equal(t, "good", ev.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("valid event not delivered")
	}
	assert.Empty(t, got)
}

func TestClientUnsubscribeStopsDelivery(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	got := make(chan Event, 1)
	c.Subscribe(EventNewOrder, func(ev Event) { got <- ev })
	c.Unsubscribe(EventNewOrder)

	gw.WaitConnected(t)
	gw.Broadcast(t, EventNewOrder, map[string]interface{}{"id": "o1"})

	select {
	case <-got:
		t.Fatal("event delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientSubscribeReplacesHandler(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	first := make(chan Event, 1)
	second := make(chan Event, 1)
	c.Subscribe(EventNewOrder, func(ev Event) { first <- ev })
	c.Subscribe(EventNewOrder, func(ev Event) { second <- ev })

	gw.WaitConnected(t)
	gw.Broadcast(t, EventNewOrder, map[string]interface{}{"id": "o1"})

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement handler not invoked")
	}
	assert.Empty(t, first)
}

func TestClientAnnouncesJoinOnConnect(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	// Join before the dial completes; the announcement must be queued.
	require.NoError(t, c.JoinRoom("kitchen"))

	gw.WaitConnected(t)
	f := gw.WaitFrame(t)
	assert.Equal(t, "join-kitchen-room", f.Event)

	var p struct {
		Session string `json:"session"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &p))
	assert.NotEmpty(t, p.Session)
}

func TestClientRejoinsRoomsAfterReconnect(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	gw.WaitConnected(t)
	require.NoError(t, c.JoinRoom("kitchen"))
	f := gw.WaitFrame(t)
	require.Equal(t, "join-kitchen-room", f.Event)

	reconnected := make(chan struct{}, 1)
	c.OnReconnect(func() { reconnected <- struct{}{} })

	gw.DropClients()
	gw.WaitConnected(t)

	f = gw.WaitFrame(t)
	assert.Equal(t, "join-kitchen-room", f.Event, "membership must be re-announced after redial")

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect hook not invoked")
	}
}

func TestClientLeaveRoomAnnouncesAndForgets(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	gw.WaitConnected(t)
	require.NoError(t, c.JoinRoom("kitchen"))
	_ = gw.WaitFrame(t)

	require.NoError(t, c.LeaveRoom("kitchen"))
	f := gw.WaitFrame(t)
	assert.Equal(t, "leave-kitchen-room", f.Event)

	// After a reconnect the left room must not be re-announced.
	gw.DropClients()
	gw.WaitConnected(t)
	time.Sleep(100 * time.Millisecond)
	for _, fr := range gw.Received()[2:] {
		assert.NotEqual(t, "join-kitchen-room", fr.Event)
	}
}

func TestClientEmit(t *testing.T) {
	gw := testutil.NewGateway(t)
	c, _ := newTestClient(t, gw.URL())

	gw.WaitConnected(t)
	waitFor(t, func() bool {
		return c.Emit(EventCreateOrder, map[string]string{"customerLocation": "patio"}) == nil
	}, "emit never succeeded")

	f := gw.WaitFrame(t)
	assert.Equal(t, EventCreateOrder, f.Event)
	assert.Contains(t, string(f.Data), "patio")
}

func TestClientEmitWhileDisconnected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/ws"}, zap.NewNop())

	err := c.Emit(EventCreateOrder, nil)
	_, ok := apperrors.IsUnavailableError(err)
	assert.True(t, ok, "expected UnavailableError, got %v", err)
}

func TestClientCloseStopsRun(t *testing.T) {
	gw := testutil.NewGateway(t)
	c := New(Config{
		URL:          gw.URL(),
		MinReconnect: 10 * time.Millisecond,
	}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(context.Background())
	}()

	gw.WaitConnected(t)
	require.NoError(t, c.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	// With the client and gateway both shut down, nothing of ours may
	// still be running.
	gw.Close()
	goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}
