package ws_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"Wetty/pkg/core"
	"Wetty/pkg/models"
	"Wetty/pkg/store"
	"Wetty/pkg/wettytest"
	"Wetty/pkg/ws"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// connect dials the fake backend with test-friendly timings. The long ping
// interval keeps heartbeat traffic out of frame-count assertions.
func connect(t *testing.T, srv *wettytest.Server, st *store.Store, reconnectDelay time.Duration) *ws.Connector {
	t.Helper()
	c, err := ws.NewConnector(ws.Config{
		BaseURL:        srv.URL(),
		UID:            1,
		Store:          st,
		Logger:         zerolog.Nop(),
		PingInterval:   time.Minute,
		ReconnectDelay: reconnectDelay,
	})
	if err != nil {
		t.Fatalf("connector: %v", err)
	}
	t.Cleanup(c.Close)
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, "connection", func() bool { return srv.Connections() == 1 })
	return c
}

func TestDeliveryReachesStore(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, time.Minute)

	if err := srv.Push(map[string]any{"gid": "1", "id": "9", "sender_uid": 2, "message": "live"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	waitFor(t, "delivery", func() bool { return len(st.MessagesForChat("1")) == 1 })

	msg := st.MessagesForChat("1")[0]
	if msg.ID != "9" || msg.ChatID != "1" || msg.SenderUID != 2 {
		t.Errorf("stored message = %+v", msg)
	}

	ev := drainFor(c, func(ev core.Event) bool {
		me, ok := ev.(core.MessageEvent)
		return ok && me.Message.ID == "9"
	})
	if ev == nil {
		t.Errorf("no event emitted for the delivery")
	}
}

// drainFor pops buffered events until match holds or the buffer is empty.
func drainFor(c *ws.Connector, match func(core.Event) bool) core.Event {
	for {
		select {
		case ev := <-c.Events():
			if match(ev) {
				return ev
			}
		default:
			return nil
		}
	}
}

func TestPongAndGarbageFrames(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, time.Minute)

	frames := [][]byte{
		[]byte(`{"type":"pong"}`),
		[]byte(`this is not json`),
		[]byte(`{"type":"mystery"}`),
		[]byte(`{"type":"message"}`),
	}
	for _, f := range frames {
		if err := srv.PushRaw(f); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	waitFor(t, "frames", func() bool { return c.Stats().FramesReceived == int64(len(frames)) })

	// Only the pong is legitimate; the rest are dropped without effect.
	if got := c.Stats().FramesDropped; got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
	if c.State() != ws.StateConnected {
		t.Errorf("garbage frames tore the connection down")
	}
	if len(st.MessagesForChat("1")) != 0 {
		t.Errorf("garbage frames produced messages")
	}
}

func TestDeliveryConfirmsPendingBeforeDuplicateCheck(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, time.Minute)

	body := "optimistic"
	st.AddMessage("1", models.Message{
		ID:                models.PendingMessageID,
		ChatID:            "1",
		SenderUID:         1,
		Message:           &body,
		MessageType:       "text",
		ClientGeneratedID: "cg-1",
		CreatedAt:         "2025-01-01T10:00:00.000Z",
	})

	delivery := map[string]any{
		"gid": "1", "id": "42", "sender_uid": 1,
		"message": "optimistic", "client_generated_id": "cg-1",
	}
	if err := srv.Push(delivery); err != nil {
		t.Fatalf("push: %v", err)
	}
	waitFor(t, "confirmation", func() bool {
		msgs := st.MessagesForChat("1")
		return len(msgs) == 1 && msgs[0].ID == "42"
	})

	ev := drainFor(c, func(ev core.Event) bool {
		ce, ok := ev.(core.ConfirmedEvent)
		return ok && ce.ClientGeneratedID == "cg-1"
	})
	if ev == nil {
		t.Errorf("no confirmation event emitted")
	}

	// The same delivery again is a duplicate now; a fresh message after it
	// proves the duplicate was processed and dropped.
	if err := srv.Push(delivery); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := srv.Push(map[string]any{"gid": "1", "id": "43", "sender_uid": 2, "message": "next"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	waitFor(t, "followup delivery", func() bool { return len(st.MessagesForChat("1")) == 2 })
	msgs := st.MessagesForChat("1")
	if msgs[0].ID != "42" || msgs[1].ID != "43" {
		t.Errorf("timeline = %s,%s, want 42,43", msgs[0].ID, msgs[1].ID)
	}
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, 30*time.Millisecond)

	srv.CloseConnections()
	waitFor(t, "disconnect flag", func() bool { return !st.Connected() })

	waitFor(t, "reconnect", func() bool {
		return srv.Upgrades() == 2 && srv.Connections() == 1 && st.Connected()
	})
	if got := c.Stats().Reconnects; got != 1 {
		t.Errorf("reconnects = %d, want 1", got)
	}
}

func TestManualConnectCancelsPendingReconnect(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, 300*time.Millisecond)

	srv.CloseConnections()
	waitFor(t, "disconnect flag", func() bool { return !st.Connected() })

	// Reconnecting by hand while the timer is pending must not double-dial.
	if err := c.Connect(); err != nil {
		t.Fatalf("manual reconnect: %v", err)
	}
	waitFor(t, "reconnect", func() bool { return srv.Connections() == 1 && st.Connected() })

	time.Sleep(400 * time.Millisecond)
	if got := srv.Upgrades(); got != 2 {
		t.Errorf("upgrades = %d, want 2 (cancelled timer must not fire)", got)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, time.Minute)

	if err := c.Connect(); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	waitFor(t, "old socket torn down", func() bool { return srv.Connections() == 1 })
	if got := srv.Upgrades(); got != 2 {
		t.Errorf("upgrades = %d, want 2", got)
	}
	if c.State() != ws.StateConnected {
		t.Errorf("state = %v, want connected", c.State())
	}
}

func TestHeartbeat(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c, err := ws.NewConnector(ws.Config{
		BaseURL:        srv.URL(),
		UID:            1,
		Store:          st,
		Logger:         zerolog.Nop(),
		PingInterval:   20 * time.Millisecond,
		ReconnectDelay: time.Minute,
	})
	if err != nil {
		t.Fatalf("connector: %v", err)
	}
	defer c.Close()
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	waitFor(t, "pings", func() bool { return srv.Pings() >= 2 })
}

func TestCloseStopsReconnection(t *testing.T) {
	srv := wettytest.NewServer()
	defer srv.Close()
	st := store.New()
	c := connect(t, srv, st, 30*time.Millisecond)

	c.Close()
	if st.Connected() {
		t.Errorf("close left the connectivity flag set")
	}
	if err := c.Connect(); !errors.Is(err, ws.ErrClosed) {
		t.Errorf("connect after close = %v, want ErrClosed", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := srv.Upgrades(); got != 1 {
		t.Errorf("upgrades = %d, want 1 (closed connector dialed again)", got)
	}
}

func TestDialFailureArmsReconnect(t *testing.T) {
	st := store.New()
	c, err := ws.NewConnector(ws.Config{
		BaseURL:        "http://127.0.0.1:1",
		UID:            1,
		Store:          st,
		Logger:         zerolog.Nop(),
		ReconnectDelay: time.Minute,
	})
	if err != nil {
		t.Fatalf("connector: %v", err)
	}
	defer c.Close()

	if err := c.Connect(); err == nil {
		t.Fatal("connect to a dead endpoint succeeded")
	}
	if c.State() != ws.StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
	if st.Connected() {
		t.Errorf("connectivity flag set after dial failure")
	}
	if got := c.Stats().Reconnects; got != 1 {
		t.Errorf("reconnects = %d, want 1 armed retry", got)
	}
}
