package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// fakeConn feeds scripted reads and records writes
type fakeConn struct {
	mu      sync.Mutex
	reads   chan []byte
	written [][]byte
	types   []int
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan []byte, 8)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-f.reads
	if !ok {
		return 0, nil, errors.New("closed")
	}
	return websocket.TextMessage, data, nil
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, t)
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for i, w := range f.written {
		if f.types[i] == websocket.TextMessage {
			out = append(out, string(w))
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	ca := NewClient(h, a, nil)
	cb := NewClient(h, b, nil)
	go ca.Run()
	go cb.Run()

	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]string{"type": "status"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	want := `{"type":"status"}`
	waitFor(t, func() bool { return len(a.texts()) == 1 && len(b.texts()) == 1 })
	if a.texts()[0] != want || b.texts()[0] != want {
		t.Errorf("got %q and %q, want %q", a.texts(), b.texts(), want)
	}
}

func TestHub_OnMessageAndDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	got := make(chan string, 1)
	conn := newFakeConn()
	c := NewClient(h, conn, func(b []byte) { got <- string(b) })
	go c.Run()

	conn.reads <- []byte(`{"type":"ping"}`)
	select {
	case s := <-got:
		if s != `{"type":"ping"}` {
			t.Errorf("onMessage got %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onMessage not called")
	}

	close(conn.reads)
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if c.Send(NewJSONMessage([]byte("{}"))) {
		t.Error("Send to a disconnected client should fail")
	}
}

func TestHub_SendTargetsOneClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	ca := NewClient(h, a, nil)
	cb := NewClient(h, b, nil)
	go ca.Run()
	go cb.Run()
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if !ca.Send(NewJSONMessage([]byte(`{"type":"pong"}`))) {
		t.Fatal("Send failed")
	}
	waitFor(t, func() bool { return len(a.texts()) == 1 })
	if len(b.texts()) != 0 {
		t.Errorf("other client received %q", b.texts())
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	c := NewClient(h, conn, nil)
	go c.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	<-h.Done()

	waitFor(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return conn.closed
	})
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount after stop = %d", h.ClientCount())
	}

	// Registering after stop must not block
	late := NewClient(h, newFakeConn(), nil)
	if late.Send(NewJSONMessage([]byte("{}"))) {
		t.Error("Send after stop should fail")
	}
	close(conn.reads)
}
