package busclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blockhost/gamebus/internal/wire"
)

// newStubListener rebinds addr (a "host:port" string) for reuse by a
// second http.Serve after the original httptest.Server has released it.
func newStubListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// brokerStub is a minimal stand-in for the routing broker: it performs
// the handshake, then fans every frame it receives on one connection
// back out to every other currently-connected peer, regardless of
// target. That is enough to exercise a Client's connect/reconnect
// behavior without depending on package broker.
type brokerStub struct {
	mu    chan struct{} // binary semaphore guarding peers
	peers map[*websocket.Conn]bool
}

func newBrokerStub() *brokerStub {
	s := &brokerStub{mu: make(chan struct{}, 1), peers: make(map[*websocket.Conn]bool)}
	s.mu <- struct{}{}
	return s
}

func (s *brokerStub) lock()   { <-s.mu }
func (s *brokerStub) unlock() { s.mu <- struct{}{} }

func (s *brokerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	greeting, _ := wire.ServerIdentification().MarshalJSON()
	if err := conn.WriteMessage(websocket.TextMessage, greeting); err != nil {
		conn.Close()
		return
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return
	}
	var hs wire.Handshake
	if err := hs.UnmarshalJSON(data); err != nil || hs.Kind != wire.KindClientIdentification {
		conn.Close()
		return
	}

	s.lock()
	s.peers[conn] = true
	s.unlock()

	defer func() {
		s.lock()
		delete(s.peers, conn)
		s.unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.broadcast(conn, data)
	}
}

func (s *brokerStub) broadcast(from *websocket.Conn, data []byte) {
	s.lock()
	defer s.unlock()
	for peer := range s.peers {
		if peer == from {
			continue
		}
		peer.WriteMessage(websocket.TextMessage, data)
	}
}

func wsAddr(server *httptest.Server) string {
	return strings.TrimPrefix(server.URL, "http://")
}

// TestSendBeforeConnectedIsDeliveredOnce checks that a message enqueued
// via Emitter.Send before the first connection succeeds is delivered
// exactly once, as soon as the connection comes up.
func TestSendBeforeConnectedIsDeliveredOnce(t *testing.T) {
	stub := newBrokerStub()
	server := httptest.NewServer(stub)
	defer server.Close()

	sender := New(wsAddr(server), wire.Emits("chatter"))
	receiver := New(wsAddr(server), wire.Handles("chatter"))

	// Send before Start: the message sits in the unbounded out queue
	// until the runtime connects.
	sender.Emitter().Send(`{"Chat":"hello"}`)
	sender.Start()
	receiver.Start()
	defer sender.Cancel()
	defer receiver.Cancel()

	received := make(chan string, 4)
	go receiver.HandlerLoop().Run(func(content string) {
		received <- content
	})

	select {
	case got := <-received:
		if got != `{"Chat":"hello"}` {
			t.Fatalf("got %q, want %q", got, `{"Chat":"hello"}`)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message enqueued before connect was never delivered")
	}

	select {
	case got := <-received:
		t.Fatalf("message delivered twice, second delivery: %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestReconnectRedeliversQueuedSend is spec.md §8's broker-down boundary
// scenario: a send issued while the broker is unreachable must still
// arrive once the connection is reestablished on the next retry.
func TestReconnectRedeliversQueuedSend(t *testing.T) {
	stub := newBrokerStub()
	server := httptest.NewServer(stub)
	addr := wsAddr(server)
	server.Close() // broker starts out unreachable

	sender := New(addr, wire.Emits("chatter"))
	receiver := New(addr, wire.Handles("chatter"))
	sender.Start()
	receiver.Start()
	defer sender.Cancel()
	defer receiver.Cancel()

	time.Sleep(100 * time.Millisecond)
	sender.Emitter().Send(`{"Chat":"queued while down"}`)

	received := make(chan string, 4)
	go receiver.HandlerLoop().Run(func(content string) {
		received <- content
	})

	// Bring the broker back up on the same address after the runtimes
	// have already observed a failed dial at least once.
	time.Sleep(200 * time.Millisecond)
	relistener, err := newStubListener(addr)
	if err != nil {
		t.Fatalf("failed to rebind stub broker: %v", err)
	}
	defer relistener.Close()
	go http.Serve(relistener, stub)

	select {
	case got := <-received:
		if got != `{"Chat":"queued while down"}` {
			t.Fatalf("got %q, want %q", got, `{"Chat":"queued while down"}`)
		}
	case <-time.After(8 * time.Second):
		t.Fatal("message queued during an outage was never redelivered after reconnect")
	}
}

// TestCancelIsIdempotent checks that calling Cancel twice, and Cancel
// after Done has already fired, never panics or blocks.
func TestCancelIsIdempotent(t *testing.T) {
	stub := newBrokerStub()
	server := httptest.NewServer(stub)
	defer server.Close()

	c := New(wsAddr(server), wire.Emits("chatter"))
	c.Start()
	time.Sleep(100 * time.Millisecond)

	c.Cancel()
	c.Cancel()

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("runtime did not stop after Cancel")
	}

	c.Cancel()
}

// TestClientContextUnblocksHandlerLoop checks that HandlerLoop.Run
// returns once the client is cancelled, even with nothing ever
// delivered.
func TestClientContextUnblocksHandlerLoop(t *testing.T) {
	stub := newBrokerStub()
	server := httptest.NewServer(stub)
	defer server.Close()

	c := New(wsAddr(server), wire.Handles("chatter"))
	c.Start()

	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go func() {
		c.HandlerLoop().Run(func(string) {})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	c.Cancel()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("HandlerLoop.Run did not return after Cancel")
	}
}
