package broker

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blockhost/gamebus/internal/wire"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func handshakeAs(t *testing.T, conn *websocket.Conn, spec wire.ApiSpecifier) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading server greeting: %v", err)
	}
	var hs wire.Handshake
	if err := hs.UnmarshalJSON(data); err != nil {
		t.Fatalf("decoding greeting: %v", err)
	}
	if hs.Kind != wire.KindServerIdentification {
		t.Fatalf("expected ServerIdentification, got %+v", hs)
	}

	reply, err := wire.ClientIdentification(spec).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
		t.Fatalf("sending ClientIdentification: %v", err)
	}
}

// TestMinecraftStartupHandshake is scenario 1 of spec.md §8.
func TestMinecraftStartupHandshake(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()
	handshakeAs(t, conn, wire.Emits("minecraft_server"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		emitters, _ := b.reg.counts()
		if emitters["minecraft_server"] == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected one registered emitter of minecraft_server")
}

// TestRoutingFanOut is scenario 2 of spec.md §8: two handlers of the same
// API both receive a byte-identical frame sent by one emitter.
func TestRoutingFanOut(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	handlerA := dial(t, server)
	defer handlerA.Close()
	handshakeAs(t, handlerA, wire.Handles("minecraft_client"))

	handlerB := dial(t, server)
	defer handlerB.Close()
	handshakeAs(t, handlerB, wire.Handles("minecraft_client"))

	emitter := dial(t, server)
	defer emitter.Close()
	handshakeAs(t, emitter, wire.Emits("minecraft_client"))

	// Give the broker a moment to finish registering all three peers
	// before the emitter sends, since registration happens concurrently
	// with handshaking the next connection.
	time.Sleep(50 * time.Millisecond)

	env := wire.Envelope{Target: "minecraft_client", Content: `{"StartupComplete":null}`}
	frame, err := env.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := emitter.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	for _, conn := range []*websocket.Conn{handlerA, handlerB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading routed frame: %v", err)
		}
		var got wire.Envelope
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got != env {
			t.Errorf("got %+v, want %+v", got, env)
		}
	}
}

// TestRoutingDropsWithNoRecipient exercises the "no peer registered"
// path: sending with no registered complement must not panic or hang.
func TestRoutingDropsWithNoRecipient(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	emitter := dial(t, server)
	defer emitter.Close()
	handshakeAs(t, emitter, wire.Emits("valheim_server"))

	env := wire.Envelope{Target: "valheim_server", Content: "no-handlers"}
	frame, _ := env.Encode()
	if err := emitter.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	// Nothing to assert on the wire; just make sure the broker is still
	// alive and the registry still reflects one emitter.
	time.Sleep(50 * time.Millisecond)
	emitters, _ := b.reg.counts()
	if emitters["valheim_server"] != 1 {
		t.Fatalf("expected emitter still registered, got %v", emitters)
	}
}

// TestDisconnectRemovesPeer checks that closing a connection removes it
// from the registry (the "exactly one of Emits/Handles at any instant"
// invariant degrades to "or neither, once disconnected").
func TestDisconnectRemovesPeer(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	conn := dial(t, server)
	handshakeAs(t, conn, wire.Emits("minecraft_server"))
	time.Sleep(20 * time.Millisecond)
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		emitters, _ := b.reg.counts()
		if emitters["minecraft_server"] == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected peer to be removed from the registry after disconnect")
}

// TestRoutingPreservesReplyEnvelopeFields checks that a frame carrying
// fields beyond target/content (the request/reply variant's id and
// source) survives routing untouched: the broker forwards raw bytes
// rather than decoding into wire.Envelope and re-encoding.
func TestRoutingPreservesReplyEnvelopeFields(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	handler := dial(t, server)
	defer handler.Close()
	handshakeAs(t, handler, wire.Handles("rpc_service"))

	requester := dial(t, server)
	defer requester.Close()
	handshakeAs(t, requester, wire.Emits("rpc_service"))

	time.Sleep(50 * time.Millisecond)

	env := wire.ReplyEnvelope{ID: 1, Source: "rpc_client", Target: "rpc_service", Content: "ping"}
	frame, err := env.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if err := requester.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatal(err)
	}

	handler.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := handler.ReadMessage()
	if err != nil {
		t.Fatalf("reading routed frame: %v", err)
	}
	got, err := wire.DecodeReplyEnvelope(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != env {
		t.Errorf("got %+v, want %+v", got, env)
	}
}

// TestRoutedQueueIsUnbounded checks that a peer's outbound queue holds
// every routed frame, with none dropped, even when far more than the
// previous 256-entry channel capacity are enqueued before the recipient
// ever reads (spec.md §4.2: "Each connection has an unbounded internal
// queue").
func TestRoutedQueueIsUnbounded(t *testing.T) {
	b := New()
	server := httptest.NewServer(b)
	defer server.Close()

	handler := dial(t, server)
	defer handler.Close()
	handshakeAs(t, handler, wire.Handles("minecraft_client"))

	emitter := dial(t, server)
	defer emitter.Close()
	handshakeAs(t, emitter, wire.Emits("minecraft_client"))

	time.Sleep(50 * time.Millisecond)

	const n = 2000
	for i := 0; i < n; i++ {
		env := wire.Envelope{Target: "minecraft_client", Content: "msg"}
		frame, err := env.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if err := emitter.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Fatal(err)
		}
	}

	handler.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < n; i++ {
		if _, _, err := handler.ReadMessage(); err != nil {
			t.Fatalf("reading routed frame %d/%d: %v", i+1, n, err)
		}
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop within timeout after cancellation")
	}
}
