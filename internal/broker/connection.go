package broker

import (
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blockhost/gamebus/internal/queue"
	"github.com/blockhost/gamebus/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// peer is the broker's connection entry for one handshaken connection: its
// API specifier, its remote address, and its unbounded outbound queue
// (spec.md §4.2: "Each connection has an unbounded internal queue").
// The broker enqueues onto out from the routing path and a dedicated send
// goroutine drains it onto the socket.
type peer struct {
	spec       wire.ApiSpecifier
	remoteAddr net.Addr
	conn       *websocket.Conn

	out *queue.Unbounded
}

func newPeer(conn *websocket.Conn, spec wire.ApiSpecifier) *peer {
	return &peer{
		spec:       spec,
		remoteAddr: conn.RemoteAddr(),
		conn:       conn,
		out:        queue.NewUnbounded(),
	}
}

// enqueue places a frame on the peer's outbound queue. The queue is
// unbounded, so this never fails while the peer is registered; the
// registry-removal rule for a stuck peer is instead driven by its own
// receiveLoop/socket exiting, not by queue pressure.
func (p *peer) enqueue(frame []byte) {
	p.out.Push(frame)
}

// closeOutbound stops the outbound queue, signalling the send goroutine to
// exit; frames still buffered in the queue are discarded. Safe to call
// more than once.
func (p *peer) closeOutbound() {
	p.out.Close()
}

// sendLoop drains p.out onto the websocket connection until the queue is
// closed or a write fails. It owns all writes to conn, so no other
// goroutine may write to it concurrently.
func (p *peer) sendLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-p.out.Recv():
			if !ok {
				p.conn.SetWriteDeadline(time.Now().Add(writeWait))
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
