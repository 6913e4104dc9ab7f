// Package busclient implements the client runtime (C3): the long-lived,
// reconnecting WebSocket endpoint embedded by every non-broker process.
// It exposes a send-only Emitter and a consuming HandlerLoop for one
// named API, and transparently re-establishes the connection on failure,
// generalizing the lineage's docker-agent connect/readPump/writePump
// shape to the two typed
// abstractions spec.md §4.3 demands.
package busclient

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/queue"
	"github.com/blockhost/gamebus/internal/wire"
)

// State is the client's connection state, per spec.md §4.3's state
// machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

const (
	reconnectDelay = 5 * time.Second
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Client is the reconnecting WebSocket endpoint for one API specifier.
// Construct with New, then Start it; obtain an Emitter with Emitter() and
// drive a HandlerLoop with Run().
type Client struct {
	connectAddr string
	spec        wire.ApiSpecifier
	log         zerolog.Logger

	out *queue.Unbounded // Emitter.Send -> socket
	in  *queue.Unbounded // socket -> HandlerLoop callback

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Client that will dial connectAddr (a "host:port" as used
// by WS_CONNECT_ADDRESS) and identify itself with spec once connected.
// connectAddr is prefixed with "ws://" per spec.md §6.
func New(connectAddr string, spec wire.ApiSpecifier) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		connectAddr: connectAddr,
		spec:        spec,
		log:         logging.For("client." + spec.Name),
		out:         queue.NewUnbounded(),
		in:          queue.NewUnbounded(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the background connect/reconnect loop. It returns
// immediately; the runtime continues until Cancel is called.
func (c *Client) Start() {
	go c.runLoop()
}

// Cancel stops the runtime. It is idempotent: the retry loop exits, any
// live connection is closed, and queued outbound messages at the moment
// of cancellation are lost, per spec.md §5.
func (c *Client) Cancel() {
	c.cancel()
}

// Done returns a channel closed once the runtime has fully stopped after
// Cancel.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Emitter returns the send-only side of this client's API.
func (c *Client) Emitter() Emitter {
	return Emitter{client: c}
}

func (c *Client) runLoop() {
	defer close(c.done)
	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, err := c.dial()
		if err != nil {
			c.log.Info().Err(err).Msg("connect failed, will retry")
			if !c.sleepOrCancelled(reconnectDelay) {
				return
			}
			continue
		}

		c.runConnected(conn)

		if c.ctx.Err() != nil {
			return
		}
		if !c.sleepOrCancelled(reconnectDelay) {
			return
		}
	}
}

func (c *Client) sleepOrCancelled(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.ctx.Done():
		return false
	}
}

// dial performs the TCP+WebSocket connect and the client side of the
// handshake (spec.md §4.1 steps 2-3). On any failure it returns an error
// and the caller falls back to Disconnected.
func (c *Client) dial() (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: c.connectAddr, Path: "/"}

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, err
	}
	var hs wire.Handshake
	if err := hs.UnmarshalJSON(data); err != nil {
		conn.Close()
		return nil, err
	}
	if hs.Kind != wire.KindServerIdentification {
		conn.Close()
		return nil, errs.ErrUnexpectedHandshake
	}

	reply, err := wire.ClientIdentification(c.spec).MarshalJSON()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
		conn.Close()
		return nil, err
	}

	c.log.Info().Str("addr", c.connectAddr).Msg("connected")
	return conn, nil
}

// runConnected drives one live connection: a read goroutine decoding
// frames into c.in, and a write goroutine draining c.out onto the
// socket. It returns once either side exits, at which point the
// connection is torn down and the caller falls back to Disconnected.
func (c *Client) runConnected(conn *websocket.Conn) {
	subCtx, subCancel := context.WithCancel(c.ctx)
	defer subCancel()

	readDone := make(chan struct{})
	writeDone := make(chan struct{})

	go func() {
		defer close(readDone)
		c.readLoop(conn, subCtx)
	}()
	go func() {
		defer close(writeDone)
		c.writeLoop(conn, subCtx)
	}()

	select {
	case <-readDone:
	case <-writeDone:
	case <-c.ctx.Done():
	}

	subCancel()
	conn.Close()
	<-readDone
	<-writeDone
}

func (c *Client) readLoop(conn *websocket.Conn, ctx context.Context) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("ignoring malformed application frame")
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		c.in.Push([]byte(env.Content))
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case content := <-c.out.Recv():
			env := wire.Envelope{Target: c.spec.Name, Content: string(content)}
			frame, err := env.Encode()
			if err != nil {
				c.log.Error().Err(err).Msg("failed to encode outbound envelope")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
