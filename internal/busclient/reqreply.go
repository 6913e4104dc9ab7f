package busclient

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/queue"
	"github.com/blockhost/gamebus/internal/wire"
)

// maxUnmatched bounds the FIFO of incoming replies that arrived with no
// waiting requester (e.g. a response for a request this process already
// gave up on). Oldest entries are dropped once the buffer is full.
const maxUnmatched = 64

// ReplyClient is the request/reply variant of the client runtime
// (spec.md §4.3 "Request/response variant"). Each outbound message
// carries a monotonically increasing id (spec.md §6); the broker treats
// it as opaque passthrough, so correlation happens entirely at this
// layer. The receiver owns its response channel for its whole lifetime
// — unlike the "await over a taken-out receiver" pitfall the spec's
// design notes flag — so the request path stays cancellation-safe.
type ReplyClient struct {
	connectAddr string
	spec        wire.ApiSpecifier
	log         zerolog.Logger

	out    *queue.Unbounded
	nextID atomic.Uint64

	mu        sync.Mutex
	pending   map[uint64]chan wire.ReplyEnvelope
	unmatched []wire.ReplyEnvelope

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReplyClient builds a request/reply client identified by spec,
// connecting to connectAddr.
func NewReplyClient(connectAddr string, spec wire.ApiSpecifier) *ReplyClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReplyClient{
		connectAddr: connectAddr,
		spec:        spec,
		log:         logging.For("reqreply." + spec.Name),
		out:         queue.NewUnbounded(),
		pending:     make(map[uint64]chan wire.ReplyEnvelope),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start launches the background connect/reconnect loop.
func (c *ReplyClient) Start() { go c.runLoop() }

// Cancel stops the runtime, per the same contract as Client.Cancel.
func (c *ReplyClient) Cancel() { c.cancel() }

// Done reports when the runtime has fully stopped.
func (c *ReplyClient) Done() <-chan struct{} { return c.done }

// Request sends content to target and waits for a correlated reply or
// for ctx to expire. The original id is echoed by the responder.
func (c *ReplyClient) Request(ctx context.Context, target, content string) (string, error) {
	id := c.nextID.Add(1)
	replyCh := make(chan wire.ReplyEnvelope, 1)

	c.mu.Lock()
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	env := wire.ReplyEnvelope{ID: id, Source: c.spec.Name, Target: target, Content: content}
	frame, err := env.Encode()
	if err != nil {
		return "", err
	}
	c.out.Push(frame)

	select {
	case reply := <-replyCh:
		return reply.Content, nil
	case <-ctx.Done():
		return "", errs.ErrRequestTimeout
	case <-c.ctx.Done():
		return "", errs.ErrClientClosed
	}
}

// TakeUnmatched drains and returns any replies that arrived with no
// waiting requester, oldest first.
func (c *ReplyClient) TakeUnmatched() []wire.ReplyEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.unmatched
	c.unmatched = nil
	return out
}

func (c *ReplyClient) runLoop() {
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

func (c *ReplyClient) sleepOrCancelled(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *ReplyClient) dial() (*websocket.Conn, error) {
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
	return conn, nil
}

func (c *ReplyClient) runConnected(conn *websocket.Conn) {
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

func (c *ReplyClient) readLoop(conn *websocket.Conn, ctx context.Context) {
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
		env, err := wire.DecodeReplyEnvelope(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("ignoring malformed reply frame")
			continue
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		c.deliver(env)
	}
}

func (c *ReplyClient) deliver(env wire.ReplyEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.pending[env.ID]; ok {
		ch <- env
		return
	}

	c.unmatched = append(c.unmatched, env)
	if len(c.unmatched) > maxUnmatched {
		c.unmatched = c.unmatched[len(c.unmatched)-maxUnmatched:]
	}
}

func (c *ReplyClient) writeLoop(conn *websocket.Conn, ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.out.Recv():
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
