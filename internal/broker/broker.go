// Package broker implements the routing broker (C2): it accepts WebSocket
// connections, performs the handshake of package wire, registers each
// connection under its API specifier, and fans inbound application
// messages out to every peer registered on the complementary side of the
// message's target API.
package broker

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/wire"
)

// shutdownReason is the close-frame reason sent to every registered peer
// when the broker is cancelled.
const shutdownReason = "WS Server received SIGINT"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broker is the routing broker. Zero value is not usable; construct with
// New.
type Broker struct {
	reg *registry
	log zerolog.Logger

	censusInterval time.Duration
}

// New creates a Broker ready to accept connections via ServeHTTP.
func New() *Broker {
	return &Broker{
		reg:            newRegistry(),
		log:            logging.For("broker"),
		censusInterval: 30 * time.Second,
	}
}

// ServeHTTP upgrades the request to a WebSocket connection, performs the
// handshake, and — on success — services the connection until it
// disconnects. It never blocks past the life of one connection, so it may
// be used directly as an http.Handler.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Info().Err(err).Msg("websocket upgrade failed")
		return
	}

	spec, ok := b.handshake(conn)
	if !ok {
		conn.Close()
		return
	}

	p := newPeer(conn, spec)
	b.reg.add(p)
	b.log.Info().
		Stringer("peer", specStringer{spec}).
		Str("remote", p.remoteAddr.String()).
		Msg("peer registered")

	go p.sendLoop()
	b.receiveLoop(p)
}

type specStringer struct{ spec wire.ApiSpecifier }

func (s specStringer) String() string { return s.spec.String() }

// handshake drives the broker side of the handshake: send
// ServerIdentification, then decode the client's ClientIdentification.
// Any failure drops the connection before registration, per spec.
func (b *Broker) handshake(conn *websocket.Conn) (wire.ApiSpecifier, bool) {
	greeting, err := wire.ServerIdentification().MarshalJSON()
	if err != nil {
		b.log.Error().Err(err).Msg("failed to encode ServerIdentification")
		return wire.ApiSpecifier{}, false
	}
	if err := conn.WriteMessage(websocket.TextMessage, greeting); err != nil {
		b.log.Info().Err(err).Msg("failed to send ServerIdentification")
		return wire.ApiSpecifier{}, false
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		b.log.Info().Err(err).Msg("handshake read failed")
		return wire.ApiSpecifier{}, false
	}

	var hs wire.Handshake
	if err := hs.UnmarshalJSON(data); err != nil {
		b.log.Info().Err(err).Msg("malformed handshake frame")
		return wire.ApiSpecifier{}, false
	}
	if hs.Kind != wire.KindClientIdentification {
		b.log.Info().Msg("expected ClientIdentification, dropping connection")
		return wire.ApiSpecifier{}, false
	}
	return hs.Specifier, true
}

// receiveLoop reads application frames from p until the socket errs or
// closes, routing each to the registered complement of its target.
// Returning from receiveLoop always removes p from the registry and
// closes its outbound queue, which in turn stops its sendLoop.
func (b *Broker) receiveLoop(p *peer) {
	defer func() {
		b.reg.remove(p)
		p.closeOutbound()
		b.log.Info().
			Stringer("peer", specStringer{p.spec}).
			Str("remote", p.remoteAddr.String()).
			Msg("peer unregistered")
	}()

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}

		target, err := wire.PeekTarget(data)
		if err != nil {
			b.log.Warn().Err(err).Msg("ignoring malformed application frame")
			continue
		}

		b.route(target, data, p.spec.Kind == wire.SpecifierEmits)
	}
}

// route delivers frame to every peer registered on the complementary side
// of target. fromEmitter is true when the sender is registered as an
// emitter (so the message is delivered to handlers); false delivers to
// emitters. frame is forwarded byte-for-byte: the broker never
// re-serializes a routed message, so fields beyond target (the
// request/reply variant's id and source) survive untouched.
func (b *Broker) route(target string, frame []byte, fromEmitter bool) {
	recipients := b.reg.complementOf(target, !fromEmitter)
	if len(recipients) == 0 {
		b.log.Info().Str("target", target).Msg("no peer registered for target, dropping message")
		return
	}

	for _, rcpt := range recipients {
		rcpt.enqueue(frame)
	}
}

// Run starts an HTTP server bound to addr serving b, and blocks until ctx
// is cancelled. On cancellation it stops accepting new connections and
// sends a close frame to every currently registered peer before
// returning.
func (b *Broker) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: b}

	errCh := make(chan error, 1)
	go func() {
		b.log.Info().Str("addr", addr).Msg("broker listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stopCensus := make(chan struct{})
	go b.runCensus(stopCensus)

	select {
	case <-ctx.Done():
		b.log.Info().Msg("shutdown signal received, closing peers")
		close(stopCensus)
		b.closeAllPeers()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		close(stopCensus)
		return err
	}
}

// closeAllPeers sends the shutdown close frame to every registered peer
// and shuts down their sockets.
func (b *Broker) closeAllPeers() {
	closeFrame := websocket.FormatCloseMessage(websocket.CloseProtocolError, shutdownReason)
	for _, p := range b.reg.all() {
		p.conn.WriteControl(websocket.CloseMessage, closeFrame, time.Now().Add(writeWait))
		p.conn.Close()
	}
}

func (b *Broker) runCensus(stop <-chan struct{}) {
	ticker := time.NewTicker(b.censusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			emitters, handlers := b.reg.counts()
			b.log.Debug().
				Interface("emitters", emitters).
				Interface("handlers", handlers).
				Msg("registry census")
		case <-stop:
			return
		}
	}
}
