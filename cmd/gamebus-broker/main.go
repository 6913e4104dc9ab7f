// Command gamebus-broker runs the routing broker (C2): it accepts
// WebSocket connections from game-server supervisors and Discord-facing
// clients, and routes application messages between them.
//
// Configuration is read from the environment:
//
//	WS_LISTEN_ADDRESS  host:port to bind (required)
//	LOG_LEVEL          zerolog level, default "info"
//	LOG_PRETTY         "true" for human-readable console logging
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/blockhost/gamebus/internal/broker"
	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/logging"
)

func main() {
	logging.Initialize(getEnvOrDefault("LOG_LEVEL", "info"), os.Getenv("LOG_PRETTY") == "true")
	log := logging.For("main")

	addr := os.Getenv("WS_LISTEN_ADDRESS")
	if addr == "" {
		log.Fatal().Err(errs.ErrMissingListenAddress).Msg("cannot start broker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b := broker.New()
	if err := b.Run(ctx, addr); err != nil {
		log.Fatal().Err(err).Msg("broker exited with error")
	}
	log.Info().Msg("broker stopped cleanly")
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
