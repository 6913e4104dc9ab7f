// Command gamebus-valheimserver runs the Valheim supervisor (C4): it
// owns the Valheim dedicated-server child process, accepts commands
// over the "valheim_client" API, and emits typed events over the
// "valheim_server" API.
//
// Configuration is read from the environment: WS_CONNECT_ADDRESS plus
// the VALHEIM_* table documented in internal/config.
package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/busclient"
	"github.com/blockhost/gamebus/internal/config"
	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/events"
	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/supervisor"
	"github.com/blockhost/gamebus/internal/wire"
)

const (
	inboundAPI  = "valheim_client"
	outboundAPI = "valheim_server"
)

func main() {
	logging.Initialize(getEnvOrDefault("LOG_LEVEL", "info"), os.Getenv("LOG_PRETTY") == "true")
	log := logging.For("main")

	transport := config.LoadTransport()
	if err := transport.ValidateConnectAddress(); err != nil {
		log.Fatal().Err(err).Msg("cannot start valheim supervisor")
	}

	vhCfg, ok := config.LoadValheimConfig()
	if !ok {
		log.Fatal().Err(errs.ErrNoSupervisorEnabled).Msg("VALHEIM_SERVER is not set")
	}

	outbound := busclient.New(transport.ConnectAddress, wire.Emits(outboundAPI))
	inbound := busclient.New(transport.ConnectAddress, wire.Handles(inboundAPI))
	outbound.Start()
	inbound.Start()

	emitter := outbound.Emitter()
	sup := supervisorFor(vhCfg, emitter, log)

	inbound.HandlerLoop().Run(func(content string) {
		var cmd events.ValheimCommand
		if err := json.Unmarshal([]byte(content), &cmd); err != nil {
			log.Warn().Err(err).Str("content", content).Msg("ignoring malformed valheim command")
			return
		}
		sup.Handle(cmd)
	})
}

func supervisorFor(cfg config.ValheimConfig, emitter busclient.Emitter, log zerolog.Logger) *supervisor.Valheim {
	return supervisor.NewValheim(cfg, func(evt events.ValheimEvent) {
		data, err := json.Marshal(evt)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode outbound valheim event")
			return
		}
		emitter.Send(string(data))
	})
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
