// Command gamebus-mcserver runs the Minecraft supervisor (C4): it owns
// the Minecraft dedicated-server child process, accepts commands over
// the "minecraft_client" API, and emits typed events (chat, player
// lifecycle, backup results) over the "minecraft_server" API.
//
// Configuration is read from the environment: WS_CONNECT_ADDRESS plus
// the MINECRAFT_* table documented in internal/config.
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
	inboundAPI  = "minecraft_client"
	outboundAPI = "minecraft_server"
)

func main() {
	logging.Initialize(getEnvOrDefault("LOG_LEVEL", "info"), os.Getenv("LOG_PRETTY") == "true")
	log := logging.For("main")

	transport := config.LoadTransport()
	if err := transport.ValidateConnectAddress(); err != nil {
		log.Fatal().Err(err).Msg("cannot start minecraft supervisor")
	}

	mcCfg, ok := config.LoadMinecraftConfig()
	if !ok {
		log.Fatal().Err(errs.ErrNoSupervisorEnabled).Msg("MINECRAFT_SERVER is not set")
	}

	outbound := busclient.New(transport.ConnectAddress, wire.Emits(outboundAPI))
	inbound := busclient.New(transport.ConnectAddress, wire.Handles(inboundAPI))
	outbound.Start()
	inbound.Start()

	emitter := outbound.Emitter()
	sup := supervisorFor(mcCfg, emitter, log)

	inbound.HandlerLoop().Run(func(content string) {
		var cmd events.MinecraftCommand
		if err := json.Unmarshal([]byte(content), &cmd); err != nil {
			log.Warn().Err(err).Str("content", content).Msg("ignoring malformed minecraft command")
			return
		}
		sup.Handle(cmd)
	})
}

func supervisorFor(cfg config.MinecraftConfig, emitter busclient.Emitter, log zerolog.Logger) *supervisor.Minecraft {
	return supervisor.NewMinecraft(cfg, func(evt events.MinecraftEvent) {
		data, err := json.Marshal(evt)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode outbound minecraft event")
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
