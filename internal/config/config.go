// Package config centralizes environment-driven configuration for
// gamebus processes, mirroring the lineage's internal/config.AgentConfig
// + Validate() pattern: one struct populated from the environment, with
// defaults filled in by the Load* functions and the transport addresses
// checked by ValidateListenAddress / ValidateConnectAddress.
package config

import (
	"os"
	"strconv"

	"github.com/blockhost/gamebus/internal/errs"
)

// Transport holds the two WebSocket addresses §6 of the spec defines.
// A process uses whichever of the two applies to its role.
type Transport struct {
	ListenAddress  string // WS_LISTEN_ADDRESS, broker only
	ConnectAddress string // WS_CONNECT_ADDRESS, every other process
}

// LoadTransport reads WS_LISTEN_ADDRESS and WS_CONNECT_ADDRESS from the
// environment. Neither is validated here: callers check whichever one
// their role requires.
func LoadTransport() Transport {
	return Transport{
		ListenAddress:  os.Getenv("WS_LISTEN_ADDRESS"),
		ConnectAddress: os.Getenv("WS_CONNECT_ADDRESS"),
	}
}

// ValidateListenAddress returns errs.ErrMissingListenAddress if unset.
func (t Transport) ValidateListenAddress() error {
	if t.ListenAddress == "" {
		return errs.ErrMissingListenAddress
	}
	return nil
}

// ValidateConnectAddress returns errs.ErrMissingConnectAddress if unset.
func (t Transport) ValidateConnectAddress() error {
	if t.ConnectAddress == "" {
		return errs.ErrMissingConnectAddress
	}
	return nil
}

// MinecraftConfig holds the environment-driven configuration table from
// spec.md §4.4 for the Minecraft supervisor.
type MinecraftConfig struct {
	ServerDir  string // MINECRAFT_SERVER; presence enables this supervisor
	ServerJar  string // MINECRAFT_SERVER_JAR, default "server.jar"
	MaxMemory  string // MINECRAFT_MAX_MEMORY, default "4G"
	WorldName  string // MINECRAFT_WORLD_NAME, default "world"
	BackupPath string // MINECRAFT_BACKUP_PATH; absence disables backups
}

// LoadMinecraftConfig reads the Minecraft supervisor's configuration
// from the environment and applies defaults. ok is false when
// MINECRAFT_SERVER is unset, meaning the Minecraft supervisor is not
// enabled for this process.
func LoadMinecraftConfig() (cfg MinecraftConfig, ok bool) {
	cfg.ServerDir = os.Getenv("MINECRAFT_SERVER")
	if cfg.ServerDir == "" {
		return MinecraftConfig{}, false
	}
	cfg.ServerJar = orDefault(os.Getenv("MINECRAFT_SERVER_JAR"), "server.jar")
	cfg.MaxMemory = orDefault(os.Getenv("MINECRAFT_MAX_MEMORY"), "4G")
	cfg.WorldName = orDefault(os.Getenv("MINECRAFT_WORLD_NAME"), "world")
	cfg.BackupPath = os.Getenv("MINECRAFT_BACKUP_PATH")
	return cfg, true
}

// BackupsEnabled reports whether a backup destination was configured.
func (c MinecraftConfig) BackupsEnabled() bool {
	return c.BackupPath != ""
}

// ValheimConfig holds the environment-driven configuration table from
// spec.md §4.4 for the Valheim supervisor.
type ValheimConfig struct {
	ServerDir string // VALHEIM_SERVER; presence enables this supervisor
	Name      string // VALHEIM_NAME
	World     string // VALHEIM_WORLD
	Password  string // VALHEIM_PASSWORD
	WorldDB   string // VALHEIM_WORLD_DB, required only for QueryHaldor
}

// LoadValheimConfig reads the Valheim supervisor's configuration from
// the environment. ok is false when VALHEIM_SERVER is unset.
func LoadValheimConfig() (cfg ValheimConfig, ok bool) {
	cfg.ServerDir = os.Getenv("VALHEIM_SERVER")
	if cfg.ServerDir == "" {
		return ValheimConfig{}, false
	}
	cfg.Name = os.Getenv("VALHEIM_NAME")
	cfg.World = os.Getenv("VALHEIM_WORLD")
	cfg.Password = os.Getenv("VALHEIM_PASSWORD")
	cfg.WorldDB = os.Getenv("VALHEIM_WORLD_DB")
	return cfg, true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// envOrDefaultInt parses an integer environment variable, falling back
// to def on absence or parse failure. It is unexported and nothing in
// the repository calls it at present.
func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
