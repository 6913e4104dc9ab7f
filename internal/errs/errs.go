// Package errs collects the sentinel errors shared across gamebus
// components. Components wrap these with fmt.Errorf("%w", ...) when they
// need to attach context.
package errs

import "errors"

// Configuration errors.
var (
	ErrMissingListenAddress  = errors.New("WS_LISTEN_ADDRESS is required")
	ErrMissingConnectAddress = errors.New("WS_CONNECT_ADDRESS is required")
	ErrMissingAPIName        = errors.New("api name is required")
	ErrNoSupervisorEnabled   = errors.New("no supervisor configuration found in the environment")
)

// Handshake / protocol errors.
var (
	ErrUnexpectedHandshake = errors.New("unexpected handshake variant")
	ErrMalformedFrame      = errors.New("malformed frame")
)

// Supervisor precondition errors.
var (
	ErrAlreadyRunning = errors.New("server is already running")
	ErrNotRunning     = errors.New("server is not running")
)

// Supervisor configuration errors.
var (
	ErrMissingServerDir  = errors.New("server directory is required")
	ErrBackupsDisabled   = errors.New("MINECRAFT_BACKUP_PATH is not set, backups are disabled")
	ErrMissingWorldDB    = errors.New("VALHEIM_WORLD_DB is required for the haldor scan")
)

// Client runtime errors.
var (
	ErrClientClosed  = errors.New("client runtime is closed")
	ErrRequestTimeout = errors.New("request/reply timed out waiting for a response")
)
