package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/config"
	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/events"
	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/parser"
)

// Valheim supervises one Valheim dedicated-server child process.
type Valheim struct {
	cfg  config.ValheimConfig
	proc *process
	log  zerolog.Logger

	emit  func(events.ValheimEvent)
	state *parser.ValheimState
}

// NewValheim builds a Valheim supervisor. emit is invoked for every
// outbound event.
func NewValheim(cfg config.ValheimConfig, emit func(events.ValheimEvent)) *Valheim {
	log := logging.For("supervisor.valheim")
	return &Valheim{
		cfg:   cfg,
		proc:  newProcess(log),
		log:   log,
		emit:  emit,
		state: parser.NewValheimState(false),
	}
}

// Handle dispatches one inbound command, per spec.md §4.4's table.
func (v *Valheim) Handle(cmd events.ValheimCommand) {
	switch cmd.Kind {
	case events.VCStart:
		v.start(cmd.Crossplay)
	case events.VCStop:
		v.stop()
	case events.VCQueryHaldor:
		v.queryHaldor()
	case events.VCStatus:
		v.emit(events.ValheimEvent{
			Kind:          events.VEStatusReply,
			StatusRunning: v.proc.isRunning(),
			StatusUptime:  v.proc.uptime().Seconds(),
		})
	}
}

func (v *Valheim) start(crossplay bool) {
	if v.proc.isRunning() {
		v.emit(events.ValheimInfo(errs.ErrAlreadyRunning.Error()))
		return
	}

	appID, err := readSteamAppID(v.cfg.ServerDir)
	if err != nil {
		v.emit(events.ValheimInfo(err.Error()))
		return
	}

	args := []string{
		"-nographics", "-batchmode",
		"-name", v.cfg.Name,
		"-port", "2456",
		"-world", v.cfg.World,
		"-password", v.cfg.Password,
		"-public", "0",
	}
	if crossplay {
		args = append(args, "-crossplay")
	}

	cmd := exec.Command("valheim_server", args...)
	cmd.Dir = v.cfg.ServerDir
	cmd.Env = append(os.Environ(), fmt.Sprintf("SteamAppId=%s", appID))

	v.state = parser.NewValheimState(crossplay)

	if err := v.proc.start(cmd, v.onLine); err != nil {
		v.emit(events.ValheimInfo(err.Error()))
	}
}

// readSteamAppID reads steam_appid.txt from the server directory, per
// spec.md §4.4's "environment SteamAppId=<appid> read from the server
// dir's steam_appid.txt".
func readSteamAppID(serverDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(serverDir, "steam_appid.txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// stop ends the child without writing to its stdin, since Valheim does
// not stop cleanly from stdin: on Windows it runs taskkill, on any other
// OS it kills the child process directly, then waits for it to exit.
func (v *Valheim) stop() {
	if !v.proc.isRunning() {
		v.emit(events.ValheimInfo(errs.ErrNotRunning.Error()))
		return
	}

	if runtime.GOOS == "windows" {
		killCmd := exec.Command("taskkill", "/IM", "valheim_server.exe")
		if err := killCmd.Run(); err != nil {
			v.emit(events.ValheimInfo(err.Error()))
			return
		}
	} else if err := v.proc.killProcess(); err != nil {
		v.emit(events.ValheimInfo(err.Error()))
		return
	}

	if err := v.proc.wait(); err != nil {
		v.emit(events.ValheimInfo(err.Error()))
	}
}

func (v *Valheim) queryHaldor() {
	if v.cfg.WorldDB == "" {
		v.emit(events.ValheimInfo(errs.ErrMissingWorldDB.Error()))
		return
	}
	points := scanHaldor(v.cfg.WorldDB)
	v.emit(events.ValheimEvent{Kind: events.VEHaldor, HaldorPoints: points})
}

func (v *Valheim) onLine(line string) {
	evt, ok := parser.ParseValheimLine(line, v.state)
	if !ok {
		v.log.Trace().Str("line", line).Msg("unmatched valheim line")
		return
	}
	v.emit(evt)
}
