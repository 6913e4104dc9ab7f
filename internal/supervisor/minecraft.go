package supervisor

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/config"
	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/events"
	"github.com/blockhost/gamebus/internal/logging"
	"github.com/blockhost/gamebus/internal/parser"
)

// Minecraft supervises one Minecraft dedicated-server child process.
// Construct with NewMinecraft and call Handle for every inbound
// MinecraftCommand; outbound events are delivered via the emit
// callback given to NewMinecraft.
type Minecraft struct {
	cfg  config.MinecraftConfig
	proc *process
	log  zerolog.Logger

	emit  func(events.MinecraftEvent)
	state *parser.MinecraftState
}

// NewMinecraft builds a Minecraft supervisor. emit is invoked for every
// outbound event, including line-parser-derived ones.
func NewMinecraft(cfg config.MinecraftConfig, emit func(events.MinecraftEvent)) *Minecraft {
	log := logging.For("supervisor.minecraft")
	return &Minecraft{
		cfg:   cfg,
		proc:  newProcess(log),
		log:   log,
		emit:  emit,
		state: parser.NewMinecraftState(),
	}
}

// Handle dispatches one inbound command, per spec.md §4.4's table.
func (m *Minecraft) Handle(cmd events.MinecraftCommand) {
	switch cmd.Kind {
	case events.MCStart:
		m.start()
	case events.MCStop:
		m.stop()
	case events.MCSave:
		m.writeOrInfo("save-all")
	case events.MCChat:
		m.writeOrInfo(fmt.Sprintf("say (Discord) %s: %s", cmd.ChatUser, cmd.ChatText))
	case events.MCTp:
		m.writeOrInfo(fmt.Sprintf("tp %s %s", cmd.TpPlayer, cmd.TpTarget))
	case events.MCTpLoc:
		loc := cmd.TpLocTarget
		m.writeOrInfo(fmt.Sprintf("execute as %s in %s run teleport %v %v %v", cmd.TpLocPlayer, loc.Realm, loc.X, loc.Y, loc.Z))
	case events.MCQueryPlayers:
		m.emit(events.MinecraftEvent{Kind: events.MCEPlayers, Players: m.state.Players()})
	case events.MCBackupWorld:
		m.backup()
	case events.MCCommand:
		m.writeOrInfo(cmd.CommandText)
	case events.MCWhitelist:
		m.writeOrInfo(fmt.Sprintf("whitelist %s %s", cmd.WhitelistAction, cmd.WhitelistPlayer))
	case events.MCStatus:
		m.emit(events.MinecraftEvent{
			Kind:          events.MCEStatusReply,
			StatusRunning: m.proc.isRunning(),
			StatusUptime:  m.proc.uptime().Seconds(),
		})
	}
}

func (m *Minecraft) writeOrInfo(line string) {
	if err := m.proc.writeLine(line); err != nil {
		m.emit(events.Info(err.Error()))
	}
}

func (m *Minecraft) start() {
	if m.proc.isRunning() {
		m.emit(events.Info(errs.ErrAlreadyRunning.Error()))
		return
	}

	jarPath := filepath.Join(m.cfg.ServerDir, m.cfg.ServerJar)
	cmd := exec.Command("java", fmt.Sprintf("-Xmx%s", m.cfg.MaxMemory), "-jar", jarPath, "nogui")
	cmd.Dir = m.cfg.ServerDir

	if err := m.proc.start(cmd, m.onLine); err != nil {
		m.emit(events.Info(err.Error()))
	}
}

func (m *Minecraft) stop() {
	if !m.proc.isRunning() {
		m.emit(events.Info(errs.ErrNotRunning.Error()))
		return
	}
	if err := m.proc.writeLine("stop"); err != nil {
		m.emit(events.Info(err.Error()))
		return
	}
	if err := m.proc.wait(); err != nil {
		m.emit(events.Info(err.Error()))
	}
}

func (m *Minecraft) backup() {
	if !m.cfg.BackupsEnabled() {
		m.emit(events.Info(errs.ErrBackupsDisabled.Error()))
		return
	}

	dir, total, err := backupWorld(m.cfg.ServerDir, m.cfg.BackupPath, time.Now())
	if err != nil {
		m.emit(events.Info(err.Error()))
		return
	}
	m.emit(events.MinecraftEvent{Kind: events.MCEBackupComplete, BackupDir: dir, BackupBytes: total})
}

// onLine is the stdout line handler wired into process.start: it runs
// the line through the parser pipeline and emits whatever event (if
// any) results.
func (m *Minecraft) onLine(line string) {
	evt, ok := parser.ParseMinecraftLine(line, m.state)
	if !ok {
		m.log.Trace().Str("line", line).Msg("unmatched minecraft line")
		return
	}
	m.emit(evt)
}
