// Package supervisor implements the process supervisor (C4): it owns a
// dedicated-server child process, writes commands to its stdin, and
// streams its stdout line-by-line into the parser pipeline (package
// parser). Minecraft and Valheim supervisors share the process
// lifecycle in this file and differ only in their command tables and
// launch parameters (minecraft.go, valheim.go).
package supervisor

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockhost/gamebus/internal/errs"
)

// process is the child-process state of spec.md §3's "Child process
// state" record: start_command_template is implicit in how the caller
// builds *exec.Cmd; stdin is Some iff child is Some; stdout_handler is
// invoked on every complete line until EOF.
type process struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	running   bool
	startedAt time.Time

	log zerolog.Logger
}

func newProcess(log zerolog.Logger) *process {
	return &process{log: log}
}

// start spawns cmd, wiring its stdin for later writes and its stdout
// through a line scanner that invokes onLine for each complete line on
// a dedicated goroutine — the Go rendering of spec.md §5's "dedicated
// OS thread ... communicates into the async world through an unbounded
// FIFO" (here, direct callback invocation rather than an explicit
// queue, since the callback itself only enqueues onto the client
// runtime's already-unbounded out queue).
func (p *process) start(cmd *exec.Cmd, onLine func(string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errs.ErrAlreadyRunning
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return err
	}

	p.cmd = cmd
	p.stdin = stdin
	p.running = true
	p.startedAt = time.Now()

	go p.scan(stdout, onLine)

	return nil
}

func (p *process) scan(stdout io.Reader, onLine func(string)) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		onLine(line)
	}
	if err := scanner.Err(); err != nil {
		p.log.Warn().Err(err).Msg("stdout scanner stopped with an error")
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// writeLine writes text plus a trailing newline to the child's stdin.
// Returns errs.ErrNotRunning if no child is running.
func (p *process) writeLine(text string) error {
	p.mu.Lock()
	stdin := p.stdin
	running := p.running
	p.mu.Unlock()

	if !running || stdin == nil {
		return errs.ErrNotRunning
	}
	_, err := io.WriteString(stdin, text+"\n")
	return err
}

// isRunning reports whether a child is currently alive.
func (p *process) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// uptime returns how long the current child has been running, or 0 if
// none is running.
func (p *process) uptime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.startedAt)
}

// wait blocks until the child process exits and marks it stopped.
// Called from Stop implementations after sending the stop signal.
func (p *process) wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()

	if cmd == nil {
		return errs.ErrNotRunning
	}
	err := cmd.Wait()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return err
}

// killProcess sends an OS-level kill, used by Valheim's Stop path
// (spec.md §4.4: "the Valheim server does not stop cleanly from
// stdin"). Minecraft never calls this; it always stops via its typed
// stdin command.
func (p *process) killProcess() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return errs.ErrNotRunning
	}
	return cmd.Process.Kill()
}
