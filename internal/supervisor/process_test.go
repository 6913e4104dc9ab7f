package supervisor

import (
	"os/exec"
	"testing"
	"time"

	"github.com/blockhost/gamebus/internal/errs"
	"github.com/blockhost/gamebus/internal/logging"
)

func TestProcessWriteLineWithoutStartReturnsNotRunning(t *testing.T) {
	p := newProcess(logging.For("test"))
	if err := p.writeLine("hello"); err != errs.ErrNotRunning {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestProcessStartTwiceReturnsAlreadyRunning(t *testing.T) {
	p := newProcess(logging.For("test"))
	lines := make(chan string, 8)

	if err := p.start(exec.Command("cat"), func(l string) { lines <- l }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		p.writeLine("")
		p.killProcess()
	}()

	if err := p.start(exec.Command("cat"), func(l string) { lines <- l }); err != errs.ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning on second start, got %v", err)
	}
}

func TestProcessEchoesLinesThroughStdinStdout(t *testing.T) {
	p := newProcess(logging.For("test"))
	lines := make(chan string, 8)

	if err := p.start(exec.Command("cat"), func(l string) { lines <- l }); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := p.writeLine("hello supervisor"); err != nil {
		t.Fatalf("writeLine: %v", err)
	}

	select {
	case got := <-lines:
		if got != "hello supervisor" {
			t.Errorf("got %q, want %q", got, "hello supervisor")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the line written to stdin to be echoed back via stdout")
	}

	p.killProcess()
	p.wait()
}
