package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcess creates a Process running sh -c script with short timeouts.
func newTestProcess(script string) *Process {
	p := New("test", "sh", []string{"-c", script}, testLogger())
	p.gracefulTimeout = 100 * time.Millisecond
	p.killTimeout = 100 * time.Millisecond
	return p
}

type runResult struct {
	code int
	err  error
}

// runAsync runs the process in a goroutine and returns its result channel.
func runAsync(ctx context.Context, p *Process) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		code, err := p.Run(ctx)
		done <- runResult{code, err}
	}()
	return done
}

// waitForExit waits for the result with timeout, fails test on timeout.
func waitForExit(t *testing.T, done <-chan runResult, timeout time.Duration) runResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return runResult{}
	}
}

func TestRunSuccess(t *testing.T) {
	code, err := newTestProcess("true").Run(context.Background())
	if err != nil || code != 0 {
		t.Errorf("Run() = %d, %v; want 0, nil", code, err)
	}
}

func TestRunExitCode(t *testing.T) {
	code, err := newTestProcess("exit 42").Run(context.Background())
	if err != nil {
		t.Errorf("non-zero exit should not be an error, got %v", err)
	}
	if code != 42 {
		t.Errorf("expected exit code 42, got %d", code)
	}
}

func TestRunNonExistentCommand(t *testing.T) {
	p := New("test", "/nonexistent/command/that/does/not/exist", nil, testLogger())
	code, err := p.Run(context.Background())
	if err == nil || code != 1 {
		t.Errorf("Run() = %d, %v; want 1 and a start error", code, err)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	p := New("test", "", nil, testLogger())
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess("trap 'exit 0' INT TERM; while :; do sleep 0.1; done")
	p.gracefulTimeout = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p)
	time.Sleep(100 * time.Millisecond)
	cancel()

	r := waitForExit(t, done, time.Second)
	if r.code != 0 {
		t.Errorf("expected exit code 0, got %d", r.code)
	}
	if !errors.Is(r.err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", r.err)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess("trap '' INT; sleep 10")
	p.gracefulTimeout = 50 * time.Millisecond
	p.killTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p)
	time.Sleep(50 * time.Millisecond)
	cancel()

	if r := waitForExit(t, done, time.Second); r.code != ExitCodeKilled {
		t.Errorf("expected exit code %d, got %d", ExitCodeKilled, r.code)
	}
}

func TestOutputHandler(t *testing.T) {
	var mu sync.Mutex
	got := map[string][]string{}
	p := newTestProcess("echo out1; echo err1 >&2; echo out2")
	p.SetOutputHandler(OutputHandlerFunc(func(source, line string) {
		mu.Lock()
		defer mu.Unlock()
		got[source] = append(got[source], line)
	}))

	if code, err := p.Run(context.Background()); err != nil || code != 0 {
		t.Fatalf("Run() = %d, %v", code, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got["stdout"]) != 2 || got["stdout"][1] != "out2" {
		t.Errorf("stdout lines = %v", got["stdout"])
	}
	if len(got["stderr"]) != 1 || got["stderr"][0] != "err1" {
		t.Errorf("stderr lines = %v", got["stderr"])
	}
}

func TestLogParserSeesSource(t *testing.T) {
	var mu sync.Mutex
	sources := map[string]int{}
	p := newTestProcess(`echo "[error] bad" >&2; echo "progress=end"`)
	p.SetLogParser(testLogger(), func(source, line string) (string, string) {
		mu.Lock()
		sources[source]++
		mu.Unlock()
		return "info", line
	})

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sources["stdout"] != 1 || sources["stderr"] != 1 {
		t.Errorf("parser calls by source = %v", sources)
	}
}

func TestSetDir(t *testing.T) {
	dir := t.TempDir()
	var line string
	p := newTestProcess("pwd")
	p.SetDir(dir)
	p.SetOutputHandler(OutputHandlerFunc(func(_, l string) { line = l }))

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if line == "" {
		t.Error("no output from pwd")
	}
}

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"ffmpeg", "-i", "input.mp4"}, "ffmpeg -i input.mp4"},
		{[]string{"echo", "hello world"}, "echo 'hello world'"},
		{[]string{"echo", "it's"}, `echo 'it'\''s'`},
		{[]string{"echo", ""}, "echo ''"},
	}
	for _, tt := range tests {
		if got := FormatCommand(tt.args); got != tt.want {
			t.Errorf("FormatCommand(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
