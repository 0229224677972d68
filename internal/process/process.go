package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/videosqueeze/internal/logging"
)

// ExitCodeKilled is reported when the process had to be force killed.
const ExitCodeKilled = 137

// OutputHandler receives output lines from the subprocess.
// HandleLine is called from one goroutine per source.
type OutputHandler interface {
	HandleLine(source, line string)
}

// OutputHandlerFunc adapts a function to OutputHandler.
type OutputHandlerFunc func(source, line string)

// HandleLine calls f.
func (f OutputHandlerFunc) HandleLine(source, line string) { f(source, line) }

// LogParser parses a log line and returns the log level and message.
// Source is "stdout" or "stderr".
type LogParser func(source, line string) (level, msg string)

// Process manages one run of a subprocess.
type Process struct {
	id              string
	path            string
	args            []string
	dir             string
	mu              sync.Mutex
	cmd             *exec.Cmd
	logger          logging.Logger
	processLogger   logging.Logger // logger for process output (nil = use logger)
	logParser       LogParser      // nil = every line at info
	outputHandler   OutputHandler
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after Kill() before giving up
}

// New creates a process for path with args. Nothing runs until Run.
func New(id, path string, args []string, logger logging.Logger) *Process {
	return &Process{
		id:              id,
		path:            path,
		args:            args,
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// SetDir sets the working directory of the subprocess.
func (p *Process) SetDir(dir string) {
	p.dir = dir
}

// SetOutputHandler sets the handler that receives every output line.
func (p *Process) SetOutputHandler(h OutputHandler) {
	p.outputHandler = h
}

// SetLogParser sets a custom logger and log parser for process output.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetGracefulTimeout sets how long Run waits after SIGINT before killing.
func (p *Process) SetGracefulTimeout(d time.Duration) {
	p.gracefulTimeout = d
}

// Command returns the command line in a form a shell would accept.
func (p *Process) Command() string {
	return FormatCommand(append([]string{p.path}, p.args...))
}

// Run starts the subprocess and blocks until it exits or ctx is done.
// It returns the exit code. The error is non-nil when the process could not
// be started or was stopped because ctx ended.
func (p *Process) Run(ctx context.Context) (int, error) {
	if p.path == "" {
		return 1, errors.New("empty command")
	}

	cmd := exec.Command(p.path, p.args...)
	cmd.Dir = p.dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		p.logger.Error("Failed to start process", "error", err, "command", p.Command())
		return 1, fmt.Errorf("start %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	p.logger.Debug("Process started", "id", p.id, "pid", cmd.Process.Pid, "command", p.Command())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.streamOutput(stdout, "stdout")
	}()
	go func() {
		defer wg.Done()
		p.streamOutput(stderr, "stderr")
	}()

	// Wait must not run before the pipes are drained.
	processDone := make(chan error, 1)
	go func() {
		wg.Wait()
		processDone <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		p.logger.Info("Context cancelled, stopping process", "id", p.id)
		p.sendStopSignal()
		return p.waitForExit(processDone, p.gracefulTimeout), ctx.Err()
	case processErr := <-processDone:
		exitCode := exitCodeFromError(processErr)
		var exitErr *exec.ExitError
		if processErr != nil && !errors.As(processErr, &exitErr) {
			p.logger.Error("Process exited with error", "error", processErr)
			return exitCode, processErr
		}
		p.logger.Debug("Process exited", "id", p.id, "exit_code", exitCode)
		return exitCode, nil
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
func (p *Process) sendStopSignal() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	// The child leads its own group; signal the whole group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGINT); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// waitForExit waits for the process to exit with a timeout, force-killing if needed.
func (p *Process) waitForExit(processDone <-chan error, timeout time.Duration) int {
	select {
	case err := <-processDone:
		return exitCodeFromError(err)
	case <-time.After(timeout):
		p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", timeout)
		p.mu.Lock()
		cmd := p.cmd
		p.mu.Unlock()
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			p.logger.Error("Failed to kill process", "error", err)
		}
		select {
		case <-processDone:
		case <-time.After(p.killTimeout):
			p.logger.Error("Process did not exit after kill signal")
		}
		return ExitCodeKilled
	}
}

// streamOutput forwards each line to the output handler and the process logger.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		level, msg := "info", line
		if p.logParser != nil {
			level, msg = p.logParser(source, line)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "verbose", "debug", "trace":
			logger.Debug(msg)
		case "quiet":
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
}

// FormatCommand joins args into a single shell-quoted line for logs and dry runs.
func FormatCommand(args []string) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quoteArg(a))
	}
	return b.String()
}

func quoteArg(a string) string {
	if a == "" {
		return "''"
	}
	if !strings.ContainsAny(a, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return a
	}
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}
