// Package enginetest provides a scripted in-memory engine for tests.
package enginetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/ffmpeg"
)

// Call records one engine method invocation.
type Call struct {
	Method string
	Name   string   // file operations
	Args   []string // Exec
}

// Fake is an engine.Engine and engine.Prober whose behaviour is scripted by
// its exported fields. Set fields before handing the fake to the code under test.
type Fake struct {
	LoadErr   error
	ExecErr   error         // returned by Exec after progress is emitted
	DeleteErr error         // returned by DeleteFile
	Progress  []float64     // fractions emitted during Exec
	Logs      []string      // log lines emitted during Exec
	Output    []byte        // written to the last Exec argument on success
	Duration  time.Duration // returned by Probe; 0 makes Probe fail
	// ExecGate, when set, makes Exec wait until it is closed or ctx ends.
	ExecGate chan struct{}
	// ExecStarted, when set, receives once per Exec before it waits on ExecGate.
	ExecStarted chan struct{}

	subs engine.Subscribers

	mu        sync.Mutex
	loaded    bool
	files     map[string][]byte
	calls     []Call
	executing int
	maxExec   int
}

// New returns a fake producing a small output file.
func New() *Fake {
	return &Fake{
		Output:   []byte("compressed"),
		Progress: []float64{0.25, 0.5, 1},
		files:    make(map[string][]byte),
	}
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Load implements engine.Engine.
func (f *Fake) Load(context.Context) error {
	f.record(Call{Method: "Load"})
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.mu.Lock()
	f.loaded = true
	f.mu.Unlock()
	return nil
}

// Loaded implements engine.Engine.
func (f *Fake) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// WriteFile implements engine.Engine.
func (f *Fake) WriteFile(_ context.Context, name string, r io.Reader) error {
	f.record(Call{Method: "WriteFile", Name: name})
	if err := engine.ValidName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return engine.ErrNotLoaded
	}
	f.files[name] = data
	return nil
}

// ReadFile implements engine.Engine.
func (f *Fake) ReadFile(_ context.Context, name string) ([]byte, error) {
	f.record(Call{Method: "ReadFile", Name: name})
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return bytes.Clone(data), nil
}

// DeleteFile implements engine.Engine.
func (f *Fake) DeleteFile(_ context.Context, name string) error {
	f.record(Call{Method: "DeleteFile", Name: name})
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, fs.ErrNotExist)
	}
	delete(f.files, name)
	return nil
}

// Subscribe implements engine.Engine.
func (f *Fake) Subscribe(kind engine.EventKind, h engine.Handler) func() {
	return f.subs.Add(kind, h)
}

// Exec implements engine.Engine. It requires the -i input to be staged,
// emits the scripted events, then fails with ExecErr or writes Output.
func (f *Fake) Exec(ctx context.Context, args []string) error {
	f.record(Call{Method: "Exec", Args: slices.Clone(args)})

	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return engine.ErrNotLoaded
	}
	f.executing++
	f.maxExec = max(f.maxExec, f.executing)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.executing--
		f.mu.Unlock()
	}()

	if f.ExecStarted != nil {
		f.ExecStarted <- struct{}{}
	}
	if f.ExecGate != nil {
		select {
		case <-f.ExecGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if i := slices.Index(args, "-i"); i == -1 || i+1 >= len(args) || !f.HasFile(args[i+1]) {
		return &engine.ExecError{ExitCode: 1, Args: args, Tail: []string{"No such file or directory"}}
	}

	for _, line := range f.Logs {
		level, msg := ffmpeg.ParseLogLevel(line)
		f.subs.Emit(engine.Event{Kind: engine.EventLog, Level: level, Message: msg})
	}
	for _, p := range f.Progress {
		f.subs.Emit(engine.Event{Kind: engine.EventProgress, Progress: ffmpeg.Progress{Progress: p, Done: p >= 1}})
	}

	if f.ExecErr != nil {
		return f.ExecErr
	}

	f.mu.Lock()
	f.files[args[len(args)-1]] = bytes.Clone(f.Output)
	f.mu.Unlock()
	return nil
}

// Probe implements engine.Prober.
func (f *Fake) Probe(_ context.Context, name string) (engine.MediaInfo, error) {
	f.record(Call{Method: "Probe", Name: name})
	if f.Duration <= 0 {
		return engine.MediaInfo{}, engine.ErrNoProbe
	}
	return engine.MediaInfo{Duration: f.Duration}, nil
}

// HasFile reports whether name is staged.
func (f *Fake) HasFile(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[name]
	return ok
}

// Files returns the staged file names.
func (f *Fake) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for n := range f.files {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Calls returns every recorded invocation in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how often method was invoked.
func (f *Fake) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastExecArgs returns the arguments of the most recent Exec.
func (f *Fake) LastExecArgs() []string {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == "Exec" {
			return calls[i].Args
		}
	}
	return nil
}

// MaxConcurrentExec returns the highest number of overlapping Exec calls seen.
func (f *Fake) MaxConcurrentExec() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxExec
}

// Subscribers returns how many handlers are attached for kind.
func (f *Fake) Subscribers(kind engine.EventKind) int {
	return f.subs.Len(kind)
}

var (
	_ engine.Engine = (*Fake)(nil)
	_ engine.Prober = (*Fake)(nil)
)
