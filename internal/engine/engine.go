// Package engine defines the transcoding engine the conversion driver talks to
// and provides the ffmpeg-backed implementation.
//
// An engine owns a private file namespace. Callers stage inputs with
// WriteFile, run one argument vector with Exec, collect results with
// ReadFile and clean up with DeleteFile. Progress and log lines are delivered
// to subscribers while Exec runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/smazurov/videosqueeze/internal/ffmpeg"
)

// Sentinel errors.
var (
	ErrNotLoaded   = errors.New("engine not loaded")
	ErrInvalidName = errors.New("invalid file name")
	ErrNoProbe     = errors.New("probe unavailable")
)

// EventKind names an engine event stream.
type EventKind string

// Event kinds.
const (
	EventProgress EventKind = "progress"
	EventLog      EventKind = "log"
)

// Event is delivered to subscribers of one kind.
type Event struct {
	Kind     EventKind
	Progress ffmpeg.Progress // EventProgress
	Level    string          // EventLog
	Message  string          // EventLog
}

// Handler receives engine events. It is called synchronously from the
// goroutine reading engine output and must not block.
type Handler func(Event)

// Engine is the capability set of an opaque transcoder.
type Engine interface {
	Load(ctx context.Context) error
	Loaded() bool
	WriteFile(ctx context.Context, name string, r io.Reader) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error
	Exec(ctx context.Context, args []string) error
	Subscribe(kind EventKind, h Handler) (unsubscribe func())
}

// MediaInfo describes a staged input.
type MediaInfo struct {
	Duration   time.Duration `json:"duration"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	VideoCodec string        `json:"video_codec,omitempty"`
	AudioCodec string        `json:"audio_codec,omitempty"`
}

// Prober is implemented by engines that can inspect a staged file.
type Prober interface {
	Probe(ctx context.Context, name string) (MediaInfo, error)
}

// ExecError reports an argument vector the engine rejected.
type ExecError struct {
	ExitCode int
	Args     []string
	Tail     []string // last log lines before the exit
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if n := len(e.Tail); n > 0 {
		msg += ": " + strings.TrimSpace(e.Tail[n-1])
	}
	return msg
}

// ValidName reports whether name can be used as a file in the engine namespace.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
