package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/videosqueeze/internal/ffmpeg"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/process"
)

// tailLines is how many log lines an ExecError keeps.
const tailLines = 8

// Config configures the ffmpeg engine.
type Config struct {
	FFmpegPath      string        // binary name or path, resolved through PATH
	FFprobePath     string        // empty disables probing
	WorkDir         string        // empty creates a temporary directory
	Threads         int           // 0 lets ffmpeg decide
	GracefulTimeout time.Duration // SIGINT to SIGKILL delay on shutdown
}

// FFmpeg runs the ffmpeg binary inside a private working directory.
type FFmpeg struct {
	cfg     Config
	logger  logging.Logger
	ffLog   logging.Logger
	subs    Subscribers
	mu      sync.RWMutex
	loaded  bool
	ffmpeg  string
	ffprobe string
	dir     string
	ownsDir bool
	version string
}

// NewFFmpeg creates an unloaded engine.
func NewFFmpeg(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		cfg:    cfg,
		logger: logging.GetLogger("engine"),
		ffLog:  logging.GetLogger("ffmpeg"),
	}
}

// Load resolves the binaries, checks that ffmpeg runs and prepares the
// working directory. Loading an already loaded engine is a no-op.
func (f *FFmpeg) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loaded {
		return nil
	}

	bin, err := exec.LookPath(f.cfg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("locate ffmpeg: %w", err)
	}

	var probe string
	if f.cfg.FFprobePath != "" {
		probe, err = exec.LookPath(f.cfg.FFprobePath)
		if err != nil {
			f.logger.Warn("ffprobe not found, durations come from the input banner", "path", f.cfg.FFprobePath)
			probe = ""
		}
	}

	version, err := f.runCapture(ctx, bin, "-hide_banner", "-version")
	if err != nil {
		return fmt.Errorf("run %s -version: %w", bin, err)
	}

	dir, owns := f.cfg.WorkDir, false
	if dir == "" {
		dir, err = os.MkdirTemp("", "videosqueeze-*")
		owns = true
	} else {
		err = os.MkdirAll(dir, 0o750)
	}
	if err != nil {
		return fmt.Errorf("prepare work dir: %w", err)
	}

	f.ffmpeg, f.ffprobe, f.dir, f.ownsDir = bin, probe, dir, owns
	f.version = firstLine(version)
	f.loaded = true
	f.logger.Info("Engine loaded", "ffmpeg", bin, "ffprobe", probe, "work_dir", dir, "version", f.version)
	return nil
}

// Loaded reports whether Load succeeded.
func (f *FFmpeg) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// Version returns the first line of ffmpeg -version once loaded.
func (f *FFmpeg) Version() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// WorkDir returns the engine's working directory once loaded.
func (f *FFmpeg) WorkDir() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dir
}

func (f *FFmpeg) path(name string) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded {
		return "", ErrNotLoaded
	}
	return filepath.Join(f.dir, name), nil
}

// WriteFile stores r under name, replacing any previous content.
func (f *FFmpeg) WriteFile(ctx context.Context, name string, r io.Reader) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}

	file, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(file, contextReader{ctx: ctx, r: r}); err != nil {
		_ = file.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return file.Close()
}

// ReadFile returns the content stored under name.
func (f *FFmpeg) ReadFile(_ context.Context, name string) ([]byte, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile removes name. Missing files report an error wrapping fs.ErrNotExist.
func (f *FFmpeg) DeleteFile(_ context.Context, name string) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Subscribe registers h for events of kind.
func (f *FFmpeg) Subscribe(kind EventKind, h Handler) func() {
	return f.subs.Add(kind, h)
}

// Exec runs ffmpeg with args after the engine's global flags. A non-zero exit
// returns *ExecError.
func (f *FFmpeg) Exec(ctx context.Context, args []string) error {
	f.mu.RLock()
	loaded, bin, dir := f.loaded, f.ffmpeg, f.dir
	f.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}

	full := append(ffmpeg.BaseArgs(ffmpeg.BaseOptions{Threads: f.cfg.Threads}), args...)
	out := newExecOutput(args, &f.subs)

	p := process.New("ffmpeg", bin, full, f.logger)
	p.SetDir(dir)
	p.SetOutputHandler(out)
	p.SetLogParser(f.ffLog, func(source, line string) (string, string) {
		if source == "stdout" {
			return "trace", line
		}
		return ffmpeg.ParseLogLevel(line)
	})
	if f.cfg.GracefulTimeout > 0 {
		p.SetGracefulTimeout(f.cfg.GracefulTimeout)
	}

	f.logger.Debug("Running ffmpeg", "command", p.Command())
	code, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if code != 0 {
		return &ExecError{ExitCode: code, Args: args, Tail: out.tail()}
	}
	return nil
}

// Probe reads the duration, frame size and codecs of a staged file.
func (f *FFmpeg) Probe(ctx context.Context, name string) (MediaInfo, error) {
	p, err := f.path(name)
	if err != nil {
		return MediaInfo{}, err
	}
	f.mu.RLock()
	bin := f.ffprobe
	f.mu.RUnlock()
	if bin == "" {
		return MediaInfo{}, ErrNoProbe
	}

	out, err := f.runCapture(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,codec_name,width,height",
		"-of", "json",
		p)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", name, err)
	}
	return parseProbe([]byte(out))
}

// Close removes a working directory the engine created itself.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = false
	if f.ownsDir && f.dir != "" {
		return os.RemoveAll(f.dir)
	}
	return nil
}

// runCapture runs a short helper command and returns its stdout.
func (f *FFmpeg) runCapture(ctx context.Context, bin string, args ...string) (string, error) {
	var (
		mu     sync.Mutex
		stdout strings.Builder
		stderr []string
	)
	p := process.New(filepath.Base(bin), bin, args, f.logger)
	p.SetLogParser(f.logger, func(string, line string) (string, string) { return "trace", line })
	p.SetOutputHandler(process.OutputHandlerFunc(func(source, line string) {
		mu.Lock()
		defer mu.Unlock()
		if source == "stdout" {
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		} else {
			stderr = append(stderr, line)
		}
	}))

	code, err := p.Run(ctx)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", &ExecError{ExitCode: code, Args: args, Tail: stderr}
	}
	return stdout.String(), nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func parseProbe(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info MediaInfo
	if secs, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec, info.Width, info.Height = s.CodecName, s.Width, s.Height
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		}
	}
	return info, nil
}

// execOutput turns one run's output into engine events.
type execOutput struct {
	subs     *Subscribers
	progress *ffmpeg.ProgressParser
	mu       sync.Mutex
	last     []string
}

func newExecOutput(args []string, subs *Subscribers) *execOutput {
	return &execOutput{subs: subs, progress: ffmpeg.NewProgressParser(args)}
}

// HandleLine is called from the stdout and stderr readers concurrently.
func (o *execOutput) HandleLine(source, line string) {
	o.mu.Lock()
	if source == "stdout" {
		pr, ok := o.progress.ParseProgressLine(line)
		o.mu.Unlock()
		if ok {
			o.subs.Emit(Event{Kind: EventProgress, Progress: pr})
		}
		return
	}

	o.progress.ParseLogLine(line)
	o.last = append(o.last, line)
	if len(o.last) > tailLines {
		o.last = o.last[len(o.last)-tailLines:]
	}
	o.mu.Unlock()

	level, msg := ffmpeg.ParseLogLevel(line)
	o.subs.Emit(Event{Kind: EventLog, Level: level, Message: msg})
}

func (o *execOutput) tail() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.last...)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

var _ Engine = (*FFmpeg)(nil)
var _ Prober = (*FFmpeg)(nil)

// IsExecError reports whether err carries an engine rejection.
func IsExecError(err error) bool {
	var e *ExecError
	return errors.As(err, &e)
}
