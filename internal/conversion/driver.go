// Package conversion drives one engine through file drops, conversions and resets.
//
// The Driver owns the engine and the blob URLs it hands out. Engine calls
// are serialized across sessions; a session converts at most once at a time.
package conversion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/videosqueeze/internal/blob"
	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/events"
	"github.com/smazurov/videosqueeze/internal/ffmpeg"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/metrics"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// Sentinel errors.
var (
	ErrBusy           = errors.New("conversion already in progress")
	ErrEngineNotReady = errors.New("engine not ready")
	ErrNoInput        = errors.New("no input file")
	ErrSessionClosed  = errors.New("session was reset")
)

// FailureMessage is the user facing text of every failed conversion.
const FailureMessage = "Error compressing video"

// Publisher receives driver notifications.
type Publisher interface {
	Publish(ev events.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// Update is one message on a Start channel. Exactly one update has Done set,
// and it is the last one.
type Update struct {
	Percent float64
	Done    bool
	Result  *Result
	Err     error
}

// Result describes a finished conversion.
type Result struct {
	OutputURL  string
	OutputName string
	InputSize  int64
	OutputSize int64
	Elapsed    time.Duration
	Args       []string
}

// Driver runs conversions on a single engine.
type Driver struct {
	eng    engine.Engine
	blobs  *blob.Store
	bus    Publisher
	logger *slog.Logger
	base   context.Context

	loadMu  sync.Mutex // one Load at a time
	stateMu sync.RWMutex
	state   EngineState
	loadErr string

	execMu sync.Mutex // one engine job at a time
}

// NewDriver creates a driver for eng. A nil bus discards notifications.
func NewDriver(eng engine.Engine, blobs *blob.Store, bus Publisher) *Driver {
	if bus == nil {
		bus = noopPublisher{}
	}
	d := &Driver{
		eng:    eng,
		blobs:  blobs,
		bus:    bus,
		logger: logging.GetLogger("conversion"),
		base:   context.Background(),
		state:  EngineIdle,
	}
	if eng.Loaded() {
		d.state = EngineReady
	}
	return d
}

// SetBaseContext sets the context background loads run under.
func (d *Driver) SetBaseContext(ctx context.Context) {
	d.base = ctx
}

// EngineState returns the engine state and the last load error, if any.
func (d *Driver) EngineState() (EngineState, string) {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state, d.loadErr
}

// Engine returns the driven engine.
func (d *Driver) Engine() engine.Engine {
	return d.eng
}

func (d *Driver) setEngineState(state EngineState, loadErr string) {
	d.stateMu.Lock()
	d.state, d.loadErr = state, loadErr
	d.stateMu.Unlock()

	metrics.SetEngineLoaded(state == EngineReady)
	d.bus.Publish(events.EngineStateChangedEvent{State: string(state), Error: loadErr, Timestamp: events.Now()})
}

// EnsureLoaded loads the engine unless it is ready. A failed load returns the
// engine to idle; the next call tries again.
func (d *Driver) EnsureLoaded(ctx context.Context) error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	if d.eng.Loaded() {
		if state, _ := d.EngineState(); state != EngineReady {
			d.setEngineState(EngineReady, "")
		}
		return nil
	}

	d.setEngineState(EngineLoading, "")
	d.logger.Info("Loading engine")
	if err := d.eng.Load(ctx); err != nil {
		d.logger.Error("Engine load failed", "error", err)
		metrics.RecordEngineLoadFailure()
		d.setEngineState(EngineIdle, err.Error())
		return fmt.Errorf("load engine: %w", err)
	}
	d.logger.Info("Engine ready")
	d.setEngineState(EngineReady, "")
	return nil
}

// Open registers a dropped file. It creates the preview URL and starts
// loading the engine in the background when it is idle.
func (d *Driver) Open(in FileInput) (*Session, error) {
	if len(in.Data) == 0 {
		return nil, ErrNoInput
	}

	s := &Session{
		ID:       uuid.NewString(),
		Created:  time.Now(),
		data:     in.Data,
		action:   newFileAction(in),
		settings: settings.Default(),
		status:   StatusNotStarted,
	}
	s.action.PreviewURL = d.blobs.Create(in.Data, in.ContentType, in.Name)

	d.logger.Info("File opened", "session_id", s.ID, "file", in.Name, "size", len(in.Data))
	d.bus.Publish(events.SessionCreatedEvent{
		SessionID: s.ID,
		FileName:  in.Name,
		Size:      s.action.FileSize,
		Timestamp: events.Now(),
	})

	if state, _ := d.EngineState(); state == EngineIdle {
		go func() {
			// Errors are published as engine state events.
			_ = d.EnsureLoaded(d.base)
		}()
	}
	return s, nil
}

// begin moves s to compressing.
func (d *Driver) begin(s *Session) error {
	if !d.eng.Loaded() {
		return ErrEngineNotReady
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.status == StatusCompressing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.status = StatusCompressing
	s.percent = 0
	s.started = time.Now()
	s.elapsed = 0
	s.lastErr = ""
	s.logTail = nil
	s.action.IsError = false
	s.mu.Unlock()

	d.publishStatus(s, StatusCompressing)
	return nil
}

// Start begins a conversion and returns its update channel. The channel
// carries zero or more progress updates, then exactly one terminal update,
// then is closed. Progress updates are dropped while the reader lags; the
// terminal update is always delivered, so the channel must be drained.
func (d *Driver) Start(ctx context.Context, s *Session) (<-chan Update, error) {
	if err := d.begin(s); err != nil {
		return nil, err
	}

	ch := make(chan Update, 16)
	go func() {
		defer close(ch)
		res, err := d.run(ctx, s, func(p float64) {
			select {
			case ch <- Update{Percent: p}:
			default:
			}
		})
		final := Update{Done: true, Err: err, Percent: s.Progress()}
		if err == nil {
			final.Result = &res
		}
		ch <- final
	}()
	return ch, nil
}

// Compress runs a conversion and blocks until it finishes. onProgress may be nil.
func (d *Driver) Compress(ctx context.Context, s *Session, onProgress func(percent float64)) (Result, error) {
	if err := d.begin(s); err != nil {
		return Result{}, err
	}
	if onProgress == nil {
		onProgress = func(float64) {}
	}
	return d.run(ctx, s, onProgress)
}

// run performs one conversion of a session already in StatusCompressing.
func (d *Driver) run(ctx context.Context, s *Session, onProgress func(float64)) (Result, error) {
	done := metrics.ConversionStarted()
	defer done()

	s.mu.Lock()
	cfg, data, fileName := s.settings, s.data, s.action.FileName
	s.mu.Unlock()

	logger := d.logger.With("session_id", s.ID)
	started := time.Now()

	res, err := d.convert(ctx, s, cfg, data, fileName, onProgress)
	if err != nil {
		d.fail(s, cfg, err)
		logger.Error("Compression failed", "error", err, "elapsed", time.Since(started))
		return Result{}, err
	}

	res.Elapsed = time.Since(started)
	res.InputSize = int64(len(data))
	res.OutputURL = d.blobs.Create(res.output, ffmpeg.MimeType(cfg.Format), res.OutputName)
	res.output = nil

	s.mu.Lock()
	if s.closed {
		s.status = StatusNotStarted
		s.percent = 0
		s.mu.Unlock()
		d.blobs.Revoke(res.OutputURL)
		logger.Info("Session reset during compression, output discarded")
		d.publishStatus(s, StatusNotStarted)
		return Result{}, ErrSessionClosed
	}
	superseded := s.action.OutputURL
	s.action.OutputURL = res.OutputURL
	s.action.OutputName = res.OutputName
	s.action.OutputSize = res.OutputSize
	s.status = StatusDone
	s.percent = 100
	s.elapsed = res.Elapsed
	s.mu.Unlock()

	if superseded != "" {
		d.blobs.Revoke(superseded)
	}

	metrics.RecordSuccess(string(cfg.CompressionMethod), res.Elapsed, res.InputSize, res.OutputSize)
	logger.Info("Compression finished", "elapsed", res.Elapsed, "input_size", res.InputSize, "output_size", res.OutputSize)
	d.bus.Publish(events.ConversionCompletedEvent{
		SessionID:      s.ID,
		OutputURL:      res.OutputURL,
		InputSize:      res.InputSize,
		OutputSize:     res.OutputSize,
		ElapsedSeconds: res.Elapsed.Seconds(),
		Timestamp:      events.Now(),
	})
	d.publishStatus(s, StatusDone)
	return res.Result, nil
}

type conversionResult struct {
	Result
	output []byte
}

// convert does the engine work: stage, exec, collect, clean up.
func (d *Driver) convert(ctx context.Context, s *Session, cfg settings.Settings, data []byte, fileName string, onProgress func(float64)) (conversionResult, error) {
	if err := cfg.Validate(); err != nil {
		return conversionResult{}, err
	}

	d.execMu.Lock()
	defer d.execMu.Unlock()

	inputName := ffmpeg.InputName(fileName)
	outputName := ffmpeg.OutputName(cfg.Format)

	if err := d.eng.WriteFile(ctx, inputName, bytes.NewReader(data)); err != nil {
		return conversionResult{}, fmt.Errorf("write input: %w", err)
	}
	defer d.cleanup(s.ID, inputName, outputName)

	unsubProgress := d.eng.Subscribe(engine.EventProgress, func(ev engine.Event) {
		p := ev.Progress.Progress * 100
		s.setPercent(p)
		onProgress(p)
		d.bus.Publish(events.ConversionProgressEvent{
			SessionID: s.ID,
			Percent:   p,
			Time:      ev.Progress.Time.String(),
			Speed:     ev.Progress.Speed,
		})
	})
	defer unsubProgress()
	unsubLog := d.eng.Subscribe(engine.EventLog, func(ev engine.Event) {
		s.appendLog(ev.Message)
	})
	defer unsubLog()

	media := d.probe(ctx, s, inputName)

	args, err := ffmpeg.BuildArgs(ffmpeg.Input{InputName: inputName, OutputName: outputName, Duration: media.Duration}, cfg)
	if err != nil {
		return conversionResult{}, fmt.Errorf("build arguments: %w", err)
	}

	if err := d.eng.Exec(ctx, args); err != nil {
		return conversionResult{}, fmt.Errorf("exec: %w", err)
	}

	out, err := d.eng.ReadFile(ctx, outputName)
	if err != nil {
		return conversionResult{}, fmt.Errorf("read output: %w", err)
	}

	return conversionResult{
		Result: Result{
			OutputName: "compressed-video." + string(orFormat(cfg.Format)),
			OutputSize: int64(len(out)),
			Args:       args,
		},
		output: out,
	}, nil
}

// probe returns the session's media info, asking the engine once if it can.
func (d *Driver) probe(ctx context.Context, s *Session, inputName string) engine.MediaInfo {
	if media := s.Media(); media.Duration > 0 {
		return media
	}
	prober, ok := d.eng.(engine.Prober)
	if !ok {
		return engine.MediaInfo{}
	}
	media, err := prober.Probe(ctx, inputName)
	if err != nil {
		d.logger.Debug("Probe failed, using fallback duration", "session_id", s.ID, "error", err)
		return engine.MediaInfo{}
	}
	s.mu.Lock()
	s.media = media
	s.mu.Unlock()
	return media
}

// cleanup removes engine-side files. Failures are logged and ignored.
func (d *Driver) cleanup(sessionID string, names ...string) {
	for _, name := range names {
		if err := d.eng.DeleteFile(context.Background(), name); err != nil {
			d.logger.Debug("Engine file cleanup failed", "session_id", sessionID, "file", name, "error", err)
		}
	}
}

// fail resets s after a failed conversion and emits the one failure notification.
func (d *Driver) fail(s *Session, cfg settings.Settings, err error) {
	s.mu.Lock()
	superseded := s.action.OutputURL
	s.action.OutputURL = ""
	s.action.OutputName = ""
	s.action.OutputSize = 0
	s.action.IsError = true
	s.status = StatusNotStarted
	s.percent = 0
	s.elapsed = 0
	s.lastErr = err.Error()
	s.mu.Unlock()

	if superseded != "" {
		d.blobs.Revoke(superseded)
	}

	metrics.RecordFailure(string(cfg.CompressionMethod))
	d.bus.Publish(events.ConversionFailedEvent{
		SessionID: s.ID,
		Message:   FailureMessage,
		Error:     err.Error(),
		Timestamp: events.Now(),
	})
	d.publishStatus(s, StatusNotStarted)
}

// Output returns the bytes behind a result's output URL.
func (d *Driver) Output(res Result) ([]byte, error) {
	b, err := d.blobs.Open(res.OutputURL)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Reset releases the session's preview and output URLs. Each URL is revoked
// exactly once no matter how often Reset is called. A running engine call is
// not interrupted; its output is revoked as soon as it is produced.
func (d *Driver) Reset(s *Session) {
	s.mu.Lock()
	s.closed = true
	preview, output := s.action.PreviewURL, s.action.OutputURL
	s.action.PreviewURL, s.action.OutputURL = "", ""
	s.action.OutputName, s.action.OutputSize = "", 0
	if s.status == StatusDone {
		s.status = StatusNotStarted
		s.percent = 0
	}
	s.mu.Unlock()

	for _, url := range []string{preview, output} {
		if url != "" {
			d.blobs.Revoke(url)
		}
	}
}

func (d *Driver) publishStatus(s *Session, status Status) {
	d.bus.Publish(events.ConversionStateChangedEvent{SessionID: s.ID, State: string(status), Timestamp: events.Now()})
}

func orFormat(f settings.Format) settings.Format {
	if f == "" {
		return settings.FormatMP4
	}
	return f
}
