package conversion

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// logTailSize is how many engine log lines a session keeps.
const logTailSize = 20

// FileInput is a dropped file.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileAction is the dropped file plus what the conversion produced.
type FileAction struct {
	FileName   string `json:"file_name" example:"holiday.mov" doc:"Dropped file name"`
	FileSize   int64  `json:"file_size" example:"52428800" doc:"Dropped file size in bytes"`
	From       string `json:"from" example:"mov" doc:"Extension of the dropped file"`
	FileType   string `json:"file_type" example:"video/quicktime" doc:"Content type of the dropped file"`
	PreviewURL string `json:"preview_url,omitempty" doc:"Playable URL of the dropped file"`
	OutputURL  string `json:"output_url,omitempty" doc:"Playable and downloadable URL of the result"`
	OutputName string `json:"output_name,omitempty" example:"compressed-video.mp4" doc:"Download file name"`
	OutputSize int64  `json:"output_size,omitempty" doc:"Result size in bytes"`
	IsError    bool   `json:"is_error" doc:"The latest conversion failed"`
}

// newFileAction derives the display fields of a dropped file.
func newFileAction(in FileInput) FileAction {
	return FileAction{
		FileName: in.Name,
		FileSize: int64(len(in.Data)),
		From:     strings.TrimPrefix(strings.ToLower(filepath.Ext(in.Name)), "."),
		FileType: in.ContentType,
	}
}

// Session is one dropped file with its settings and conversion state.
// All methods are safe for concurrent use.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	data     []byte
	action   FileAction
	settings settings.Settings
	status   Status
	percent  float64
	started  time.Time
	elapsed  time.Duration
	media    engine.MediaInfo
	lastErr  string
	logTail  []string
	closed   bool // reset; later outputs are discarded
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID             string            `json:"id" doc:"Session identifier"`
	Created        time.Time         `json:"created" doc:"When the file was dropped"`
	File           FileAction        `json:"file" doc:"Dropped file and conversion output"`
	Settings       settings.Settings `json:"settings" doc:"Current conversion settings"`
	Status         Status            `json:"status" enum:"notStarted,compressing,done" doc:"Conversion status"`
	Progress       float64           `json:"progress" minimum:"0" maximum:"100" doc:"Percentage done"`
	ElapsedSeconds float64           `json:"elapsed_seconds" doc:"Time spent compressing, live while compressing"`
	Media          engine.MediaInfo  `json:"media" doc:"Probed input properties"`
	Error          string            `json:"error,omitempty" doc:"Latest conversion error"`
	Log            []string          `json:"log,omitempty" doc:"Latest engine log lines"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsed
	if s.status == StatusCompressing {
		elapsed = time.Since(s.started)
	}
	return Snapshot{
		ID:             s.ID,
		Created:        s.Created,
		File:           s.action,
		Settings:       s.settings,
		Status:         s.status,
		Progress:       s.percent,
		ElapsedSeconds: elapsed.Seconds(),
		Media:          s.media,
		Error:          s.lastErr,
		Log:            append([]string(nil), s.logTail...),
	}
}

// Status returns the conversion status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns the percentage done.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.percent
}

// File returns the file action.
func (s *Session) File() FileAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// Settings returns the current settings.
func (s *Session) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings. It fails while compressing.
func (s *Session) SetSettings(v settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompressing {
		return ErrBusy
	}
	s.settings = v
	return nil
}

// UpdateSettings applies fn to the current settings. It fails while compressing.
func (s *Session) UpdateSettings(fn func(settings.Settings) settings.Settings) (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompressing {
		return s.settings, ErrBusy
	}
	s.settings = fn(s.settings)
	return s.settings, nil
}

// Media returns the probed input properties.
func (s *Session) Media() engine.MediaInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media
}

func (s *Session) setPercent(p float64) {
	s.mu.Lock()
	s.percent = p
	s.mu.Unlock()
}

func (s *Session) appendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logTail = append(s.logTail, line)
	if len(s.logTail) > logTailSize {
		s.logTail = s.logTail[len(s.logTail)-logTailSize:]
	}
}
