package events

// Event type constants for kelindar/event.
const (
	TypeEngineStateChanged uint32 = iota + 1
	TypeSessionCreated
	TypeSessionDeleted
	TypeConversionStateChanged
	TypeConversionProgress
	TypeConversionCompleted
	TypeConversionFailed
	TypePresetsReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EngineStateChangedEvent is published on every engine state transition.
type EngineStateChangedEvent struct {
	State     string `json:"state" enum:"idle,loading,ready" example:"ready" doc:"Engine state"`
	Error     string `json:"error,omitempty" example:"ffmpeg not found in PATH" doc:"Why loading failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineStateChangedEvent.
func (e EngineStateChangedEvent) Type() uint32 { return TypeEngineStateChanged }

// SessionCreatedEvent is published when a file is dropped.
type SessionCreatedEvent struct {
	SessionID string `json:"session_id" example:"3f2a9c4e-8b1d-4c6e-9f0a-1b2c3d4e5f60" doc:"Session identifier"`
	FileName  string `json:"file_name" example:"holiday.mov" doc:"Dropped file name"`
	Size      int64  `json:"size" example:"52428800" doc:"File size in bytes"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionCreatedEvent.
func (e SessionCreatedEvent) Type() uint32 { return TypeSessionCreated }

// SessionDeletedEvent is published when a session is reset and removed.
type SessionDeletedEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionDeletedEvent.
func (e SessionDeletedEvent) Type() uint32 { return TypeSessionDeleted }

// ConversionStateChangedEvent is published on every session state transition.
type ConversionStateChangedEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	State     string `json:"state" enum:"notStarted,compressing,done" example:"compressing" doc:"Conversion state"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConversionStateChangedEvent.
func (e ConversionStateChangedEvent) Type() uint32 { return TypeConversionStateChanged }

// ConversionProgressEvent carries one engine progress report.
type ConversionProgressEvent struct {
	SessionID string  `json:"session_id" doc:"Session identifier"`
	Percent   float64 `json:"percent" minimum:"0" maximum:"100" example:"42.5" doc:"Percentage done"`
	Time      string  `json:"time,omitempty" example:"12.5s" doc:"Output timestamp reached"`
	Speed     string  `json:"speed,omitempty" example:"2.1x" doc:"Encoding speed"`
}

// Type returns the event type identifier for ConversionProgressEvent.
func (e ConversionProgressEvent) Type() uint32 { return TypeConversionProgress }

// ConversionCompletedEvent is the success notification of one conversion.
type ConversionCompletedEvent struct {
	SessionID      string  `json:"session_id" doc:"Session identifier"`
	OutputURL      string  `json:"output_url" example:"/api/blobs/7d0c..." doc:"Playable and downloadable output"`
	InputSize      int64   `json:"input_size" doc:"Input size in bytes"`
	OutputSize     int64   `json:"output_size" doc:"Output size in bytes"`
	ElapsedSeconds float64 `json:"elapsed_seconds" example:"12.3" doc:"Wall time of the conversion"`
	Timestamp      string  `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConversionCompletedEvent.
func (e ConversionCompletedEvent) Type() uint32 { return TypeConversionCompleted }

// ConversionFailedEvent is the error notification of one conversion.
// Exactly one is published per failed attempt.
type ConversionFailedEvent struct {
	SessionID string `json:"session_id" doc:"Session identifier"`
	Message   string `json:"message" example:"Error compressing video" doc:"User facing message"`
	Error     string `json:"error" example:"ffmpeg exited with code 1" doc:"Underlying error"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConversionFailedEvent.
func (e ConversionFailedEvent) Type() uint32 { return TypeConversionFailed }

// PresetsReloadedEvent is published after the presets file was re-read.
type PresetsReloadedEvent struct {
	Count     int    `json:"count" example:"6" doc:"Presets available after the reload"`
	Error     string `json:"error,omitempty" doc:"Why the file was rejected; the previous presets stay active"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for PresetsReloadedEvent.
func (e PresetsReloadedEvent) Type() uint32 { return TypePresetsReloaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
