// Package models holds the request and response shapes of the HTTP API.
package models

import (
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-09T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" doc:"Build identifier"`
	Modified  bool   `json:"modified" doc:"Built from a checkout with uncommitted changes"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Operating system and architecture"`
	Engine    string `json:"engine,omitempty" example:"ffmpeg version 7.1" doc:"Engine version line, once loaded"`
}

type VersionResponse struct {
	Body VersionData
}

// Options models
type OptionsResponse struct {
	Body settings.Catalog
}

// Preset models
type PresetListData struct {
	Presets []settings.Preset `json:"presets" doc:"Built-in and file presets ordered by name"`
	Count   int               `json:"count" example:"5" doc:"Number of presets"`
}

type PresetListResponse struct {
	Body PresetListData
}

// Engine models
type EngineData struct {
	State   conversion.EngineState `json:"state" enum:"idle,loading,ready" doc:"Engine load state"`
	Error   string                 `json:"error,omitempty" doc:"Why the last load failed"`
	Version string                 `json:"version,omitempty" doc:"Engine version line"`
}

type EngineResponse struct {
	Body EngineData
}

// Session models
type SessionData struct {
	conversion.Snapshot
	State conversion.State `json:"state" enum:"idle,loading-engine,ready,compressing,done" doc:"Combined engine and conversion state"`
}

type SessionResponse struct {
	Body SessionData
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Open sessions, oldest first"`
	Count    int           `json:"count" example:"1" doc:"Number of sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

type SessionPath struct {
	SessionID string `path:"id" doc:"Session identifier"`
}

type UploadRequest struct {
	Filename    string `query:"filename" required:"true" minLength:"1" example:"holiday.mov" doc:"Name of the dropped file"`
	ContentType string `header:"Content-Type" doc:"Media type of the dropped file"`
	RawBody     []byte `contentType:"application/octet-stream"`
}

type SettingsRequest struct {
	SessionPath
	Body settings.Settings
}

type ApplyPresetRequest struct {
	SessionPath
	Name string `path:"name" example:"x" doc:"Preset name"`
}

type ArgsData struct {
	Args    []string `json:"args" doc:"Engine argument vector, global flags excluded"`
	Command string   `json:"command" example:"ffmpeg -i input.mp4 -c:v libx264 -b:v 2500k -s 1920x1080 -c:a aac -b:a 128k -r 30 output.mp4" doc:"Shell-quoted command line"`
}

type ArgsResponse struct {
	Body ArgsData
}

// Log models
type LogLevelRequest struct {
	Body LogLevelData
}

type LogLevelData struct {
	Module string `json:"module" example:"conversion" doc:"Module name, empty for the global level"`
	Level  string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}

type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Level per module"`
}
