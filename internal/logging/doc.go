// Package logging wires log/slog for the whole binary.
//
// Every package asks for a module logger once and keeps it:
//
//	var logger = logging.GetLogger("conversion")
//	logger.Info("Compression finished", "session_id", id, "bytes", n)
//
// Each module has its own slog.LevelVar, so levels set by Initialize or
// SetModuleLevel apply to loggers that already exist:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "json",
//		Modules: map[string]string{"engine": "debug", "ffmpeg": "warn"},
//	})
//
// Records go to stdout (text or json) when it is usable, to the systemd
// journal when journald is reachable, and always to an in-memory ring buffer.
// The buffer backs GET /api/logs/stream; SetLogCallback publishes each new
// entry as it is written.
//
// Journal entries carry SYSLOG_IDENTIFIER=videosqueeze and one upper-case
// field per attribute:
//
//	journalctl -t videosqueeze MODULE=engine -p warning
package logging
