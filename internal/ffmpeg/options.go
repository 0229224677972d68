package ffmpeg

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/smazurov/videosqueeze/internal/settings"
)

// BaseOptions controls the global flags the engine puts before every argument vector.
type BaseOptions struct {
	Threads int // 0 lets ffmpeg decide
}

// BaseArgs returns the global flags for a non-interactive run that reports
// progress as key=value blocks on stdout and level-tagged logs on stderr.
func BaseArgs(opts BaseOptions) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "level+info",
		"-progress", "pipe:1",
		"-nostats",
	}
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	return args
}

// InputName returns the virtual input file name for an uploaded file,
// keeping its extension so the demuxer can be guessed.
func InputName(filename string) string {
	return "input." + Extension(filename, "mp4")
}

// OutputName returns the virtual output file name for a container.
func OutputName(format settings.Format) string {
	if format == "" {
		format = settings.FormatMP4
	}
	return "output." + string(format)
}

// Extension returns the lowercase extension of filename without the dot,
// or def when there is none or it contains anything but letters and digits.
func Extension(filename, def string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return def
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return def
		}
	}
	return ext
}

// MimeType returns the media type served for a container.
func MimeType(format settings.Format) string {
	switch format {
	case settings.FormatMKV:
		return "video/x-matroska"
	case settings.FormatAVI:
		return "video/x-msvideo"
	case settings.FormatMOV:
		return "video/quicktime"
	case settings.FormatFLV:
		return "video/x-flv"
	case settings.FormatWEBM:
		return "video/webm"
	default:
		return "video/mp4"
	}
}
