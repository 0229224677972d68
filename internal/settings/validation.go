package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field found by Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks bounds the engine would otherwise reject with an opaque error.
// Only the target of the active method is checked.
func (s Settings) Validate() error {
	verr := &ValidationError{}

	switch s.CompressionMethod {
	case MethodBitrate:
		if s.VideoBitrate == "" {
			verr.add("video_bitrate", "required for the bitrate method")
		}
	case MethodPercentage:
		checkRange(verr, "target_percentage", s.TargetPercentage, DefaultPercentage, 1, 100)
	case MethodFileSize:
		checkRange(verr, "target_file_size", s.TargetFileSize, DefaultFileSizeMB, 1, 10240)
	case MethodCRF:
		checkRange(verr, "crf_value", s.CRFValue, DefaultCRF, 0, 51)
	default:
		verr.add("compression_method", "unknown method %q", s.CompressionMethod)
	}

	if s.Format != "" && !IsKnownFormat(s.Format) {
		verr.add("format", "unknown format %q", s.Format)
	}
	if s.VideoCodec == "" {
		verr.add("video_codec", "required")
	}
	if s.AudioCodec == "" {
		verr.add("audio_codec", "required")
	}
	if s.FrameRate == "" {
		verr.add("frame_rate", "required")
	}
	if s.TrimStart < 0 {
		verr.add("trim_start", "must not be negative")
	}
	if s.TrimEnd != 0 && s.TrimEnd < s.TrimStart {
		verr.add("trim_end", "must not be before trim_start")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func checkRange(verr *ValidationError, field, value, def string, lo, hi int) {
	if value == "" {
		value = def
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		verr.add(field, "%q is not a whole number", value)
		return
	}
	if n < lo || n > hi {
		verr.add(field, "%d is outside %d..%d", n, lo, hi)
	}
}
