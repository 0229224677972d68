package ffmpeg

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/videosqueeze/internal/settings"
)

// ErrInvalidNumber is returned when a numeric target has no leading integer.
var ErrInvalidNumber = errors.New("not a number")

// CRF bounds accepted by x264/x265.
const (
	MinCRF = 0
	MaxCRF = 51
)

// BuildArgs translates settings into the engine argument vector.
// The vector always ends with -c:a, -b:a, -r and the output name, in that
// order. Out-of-range values pass through; the engine rejects them.
func BuildArgs(in Input, s settings.Settings) ([]string, error) {
	if in.InputName == "" || in.OutputName == "" {
		return nil, fmt.Errorf("input and output names are required")
	}

	args := []string{"-i", in.InputName}
	args = append(args, trimArgs(s, in.Duration)...)
	args = append(args, "-c:v", s.VideoCodec)

	rate, err := rateArgs(s, in)
	if err != nil {
		return nil, err
	}
	args = append(args, rate...)

	if s.Resolution != "" {
		args = append(args, "-s", s.Resolution)
	}
	if s.RemoveAudio {
		args = append(args, "-an")
	}
	if s.XCompatible {
		args = append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart")
	}

	args = append(args,
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
		"-r", s.FrameRate,
		in.OutputName,
	)
	return args, nil
}

// rateArgs derives the video rate argument for the active method.
func rateArgs(s settings.Settings, in Input) ([]string, error) {
	switch s.CompressionMethod {
	case settings.MethodCRF:
		crf := s.CRFValue
		if crf == "" {
			crf = settings.DefaultCRF
		}
		return []string{"-crf", crf}, nil

	case settings.MethodPercentage:
		p, err := parseLeadingInt(orDefault(s.TargetPercentage, settings.DefaultPercentage))
		if err != nil {
			return nil, fmt.Errorf("target percentage: %w", err)
		}
		return []string{"-crf", strconv.Itoa(CRFForPercentage(p))}, nil

	case settings.MethodFileSize:
		mb, err := parseLeadingInt(orDefault(s.TargetFileSize, settings.DefaultFileSizeMB))
		if err != nil {
			return nil, fmt.Errorf("target file size: %w", err)
		}
		return []string{"-b:v", strconv.Itoa(TargetBitrateKbps(mb, in.Duration.Seconds())) + "k"}, nil

	default:
		return []string{"-b:v", s.VideoBitrate}, nil
	}
}

// CRFForPercentage maps a quality percentage onto the CRF scale.
// Lower percentages give higher CRF and smaller files.
func CRFForPercentage(percentage int) int {
	crf := roundHalfUp(MaxCRF - (float64(percentage)/100)*33)
	return max(MinCRF, min(MaxCRF, crf))
}

// TargetBitrateKbps returns the average video bitrate in kbit/s that fits
// sizeMB into durationSeconds. Non-positive durations use FallbackDuration.
func TargetBitrateKbps(sizeMB int, durationSeconds float64) int {
	if durationSeconds <= 0 {
		durationSeconds = FallbackDuration.Seconds()
	}
	return roundHalfUp(float64(sizeMB) * 8192 / durationSeconds)
}

// trimArgs returns -ss/-to for a trim range that actually cuts something.
func trimArgs(s settings.Settings, duration time.Duration) []string {
	total := duration.Seconds()
	start, end := s.TrimStart, s.TrimEnd

	if end > start && (start > 0 || total <= 0 || end < total) {
		return []string{"-ss", formatSeconds(start), "-to", formatSeconds(end)}
	}
	if end == 0 && start > 0 {
		return []string{"-ss", formatSeconds(start)}
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// parseLeadingInt reads the leading integer of v and ignores the rest,
// so "25MB" is 25 and "12.9" is 12.
func parseLeadingInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	end := 0
	if end < len(v) && (v[end] == '-' || v[end] == '+') {
		end++
	}
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, v)
	}
	return n, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
