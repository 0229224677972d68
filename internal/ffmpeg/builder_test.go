package ffmpeg

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/smazurov/videosqueeze/internal/settings"
)

func testInput(d time.Duration) Input {
	return Input{InputName: "input.mp4", OutputName: "output.mp4", Duration: d}
}

func argAfter(args []string, flag string) (string, bool) {
	i := slices.Index(args, flag)
	if i == -1 || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

func TestBuildArgsBitrate(t *testing.T) {
	args, err := BuildArgs(testInput(0), settings.Default())
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}

	want := []string{
		"-i", "input.mp4",
		"-c:v", "libx264",
		"-b:v", "2500k",
		"-s", "1920x1080",
		"-c:a", "aac", "-b:a", "128k", "-r", "30", "output.mp4",
	}
	if !slices.Equal(args, want) {
		t.Errorf("BuildArgs() =\n  %v\nwant\n  %v", args, want)
	}
	if slices.Contains(args, "-crf") {
		t.Error("bitrate method must not emit -crf")
	}
}

func TestBuildArgsCRFDefault(t *testing.T) {
	s := settings.Default().WithMethod(settings.MethodCRF)
	s.CRFValue = ""

	args, err := BuildArgs(testInput(0), s)
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	if v, _ := argAfter(args, "-crf"); v != "23" {
		t.Errorf("-crf = %q, want 23", v)
	}
	if slices.Contains(args, "-b:v") {
		t.Error("crf method must not emit -b:v")
	}
}

func TestBuildArgsTail(t *testing.T) {
	methods := []settings.Method{
		settings.MethodBitrate,
		settings.MethodPercentage,
		settings.MethodFileSize,
		settings.MethodCRF,
	}

	for _, m := range methods {
		for _, trimmed := range []bool{false, true} {
			s := settings.Default().WithMethod(m).WithoutAudio(true).ApplyXPreset()
			if trimmed {
				s = s.WithTrim(2, 8)
			}
			args, err := BuildArgs(testInput(10*time.Second), s)
			if err != nil {
				t.Fatalf("%s: BuildArgs() error = %v", m, err)
			}
			tail := args[len(args)-7:]
			want := []string{"-c:a", "aac", "-b:a", "128k", "-r", "30", "output.mp4"}
			if !slices.Equal(tail, want) {
				t.Errorf("%s trimmed=%v: tail = %v, want %v", m, trimmed, tail, want)
			}
		}
	}
}

func TestBuildArgsPercentage(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"100", "18"},
		{"50", "35"}, // 51 - 16.5 = 34.5 rounds half up
		{"1", "51"},  // 50.67
		{"70", "28"}, // 27.9
		{"70%", "28"},
		{"", "18"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			s := settings.Default().WithMethod(settings.MethodPercentage)
			s.TargetPercentage = tt.target
			args, err := BuildArgs(testInput(0), s)
			if err != nil {
				t.Fatalf("BuildArgs() error = %v", err)
			}
			if v, _ := argAfter(args, "-crf"); v != tt.want {
				t.Errorf("-crf = %q, want %q", v, tt.want)
			}
		})
	}
}

func TestCRFForPercentageMonotonic(t *testing.T) {
	prev := CRFForPercentage(1)
	for p := 2; p <= 100; p++ {
		crf := CRFForPercentage(p)
		if crf > prev {
			t.Fatalf("CRFForPercentage(%d) = %d > CRFForPercentage(%d) = %d", p, crf, p-1, prev)
		}
		if crf < MinCRF || crf > MaxCRF {
			t.Fatalf("CRFForPercentage(%d) = %d out of range", p, crf)
		}
		prev = crf
	}
	if got := CRFForPercentage(500); got != MinCRF {
		t.Errorf("CRFForPercentage(500) = %d, want clamped to %d", got, MinCRF)
	}
	if got := CRFForPercentage(-20); got != MaxCRF {
		t.Errorf("CRFForPercentage(-20) = %d, want clamped to %d", got, MaxCRF)
	}
}

func TestBuildArgsFileSize(t *testing.T) {
	tests := []struct {
		name     string
		size     string
		duration time.Duration
		want     string
	}{
		{"known duration", "25", 100 * time.Second, "2048k"},
		{"unknown duration", "100", 0, "13653k"},
		{"fractional", "10", 30 * time.Second, "2731k"},
		{"suffix ignored", "25MB", 100 * time.Second, "2048k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.Default().WithMethod(settings.MethodFileSize)
			s.TargetFileSize = tt.size
			args, err := BuildArgs(testInput(tt.duration), s)
			if err != nil {
				t.Fatalf("BuildArgs() error = %v", err)
			}
			if v, _ := argAfter(args, "-b:v"); v != tt.want {
				t.Errorf("-b:v = %q, want %q", v, tt.want)
			}
		})
	}
}

func TestTargetBitrateMonotonic(t *testing.T) {
	for mb := 1; mb < 200; mb++ {
		if TargetBitrateKbps(mb+1, 37) <= TargetBitrateKbps(mb, 37) {
			t.Fatalf("bitrate not increasing in size at %d MB", mb)
		}
	}
	for d := 1.0; d < 100; d++ {
		if TargetBitrateKbps(50, d+1) > TargetBitrateKbps(50, d) {
			t.Fatalf("bitrate increased with duration at %v s", d)
		}
	}
	if TargetBitrateKbps(10, 0) != TargetBitrateKbps(10, 60) {
		t.Error("zero duration should fall back to 60 seconds")
	}
}

func TestBuildArgsInvalidNumber(t *testing.T) {
	s := settings.Default().WithMethod(settings.MethodFileSize)
	s.TargetFileSize = "big"

	_, err := BuildArgs(testInput(0), s)
	if !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("error = %v, want ErrInvalidNumber", err)
	}
}

func TestBuildArgsOutOfRangePassesThrough(t *testing.T) {
	s := settings.Default().WithMethod(settings.MethodCRF)
	s.CRFValue = "99"

	args, err := BuildArgs(testInput(0), s)
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	if v, _ := argAfter(args, "-crf"); v != "99" {
		t.Errorf("-crf = %q, want 99 passed through", v)
	}
}

func TestBuildArgsTrim(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		duration   time.Duration
		wantSS     string
		wantTo     string
	}{
		{"untrimmed", 0, 0, 10 * time.Second, "", ""},
		{"full range", 0, 10, 10 * time.Second, "", ""},
		{"window", 1.5, 4, 10 * time.Second, "1.5", "4"},
		{"tail cut", 0, 6, 10 * time.Second, "0", "6"},
		{"start only", 3, 0, 10 * time.Second, "3", ""},
		{"unknown duration", 0, 5, 0, "0", "5"},
		{"inverted", 5, 2, 10 * time.Second, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings.Default().WithTrim(tt.start, tt.end)
			args, err := BuildArgs(testInput(tt.duration), s)
			if err != nil {
				t.Fatalf("BuildArgs() error = %v", err)
			}
			ss, _ := argAfter(args, "-ss")
			to, _ := argAfter(args, "-to")
			if ss != tt.wantSS || to != tt.wantTo {
				t.Errorf("-ss %q -to %q, want -ss %q -to %q", ss, to, tt.wantSS, tt.wantTo)
			}
			if tt.wantSS != "" && slices.Index(args, "-ss") > slices.Index(args, "-c:v") {
				t.Error("trim must come before codec arguments")
			}
		})
	}
}

func TestBuildArgsXExtras(t *testing.T) {
	s := settings.Default().ApplyXPreset().WithoutAudio(true)

	args, err := BuildArgs(testInput(0), s)
	if err != nil {
		t.Fatalf("BuildArgs() error = %v", err)
	}
	if v, _ := argAfter(args, "-pix_fmt"); v != "yuv420p" {
		t.Errorf("-pix_fmt = %q, want yuv420p", v)
	}
	if v, _ := argAfter(args, "-movflags"); v != "+faststart" {
		t.Errorf("-movflags = %q, want +faststart", v)
	}
	if !slices.Contains(args, "-an") {
		t.Error("missing -an")
	}
	if v, _ := argAfter(args, "-s"); v != "1280x720" {
		t.Errorf("-s = %q, want 1280x720", v)
	}
}

func TestBuildArgsRequiresNames(t *testing.T) {
	if _, err := BuildArgs(Input{}, settings.Default()); err == nil {
		t.Error("expected error for empty input and output names")
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"holiday.MOV", "input.mov"},
		{"clip.webm", "input.webm"},
		{"noext", "input.mp4"},
		{"weird.m p4", "input.mp4"},
	}
	for _, tt := range tests {
		if got := InputName(tt.filename); got != tt.want {
			t.Errorf("InputName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}

	if got := OutputName(settings.FormatMKV); got != "output.mkv" {
		t.Errorf("OutputName(mkv) = %q", got)
	}
	if got := OutputName(""); got != "output.mp4" {
		t.Errorf("OutputName(\"\") = %q", got)
	}
	if got := MimeType(settings.FormatWEBM); got != "video/webm" {
		t.Errorf("MimeType(webm) = %q", got)
	}
}

func TestBaseArgs(t *testing.T) {
	args := BaseArgs(BaseOptions{Threads: 2})
	if v, _ := argAfter(args, "-progress"); v != "pipe:1" {
		t.Errorf("-progress = %q, want pipe:1", v)
	}
	if v, _ := argAfter(args, "-threads"); v != "2" {
		t.Errorf("-threads = %q, want 2", v)
	}
	if slices.Contains(BaseArgs(BaseOptions{}), "-threads") {
		t.Error("-threads emitted with zero threads")
	}
}
