package ffmpeg

import (
	"math"
	"testing"
	"time"
)

func feed(p *ProgressParser, lines ...string) []Progress {
	var out []Progress
	for _, l := range lines {
		if pr, ok := p.ParseProgressLine(l); ok {
			out = append(out, pr)
		}
	}
	return out
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		line string
		want time.Duration
		ok   bool
	}{
		{"  Duration: 00:01:30.50, start: 0.000000, bitrate: 1205 kb/s", 90*time.Second + 500*time.Millisecond, true},
		{"[info]   Duration: 01:00:00.00, start: 0.0", time.Hour, true},
		{"  Duration: N/A, start: 0.000000, bitrate: N/A", 0, false},
		{"Stream #0:0: Video: h264", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDuration(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestProgressParserFraction(t *testing.T) {
	p := NewProgressParser([]string{"-i", "input.mp4", "output.mp4"})
	if !p.ParseLogLine("  Duration: 00:00:10.00, start: 0.000000") {
		t.Fatal("duration banner not recognised")
	}
	if p.ParseLogLine("  Duration: 00:00:99.00, start: 0.000000") {
		t.Error("second banner should be ignored")
	}

	reports := feed(p,
		"frame=30",
		"out_time_us=2500000",
		"speed=2.1x",
		"progress=continue",
		"frame=120",
		"out_time_us=10000000",
		"progress=end",
	)
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}

	first := reports[0]
	if math.Abs(first.Progress-0.25) > 1e-9 {
		t.Errorf("progress = %v, want 0.25", first.Progress)
	}
	if first.Frame != 30 || first.Speed != "2.1x" || first.Done {
		t.Errorf("unexpected first report %+v", first)
	}
	if first.Time != 2500*time.Millisecond {
		t.Errorf("time = %v, want 2.5s", first.Time)
	}

	if !reports[1].Done || reports[1].Progress != 1 {
		t.Errorf("final report = %+v, want done at 1", reports[1])
	}
}

func TestProgressParserTrimWindow(t *testing.T) {
	p := NewProgressParser([]string{"-i", "input.mp4", "-ss", "2", "-to", "6", "output.mp4"})
	p.SetDuration(20 * time.Second)

	reports := feed(p, "out_time_us=1000000", "progress=continue")
	if len(reports) != 1 || math.Abs(reports[0].Progress-0.25) > 1e-9 {
		t.Errorf("reports = %+v, want one at 0.25 of a 4s window", reports)
	}
}

func TestProgressParserClampsAndUnknownDuration(t *testing.T) {
	p := NewProgressParser(nil)
	if r := feed(p, "out_time_us=5000000", "progress=continue"); r[0].Progress != 0 {
		t.Errorf("unknown duration progress = %v, want 0", r[0].Progress)
	}

	p.SetDuration(time.Second)
	if r := feed(p, "out_time_us=5000000", "progress=continue"); r[0].Progress != 1 {
		t.Errorf("overshoot progress = %v, want clamped to 1", r[0].Progress)
	}

	if r := feed(p, "out_time_us=N/A", "bogus line", "progress=continue"); len(r) != 1 {
		t.Errorf("malformed values should be skipped, got %v", r)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[error] Conversion failed!", "error", "Conversion failed!"},
		{"[libx264 @ 0x55d1] [warning] frame size changed", "warning", "[libx264 @ 0x55d1] frame size changed"},
		{"[info] Press [q] to stop", "info", "Press [q] to stop"},
		{"plain text", "info", "plain text"},
		{"[mp4 @ 0x1] no level", "info", "[mp4 @ 0x1] no level"},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = %q, %q; want %q, %q", tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}
