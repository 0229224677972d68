package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Progress is one report assembled from a -progress block.
type Progress struct {
	Progress float64       // fraction of the output window written, in [0,1]
	Time     time.Duration // output timestamp reached
	Frame    int64
	Speed    string
	Done     bool // ffmpeg printed progress=end
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ProgressParser turns -progress pipe:1 output into Progress values.
// The fraction is measured against the trimmed window when -ss/-to appear
// in the argument vector, and against the source duration otherwise.
// Not safe for concurrent use.
type ProgressParser struct {
	duration   time.Duration
	start, end time.Duration
	cur        Progress
}

// NewProgressParser returns a parser for a run with the given arguments.
func NewProgressParser(args []string) *ProgressParser {
	p := &ProgressParser{}
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-ss":
			p.start = parseSeconds(args[i+1])
		case "-to":
			p.end = parseSeconds(args[i+1])
		}
	}
	return p
}

// SetDuration records a known source duration.
func (p *ProgressParser) SetDuration(d time.Duration) {
	p.duration = d
}

// Duration returns the source duration seen so far.
func (p *ProgressParser) Duration() time.Duration {
	return p.duration
}

// ParseLogLine picks the source duration out of the input banner.
// It reports whether the line carried one. Only the first banner counts.
func (p *ProgressParser) ParseLogLine(line string) bool {
	if p.duration > 0 {
		return false
	}
	d, ok := ParseDuration(line)
	if !ok {
		return false
	}
	p.duration = d
	return true
}

// ParseProgressLine consumes one key=value line. It returns a report when the
// line closes a block.
func (p *ProgressParser) ParseProgressLine(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}

	switch key {
	case "frame":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.cur.Frame = n
		}
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds as well.
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
			p.cur.Time = time.Duration(n) * time.Microsecond
		}
	case "speed":
		p.cur.Speed = strings.TrimSpace(value)
	case "progress":
		p.cur.Done = value == "end"
		if p.cur.Done {
			p.cur.Progress = 1
		} else {
			p.cur.Progress = p.fraction(p.cur.Time)
		}
		return p.cur, true
	}
	return Progress{}, false
}

func (p *ProgressParser) window() time.Duration {
	total := p.duration
	if p.end > p.start {
		w := p.end - p.start
		if total > 0 && total-p.start < w {
			w = total - p.start
		}
		return w
	}
	if total > p.start {
		return total - p.start
	}
	return 0
}

func (p *ProgressParser) fraction(t time.Duration) float64 {
	w := p.window()
	if w <= 0 {
		return 0
	}
	f := float64(t) / float64(w)
	return max(0, min(1, f))
}

// ParseDuration extracts the "Duration: HH:MM:SS.ss" value from a banner line.
// N/A durations are not reported.
func ParseDuration(line string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs*float64(time.Second))
	return d, d > 0
}

func parseSeconds(v string) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
