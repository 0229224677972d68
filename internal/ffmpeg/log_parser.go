package ffmpeg

import "strings"

// ParseLogLevel splits a line printed with -loglevel level+info into its
// level and message. Both "[level] msg" and "[component @ 0x...] [level] msg"
// are recognised; the component prefix is kept in the message.
// Untagged lines are reported as info.
func ParseLogLevel(line string) (level, msg string) {
	tag, rest, ok := cutTag(line)
	if !ok {
		return "info", line
	}
	if isLogLevel(tag) {
		return tag, rest
	}

	if inner, after, innerOK := cutTag(rest); innerOK && isLogLevel(inner) {
		return inner, line[:len(line)-len(rest)] + after
	}
	return "info", line
}

// cutTag splits "[tag] rest".
func cutTag(s string) (tag, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
