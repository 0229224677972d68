package ffmpeg

import "time"

// Input describes the staged files one conversion works on.
type Input struct {
	InputName  string        // virtual input file, e.g. input.mp4
	OutputName string        // virtual output file, always the last argument
	Duration   time.Duration // source duration, 0 if unknown
}

// FallbackDuration stands in for an unknown source duration in the filesize branch.
const FallbackDuration = 60 * time.Second
