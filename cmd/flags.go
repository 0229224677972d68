// Package cmd holds the one-shot subcommands that run next to the server.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/videosqueeze/internal/config"
	"github.com/smazurov/videosqueeze/internal/engine"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// Runtime carries the options the root command resolved from flags,
// environment and config file. Subcommands read it when they run.
type Runtime struct {
	Engine      engine.Config
	PresetsFile string
}

// settingsFlags binds the conversion settings to command flags.
type settingsFlags struct {
	preset       string
	method       string
	videoBitrate string
	audioBitrate string
	videoCodec   string
	audioCodec   string
	frameRate    string
	resolution   string
	percentage   string
	fileSize     string
	crf          string
	quality      string
	format       string
	trimStart    float64
	trimEnd      float64
	noAudio      bool
	x            bool
}

func (f *settingsFlags) register(fs *pflag.FlagSet) {
	d := settings.Default()
	fs.StringVar(&f.preset, "preset", "", "Start from a named preset (high, medium, low, x or one from the presets file)")
	fs.StringVarP(&f.method, "method", "m", string(d.CompressionMethod), "Compression method: bitrate, percentage, filesize or crf")
	fs.StringVar(&f.videoBitrate, "video-bitrate", d.VideoBitrate, "Video bitrate for the bitrate method")
	fs.StringVar(&f.audioBitrate, "audio-bitrate", d.AudioBitrate, "Audio bitrate")
	fs.StringVar(&f.videoCodec, "video-codec", d.VideoCodec, "Video encoder")
	fs.StringVar(&f.audioCodec, "audio-codec", d.AudioCodec, "Audio encoder")
	fs.StringVar(&f.frameRate, "frame-rate", d.FrameRate, "Output frame rate")
	fs.StringVar(&f.resolution, "resolution", d.Resolution, "Output frame size, empty keeps the source size")
	fs.StringVar(&f.percentage, "percentage", settings.DefaultPercentage, "Quality percentage for the percentage method")
	fs.StringVar(&f.fileSize, "size", settings.DefaultFileSizeMB, "Target size in MB for the filesize method")
	fs.StringVar(&f.crf, "crf", settings.DefaultCRF, "Constant rate factor for the crf method")
	fs.StringVarP(&f.quality, "quality", "q", "", "Quality shortcut: high, medium or low")
	fs.StringVarP(&f.format, "format", "f", string(d.Format), "Output container: mp4, mkv, avi, mov, flv or webm")
	fs.Float64Var(&f.trimStart, "trim-start", 0, "Trim start in seconds")
	fs.Float64Var(&f.trimEnd, "trim-end", 0, "Trim end in seconds")
	fs.BoolVar(&f.noAudio, "no-audio", false, "Drop every audio stream")
	fs.BoolVar(&f.x, "x", false, "Produce a file X.com accepts")
}

// resolve builds settings from the defaults, then the preset, then every
// flag the user set explicitly, then the shortcuts.
func (f *settingsFlags) resolve(fs *pflag.FlagSet, presets *config.PresetStore) (settings.Settings, error) {
	s := settings.Default()
	if f.preset != "" {
		p, err := presets.Get(f.preset)
		if err != nil {
			return s, err
		}
		s = p.Apply(s)
	}

	strs := map[string]*string{
		"video-bitrate": &s.VideoBitrate,
		"audio-bitrate": &s.AudioBitrate,
		"video-codec":   &s.VideoCodec,
		"audio-codec":   &s.AudioCodec,
		"frame-rate":    &s.FrameRate,
		"resolution":    &s.Resolution,
		"percentage":    &s.TargetPercentage,
		"size":          &s.TargetFileSize,
		"crf":           &s.CRFValue,
	}
	for name, dst := range strs {
		if fs.Changed(name) {
			*dst = fs.Lookup(name).Value.String()
		}
	}
	if fs.Changed("method") {
		s = s.WithMethod(settings.Method(f.method))
	}
	if fs.Changed("format") {
		if !settings.IsKnownFormat(settings.Format(f.format)) {
			return s, fmt.Errorf("unknown format %q", f.format)
		}
		s = s.WithFormat(settings.Format(f.format))
	}
	if fs.Changed("trim-start") || fs.Changed("trim-end") {
		start, end := s.TrimStart, s.TrimEnd
		if fs.Changed("trim-start") {
			start = f.trimStart
		}
		if fs.Changed("trim-end") {
			end = f.trimEnd
		}
		s = s.WithTrim(start, end)
	}
	if fs.Changed("no-audio") {
		s = s.WithoutAudio(f.noAudio)
	}

	if f.quality != "" {
		q := settings.Quality(f.quality)
		if _, ok := settings.CRFForQuality(q); !ok {
			return s, fmt.Errorf("unknown quality %q", f.quality)
		}
		s = s.ApplyQuality(q)
	}
	if f.x {
		s = s.ApplyXPreset()
	}
	return s, nil
}

// loadPresets returns the built-in presets plus those in path.
func loadPresets(cmd *cobra.Command, path string) *config.PresetStore {
	store := config.NewPresetStore(path, nil)
	if err := store.Load(); err != nil {
		cmd.PrintErrf("warning: presets file %s ignored: %v\n", path, err)
	}
	return store
}
