// Package settings holds the conversion settings model and its option catalogs.
//
// Settings is a plain value. Every edit returns a new value so a session can
// hand out its current settings without copying concerns.
package settings

// Method selects which derivation branch computes the video rate argument.
type Method string

// Compression methods.
const (
	MethodBitrate    Method = "bitrate"
	MethodPercentage Method = "percentage"
	MethodFileSize   Method = "filesize"
	MethodCRF        Method = "crf"
)

// Format is the output container.
type Format string

// Output containers.
const (
	FormatMP4  Format = "mp4"
	FormatMKV  Format = "mkv"
	FormatAVI  Format = "avi"
	FormatMOV  Format = "mov"
	FormatFLV  Format = "flv"
	FormatWEBM Format = "webm"
)

// Quality is a named shortcut onto the crf branch.
type Quality string

// Quality levels.
const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Defaults for the optional per-method targets.
const (
	DefaultCRF        = "23"
	DefaultPercentage = "100"
	DefaultFileSizeMB = "100"
)

// Settings captures every user-selectable option for one conversion.
type Settings struct {
	CompressionMethod Method `json:"compression_method" toml:"compression_method" enum:"bitrate,percentage,filesize,crf" example:"bitrate" doc:"Which derivation branch computes the video rate argument"`

	VideoBitrate string `json:"video_bitrate" toml:"video_bitrate" example:"2500k" doc:"Video bitrate passed through as -b:v"`
	AudioBitrate string `json:"audio_bitrate" toml:"audio_bitrate" example:"128k" doc:"Audio bitrate passed through as -b:a"`
	VideoCodec   string `json:"video_codec" toml:"video_codec" example:"libx264" doc:"Video encoder passed through as -c:v"`
	AudioCodec   string `json:"audio_codec" toml:"audio_codec" example:"aac" doc:"Audio encoder passed through as -c:a"`
	FrameRate    string `json:"frame_rate" toml:"frame_rate" example:"30" doc:"Output frame rate passed through as -r"`
	Resolution   string `json:"resolution" toml:"resolution" example:"1920x1080" doc:"Output frame size passed through as -s"`

	TargetPercentage string `json:"target_percentage,omitempty" toml:"target_percentage,omitempty" example:"70" doc:"Quality percentage, used by the percentage method"`
	TargetFileSize   string `json:"target_file_size,omitempty" toml:"target_file_size,omitempty" example:"25" doc:"Target size in MB, used by the filesize method"`
	CRFValue         string `json:"crf_value,omitempty" toml:"crf_value,omitempty" example:"23" doc:"Constant rate factor, used by the crf method"`

	Format      Format  `json:"format" toml:"format" enum:"mp4,mkv,avi,mov,flv,webm" example:"mp4" doc:"Output container"`
	TrimStart   float64 `json:"trim_start,omitempty" toml:"trim_start,omitempty" example:"0" doc:"Trim start in seconds"`
	TrimEnd     float64 `json:"trim_end,omitempty" toml:"trim_end,omitempty" example:"0" doc:"Trim end in seconds, 0 keeps the whole clip"`
	RemoveAudio bool    `json:"remove_audio,omitempty" toml:"remove_audio,omitempty" doc:"Drop every audio stream"`
	XCompatible bool    `json:"x_compatible,omitempty" toml:"x_compatible,omitempty" doc:"Produce a file X.com accepts without re-encoding"`
}

// Default returns the settings a fresh session starts with.
func Default() Settings {
	return Settings{
		CompressionMethod: MethodBitrate,
		VideoBitrate:      "2500k",
		VideoCodec:        "libx264",
		AudioCodec:        "aac",
		AudioBitrate:      "128k",
		FrameRate:         "30",
		Resolution:        "1920x1080",
		Format:            FormatMP4,
	}
}

// WithMethod switches the derivation branch. The other branches' targets are kept.
func (s Settings) WithMethod(m Method) Settings {
	s.CompressionMethod = m
	return s
}

// WithTrim sets the trim range in seconds.
func (s Settings) WithTrim(start, end float64) Settings {
	s.TrimStart = start
	s.TrimEnd = end
	return s
}

// WithFormat sets the output container.
func (s Settings) WithFormat(f Format) Settings {
	s.Format = f
	return s
}

// WithoutAudio toggles audio removal.
func (s Settings) WithoutAudio(remove bool) Settings {
	s.RemoveAudio = remove
	return s
}

// CRFForQuality maps a quality level to the constant rate factor it stands for.
func CRFForQuality(q Quality) (string, bool) {
	switch q {
	case QualityHigh:
		return "18", true
	case QualityMedium:
		return "23", true
	case QualityLow:
		return "28", true
	}
	return "", false
}

// ApplyQuality switches to the crf branch with the level's CRF.
// Unknown levels leave the settings unchanged.
func (s Settings) ApplyQuality(q Quality) Settings {
	crf, ok := CRFForQuality(q)
	if !ok {
		return s
	}
	s.CompressionMethod = MethodCRF
	s.CRFValue = crf
	return s
}

// ApplyXPreset sets values X.com accepts for direct upload.
func (s Settings) ApplyXPreset() Settings {
	s.VideoCodec = "libx264"
	s.AudioCodec = "aac"
	s.AudioBitrate = "128k"
	s.FrameRate = "30"
	s.Resolution = "1280x720"
	s.Format = FormatMP4
	s.XCompatible = true
	return s
}

// Merge overlays the non-zero fields of o onto s.
func (s Settings) Merge(o Settings) Settings {
	if o.CompressionMethod != "" {
		s.CompressionMethod = o.CompressionMethod
	}
	mergeString(&s.VideoBitrate, o.VideoBitrate)
	mergeString(&s.AudioBitrate, o.AudioBitrate)
	mergeString(&s.VideoCodec, o.VideoCodec)
	mergeString(&s.AudioCodec, o.AudioCodec)
	mergeString(&s.FrameRate, o.FrameRate)
	mergeString(&s.Resolution, o.Resolution)
	mergeString(&s.TargetPercentage, o.TargetPercentage)
	mergeString(&s.TargetFileSize, o.TargetFileSize)
	mergeString(&s.CRFValue, o.CRFValue)
	if o.Format != "" {
		s.Format = o.Format
	}
	if o.TrimStart != 0 {
		s.TrimStart = o.TrimStart
	}
	if o.TrimEnd != 0 {
		s.TrimEnd = o.TrimEnd
	}
	s.RemoveAudio = s.RemoveAudio || o.RemoveAudio
	s.XCompatible = s.XCompatible || o.XCompatible
	return s
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
