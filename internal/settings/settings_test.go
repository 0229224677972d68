package settings

import (
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.CompressionMethod != MethodBitrate {
		t.Errorf("method = %q, want bitrate", s.CompressionMethod)
	}
	if s.VideoBitrate != "2500k" || s.VideoCodec != "libx264" || s.AudioCodec != "aac" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.Format != FormatMP4 {
		t.Errorf("format = %q, want mp4", s.Format)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestWithMethodKeepsOtherTargets(t *testing.T) {
	s := Default()
	s.CRFValue = "30"
	s.TargetPercentage = "40"

	switched := s.WithMethod(MethodPercentage)

	if switched.CRFValue != "30" {
		t.Errorf("CRFValue cleared on method switch: %q", switched.CRFValue)
	}
	if s.CompressionMethod != MethodBitrate {
		t.Error("original value was modified")
	}
}

func TestApplyQuality(t *testing.T) {
	tests := []struct {
		quality Quality
		wantCRF string
	}{
		{QualityHigh, "18"},
		{QualityMedium, "23"},
		{QualityLow, "28"},
	}

	for _, tt := range tests {
		t.Run(string(tt.quality), func(t *testing.T) {
			s := Default().ApplyQuality(tt.quality)
			if s.CompressionMethod != MethodCRF {
				t.Errorf("method = %q, want crf", s.CompressionMethod)
			}
			if s.CRFValue != tt.wantCRF {
				t.Errorf("crf = %q, want %q", s.CRFValue, tt.wantCRF)
			}
		})
	}

	if got := Default().ApplyQuality("ultra"); got != Default() {
		t.Errorf("unknown quality changed settings: %+v", got)
	}
}

func TestApplyXPreset(t *testing.T) {
	s := Default().WithFormat(FormatMKV).ApplyXPreset()

	if !s.XCompatible {
		t.Error("XCompatible not set")
	}
	if s.Format != FormatMP4 {
		t.Errorf("format = %q, want mp4", s.Format)
	}
	if s.Resolution != "1280x720" {
		t.Errorf("resolution = %q, want 1280x720", s.Resolution)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(Settings) Settings
		wantField string
	}{
		{"percentage too high", func(s Settings) Settings {
			s.CompressionMethod = MethodPercentage
			s.TargetPercentage = "101"
			return s
		}, "target_percentage"},
		{"percentage not a number", func(s Settings) Settings {
			s.CompressionMethod = MethodPercentage
			s.TargetPercentage = "abc"
			return s
		}, "target_percentage"},
		{"crf out of range", func(s Settings) Settings {
			s.CompressionMethod = MethodCRF
			s.CRFValue = "60"
			return s
		}, "crf_value"},
		{"zero file size", func(s Settings) Settings {
			s.CompressionMethod = MethodFileSize
			s.TargetFileSize = "0"
			return s
		}, "target_file_size"},
		{"unknown method", func(s Settings) Settings {
			s.CompressionMethod = "magic"
			return s
		}, "compression_method"},
		{"unknown format", func(s Settings) Settings {
			s.Format = "gif"
			return s
		}, "format"},
		{"inverted trim", func(s Settings) Settings {
			return s.WithTrim(10, 5)
		}, "trim_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edit(Default()).Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("field %q not reported in %v", tt.wantField, verr)
			}
		})
	}
}

func TestValidateIgnoresInactiveTargets(t *testing.T) {
	s := Default()
	s.CRFValue = "999"
	s.TargetPercentage = "nope"

	if err := s.Validate(); err != nil {
		t.Errorf("inactive targets should not be validated, got %v", err)
	}
}

func TestPresetApply(t *testing.T) {
	presets := BuiltinPresets()

	s := presets["x"].Apply(Default())
	if !s.XCompatible {
		t.Error("x preset did not apply the X.com values")
	}

	custom := Preset{
		Name:      "tiny",
		Overrides: Settings{CompressionMethod: MethodFileSize, TargetFileSize: "8", AudioBitrate: "64k"},
	}
	s = custom.Apply(Default())
	if s.CompressionMethod != MethodFileSize || s.TargetFileSize != "8" || s.AudioBitrate != "64k" {
		t.Errorf("overrides not applied: %+v", s)
	}
	if s.VideoCodec != "libx264" {
		t.Errorf("unset override replaced codec: %q", s.VideoCodec)
	}
}

func TestCatalog(t *testing.T) {
	c := GetCatalog()

	if len(c.CRFValues) != 34 {
		t.Errorf("expected 34 CRF choices (18..51), got %d", len(c.CRFValues))
	}
	if c.CRFValues[0].Value != "18" || c.CRFValues[33].Value != "51" {
		t.Errorf("unexpected CRF bounds: %v .. %v", c.CRFValues[0], c.CRFValues[33])
	}
	if !IsKnownFormat(FormatWEBM) || IsKnownFormat("gif") {
		t.Error("IsKnownFormat mismatch")
	}
}
