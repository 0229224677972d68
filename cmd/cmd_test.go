package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/smazurov/videosqueeze/internal/config"
	"github.com/smazurov/videosqueeze/internal/settings"
)

func resolveFlags(t *testing.T, args ...string) (settings.Settings, error) {
	t.Helper()
	var f settingsFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return f.resolve(fs, config.NewPresetStore("", nil))
}

func TestResolveSettings(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, s settings.Settings)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, s settings.Settings) {
				if s != settings.Default() {
					t.Errorf("got %+v, want defaults", s)
				}
			},
		},
		{
			name: "explicit crf",
			args: []string{"-m", "crf", "--crf", "30"},
			check: func(t *testing.T, s settings.Settings) {
				if s.CompressionMethod != settings.MethodCRF || s.CRFValue != "30" {
					t.Errorf("got %s/%s", s.CompressionMethod, s.CRFValue)
				}
			},
		},
		{
			name: "preset then override",
			args: []string{"--preset", "x", "--resolution", "640x360"},
			check: func(t *testing.T, s settings.Settings) {
				if !s.XCompatible || s.Resolution != "640x360" {
					t.Errorf("got %+v", s)
				}
			},
		},
		{
			name: "quality shortcut",
			args: []string{"-q", "low"},
			check: func(t *testing.T, s settings.Settings) {
				if s.CompressionMethod != settings.MethodCRF || s.CRFValue != "28" {
					t.Errorf("got %s/%s", s.CompressionMethod, s.CRFValue)
				}
			},
		},
		{
			name: "trim and audio",
			args: []string{"--trim-end", "12.5", "--no-audio", "-f", "webm"},
			check: func(t *testing.T, s settings.Settings) {
				if s.TrimEnd != 12.5 || s.TrimStart != 0 || !s.RemoveAudio || s.Format != settings.FormatWEBM {
					t.Errorf("got %+v", s)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := resolveFlags(t, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, s)
		})
	}
}

func TestResolveSettingsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--preset", "nope"},
		{"-q", "ultra"},
		{"-f", "gif"},
	} {
		if _, err := resolveFlags(t, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestArgsCommand(t *testing.T) {
	var out bytes.Buffer
	c := CreateArgsCmd(&Runtime{})
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs([]string{"holiday.MOV", "-m", "filesize", "--size", "25", "--duration", "100"})
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "ffmpeg ") {
		t.Errorf("output = %q", got)
	}
	for _, want := range []string{"input.mov", "-b:v 2048k", "output.mp4"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q lacks %q", got, want)
		}
	}
}

func TestArgsCommandJSON(t *testing.T) {
	var out bytes.Buffer
	c := CreateArgsCmd(&Runtime{})
	c.SetOut(&out)
	c.SetArgs([]string{"clip.mp4", "--json", "-q", "high"})
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	var argv []string
	if err := json.Unmarshal(out.Bytes(), &argv); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	i := slices.Index(argv, "-crf")
	if i < 0 || argv[i+1] != "18" {
		t.Errorf("argv = %v", argv)
	}
}

func TestArgsCommandPresetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	content := `version = 1

[presets.tiny]
description = "Small previews"

[presets.tiny.settings]
resolution = "320x180"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	c := CreateArgsCmd(&Runtime{PresetsFile: path})
	c.SetOut(&out)
	c.SetArgs([]string{"clip.mp4", "--preset", "tiny"})
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "-s 320x180") {
		t.Errorf("output = %q", out.String())
	}
}

func TestDefaultOutputPath(t *testing.T) {
	if got := defaultOutputPath("/videos/holiday.mov", settings.FormatMP4); got != "/videos/holiday-compressed.mp4" {
		t.Errorf("got %q", got)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for n, want := range tests {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestProgressPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	for _, v := range []float64{0, 4, 12, 19, 55, 100} {
		p.update(v)
	}
	p.finish()
	want := "compressing   0%\ncompressing  10%\ncompressing  50%\ncompressing 100%\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 10); got != "[#####.....]" {
		t.Errorf("progressBar(50) = %q", got)
	}
	if got := progressBar(150, 4); got != "[####]" {
		t.Errorf("progressBar(150) = %q", got)
	}
}
