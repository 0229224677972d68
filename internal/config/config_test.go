package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	ServerPort   string   `toml:"server.port" env:"SERVER_PORT"`
	AuthEnabled  bool     `toml:"auth.enabled" env:"AUTH_ENABLED"`
	EngineThread int      `toml:"engine.threads" env:"ENGINE_THREADS"`
	CorsOrigins  []string `toml:"server.cors_origins" env:"CORS_ORIGINS"`
	TrimPadding  float64  `toml:"engine.trim_padding" env:"TRIM_PADDING"`
	Untagged     string
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `
[server]
port = ":9000"
cors_origins = ["http://localhost:5173", "https://squeeze.example"]

[auth]
enabled = true

[engine]
threads = 4
trim_padding = 2
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, "config.toml", sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if opts.ServerPort != ":9000" {
		t.Errorf("ServerPort = %q", opts.ServerPort)
	}
	if !opts.AuthEnabled {
		t.Error("AuthEnabled = false")
	}
	if opts.EngineThread != 4 {
		t.Errorf("EngineThread = %d", opts.EngineThread)
	}
	if opts.TrimPadding != 2 {
		t.Errorf("TrimPadding = %v, want integer TOML value converted", opts.TrimPadding)
	}
	want := []string{"http://localhost:5173", "https://squeeze.example"}
	if !reflect.DeepEqual(opts.CorsOrigins, want) {
		t.Errorf("CorsOrigins = %v, want %v", opts.CorsOrigins, want)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	t.Setenv("VIDEOSQUEEZE_SERVER_PORT", ":7000")
	t.Setenv("VIDEOSQUEEZE_AUTH_ENABLED", "false")
	t.Setenv("VIDEOSQUEEZE_CORS_ORIGINS", "a, b,,c")

	opts := &testOptions{Config: writeFile(t, "config.toml", sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	if opts.ServerPort != ":7000" {
		t.Errorf("ServerPort = %q, want env value", opts.ServerPort)
	}
	if opts.AuthEnabled {
		t.Error("AuthEnabled should be overridden to false")
	}
	if opts.EngineThread != 4 {
		t.Errorf("EngineThread = %d, want TOML value", opts.EngineThread)
	}
	if !reflect.DeepEqual(opts.CorsOrigins, []string{"a", "b", "c"}) {
		t.Errorf("CorsOrigins = %v", opts.CorsOrigins)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	t.Setenv("VIDEOSQUEEZE_SERVER_PORT", ":7000")

	cmd := &cobra.Command{Use: "test"}
	port := cmd.Flags().String("server-port", ":8090", "")
	if err := cmd.Flags().Set("server-port", ":6000"); err != nil {
		t.Fatal(err)
	}

	opts := &testOptions{Config: writeFile(t, "config.toml", sampleConfig), ServerPort: *port}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatal(err)
	}
	if opts.ServerPort != ":6000" {
		t.Errorf("ServerPort = %q, want CLI value", opts.ServerPort)
	}
	if opts.EngineThread != 4 {
		t.Errorf("unset flags should still load from file, got %d", opts.EngineThread)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), ServerPort: ":8090"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if opts.ServerPort != ":8090" {
		t.Errorf("default overwritten: %q", opts.ServerPort)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeFile(t, "bad.toml", "[server\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigRequiresPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Fatal("expected error for non-pointer options")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":          "port",
		"LoggingLevel":  "logging-level",
		"EnginePath":    "engine-path",
		"MaxUploadSize": "max-upload-size",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"server": map[string]any{"port": ":8090"},
		"top":    "value",
	}
	tests := []struct {
		path string
		want any
	}{
		{"server.port", ":8090"},
		{"top", "value"},
		{"server.missing", nil},
		{"top.deeper", nil},
		{"absent.key", nil},
	}
	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.want {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSetFieldValueIgnoresMismatchedTypes(t *testing.T) {
	var opts testOptions
	v := reflect.ValueOf(&opts).Elem()

	setFieldValue(v.FieldByName("ServerPort"), int64(80))
	setFieldValue(v.FieldByName("AuthEnabled"), "yes")
	setFieldValueFromString(v.FieldByName("EngineThread"), "four")

	if opts.ServerPort != "" || opts.AuthEnabled || opts.EngineThread != 0 {
		t.Errorf("mismatched values were applied: %+v", opts)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
[logging]
level = "debug"
format = "json"
conversion = "warn"
api = "error"
`)
	cfg := LoadLoggingConfig(path)

	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("level/format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"conversion": "warn", "api": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	if def := LoadLoggingConfig(""); def.Level != "info" || def.Format != "text" {
		t.Errorf("defaults = %+v", def)
	}
}
