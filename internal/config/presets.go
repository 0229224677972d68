package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/videosqueeze/internal/events"
	"github.com/smazurov/videosqueeze/internal/logging"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// ErrPresetNotFound is returned for an unknown preset name.
var ErrPresetNotFound = errors.New("preset not found")

// PresetsFile is the on-disk layout of presets.toml:
//
//	version = 1
//
//	[presets.discord]
//	description = "Fits the 25 MB upload limit"
//	[presets.discord.settings]
//	compression_method = "filesize"
//	target_file_size = "24"
type PresetsFile struct {
	Version int                        `toml:"version"`
	Presets map[string]settings.Preset `toml:"presets"`
}

// LoadPresets reads a presets file. A missing file yields no presets.
func LoadPresets(path string) (map[string]settings.Preset, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]settings.Preset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var file PresetsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}

	out := make(map[string]settings.Preset, len(file.Presets))
	for name, p := range file.Presets {
		p.Name = name
		p.BuiltIn = false
		if p.Quality != "" {
			if _, ok := settings.CRFForQuality(p.Quality); !ok {
				return nil, fmt.Errorf("preset %q: unknown quality %q", name, p.Quality)
			}
		}
		out[name] = p
	}
	return out, nil
}

// Publisher receives reload notifications.
type Publisher interface {
	Publish(ev events.Event)
}

// PresetStore serves the built-in presets plus those from a presets file.
// File presets replace built-ins of the same name. Safe for concurrent use.
type PresetStore struct {
	path    string
	bus     Publisher
	logger  *slog.Logger
	mu      sync.RWMutex
	presets map[string]settings.Preset
	watcher *Watcher[map[string]settings.Preset]
}

// NewPresetStore returns a store with only the built-in presets. bus may be nil.
func NewPresetStore(path string, bus Publisher) *PresetStore {
	return &PresetStore{
		path:    path,
		bus:     bus,
		logger:  logging.GetLogger("config"),
		presets: settings.BuiltinPresets(),
	}
}

// Load reads the presets file. On error the current presets are kept.
func (s *PresetStore) Load() error {
	if s.path == "" {
		return nil
	}
	file, err := LoadPresets(s.path)
	if err != nil {
		return err
	}
	s.replace(file)
	return nil
}

func (s *PresetStore) replace(file map[string]settings.Preset) {
	merged := settings.BuiltinPresets()
	for name, p := range file {
		merged[name] = p
	}

	s.mu.Lock()
	s.presets = merged
	s.mu.Unlock()

	s.logger.Info("Presets loaded", "path", s.path, "file_presets", len(file), "total", len(merged))
	s.publish(events.PresetsReloadedEvent{Count: len(merged), Timestamp: events.Now()})
}

func (s *PresetStore) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// List returns every preset ordered by name.
func (s *PresetStore) List() []settings.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return settings.SortedPresets(s.presets)
}

// Get returns the named preset.
func (s *PresetStore) Get(name string) (settings.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	if !ok {
		return settings.Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, name)
	}
	return p, nil
}

// Watch reloads the presets file whenever it changes until Close.
func (s *PresetStore) Watch(opts ...WatcherOption[map[string]settings.Preset]) error {
	if s.path == "" {
		return nil
	}
	opts = append([]WatcherOption[map[string]settings.Preset]{
		WithErrorHandler[map[string]settings.Preset](func(err error) {
			s.mu.RLock()
			n := len(s.presets)
			s.mu.RUnlock()
			s.publish(events.PresetsReloadedEvent{Count: n, Error: err.Error(), Timestamp: events.Now()})
		}),
	}, opts...)

	w := NewConfigWatcher(s.path, LoadPresets, s.logger, opts...)
	w.OnReload(s.replace)
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// Close stops watching.
func (s *PresetStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}
