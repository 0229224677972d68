package settings

import "sort"

// Preset is a named settings edit. Overrides holds only the fields the preset
// changes; Quality and X apply the matching shortcut after the overrides.
type Preset struct {
	Name        string   `json:"name" toml:"-" example:"x" doc:"Preset name"`
	Description string   `json:"description" toml:"description" doc:"What the preset is for"`
	Quality     Quality  `json:"quality,omitempty" toml:"quality,omitempty" doc:"Quality shortcut applied by the preset"`
	X           bool     `json:"x,omitempty" toml:"x,omitempty" doc:"Apply the X.com compatible values"`
	Overrides   Settings `json:"overrides" toml:"settings" doc:"Fields the preset sets"`
	BuiltIn     bool     `json:"built_in" toml:"-" doc:"Shipped with the binary"`
}

// Apply returns s edited by the preset.
func (p Preset) Apply(s Settings) Settings {
	s = s.Merge(p.Overrides)
	if p.Quality != "" {
		s = s.ApplyQuality(p.Quality)
	}
	if p.X {
		s = s.ApplyXPreset()
	}
	return s
}

// BuiltinPresets returns the presets every installation has.
func BuiltinPresets() map[string]Preset {
	return map[string]Preset{
		"high":   {Name: "high", Description: "Visually lossless, CRF 18", Quality: QualityHigh, BuiltIn: true},
		"medium": {Name: "medium", Description: "Balanced, CRF 23", Quality: QualityMedium, BuiltIn: true},
		"low":    {Name: "low", Description: "Smallest files, CRF 28", Quality: QualityLow, BuiltIn: true},
		"x":      {Name: "x", Description: "Compress for X.com", X: true, BuiltIn: true},
	}
}

// SortedPresets returns presets ordered by name.
func SortedPresets(m map[string]Preset) []Preset {
	out := make([]Preset, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
