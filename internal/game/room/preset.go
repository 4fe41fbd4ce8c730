package room

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a pre-declared room: its variant and the imposter count used
// when a start request does not name one.
type Preset struct {
	ID        string `yaml:"id"`
	Mode      Mode   `yaml:"mode"`
	Imposters int    `yaml:"imposters"`
}

// Presets indexes presets by room id.
type Presets map[string]Preset

type presetFile struct {
	Rooms []Preset `yaml:"rooms"`
}

// LoadPresets reads a YAML presets file.
//
// Precondition: path must name a readable YAML file with a top-level "rooms" list.
// Postcondition: Returns the presets keyed by id, or an error naming the first bad entry.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets %s: %w", path, err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes YAML presets from data.
func ParsePresets(data []byte) (Presets, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}

	out := make(Presets, len(f.Rooms))
	for i, p := range f.Rooms {
		if p.ID == "" {
			return nil, fmt.Errorf("preset %d: id must not be empty", i)
		}
		if !p.Mode.Valid() {
			return nil, fmt.Errorf("preset %q: unknown mode %q", p.ID, p.Mode)
		}
		if p.Imposters < 0 {
			return nil, fmt.Errorf("preset %q: imposters must be >= 0, got %d", p.ID, p.Imposters)
		}
		if _, dup := out[p.ID]; dup {
			return nil, fmt.Errorf("preset %q: declared twice", p.ID)
		}
		out[p.ID] = p
	}
	return out, nil
}

// Lookup returns the preset for roomID.
func (p Presets) Lookup(roomID string) (Preset, bool) {
	preset, ok := p[roomID]
	return preset, ok
}
