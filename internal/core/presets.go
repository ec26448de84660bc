package core

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

// Preset is a named, ready-made list of fields.
type Preset struct {
	Name        string      `yaml:"name" json:"name"`
	Label       string      `yaml:"label" json:"label"`
	Description string      `yaml:"description" json:"description"`
	Fields      []FieldKind `yaml:"fields" json:"fields"`
}

// Presets is an immutable set of presets validated against a catalog.
type Presets struct {
	byName map[string]Preset
	order  []string
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets parses YAML preset definitions. Every field must resolve in
// catalog; aliases are rewritten to canonical kinds.
func LoadPresets(data []byte, catalog *Catalog) (*Presets, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	p := &Presets{byName: make(map[string]Preset, len(file.Presets))}
	for _, preset := range file.Presets {
		name := strings.ToLower(strings.TrimSpace(preset.Name))
		if name == "" {
			return nil, fmt.Errorf("preset with empty name")
		}
		if _, dup := p.byName[name]; dup {
			return nil, fmt.Errorf("duplicate preset %q", name)
		}
		if len(preset.Fields) == 0 {
			return nil, fmt.Errorf("preset %q has no fields", name)
		}

		var unknown []string
		for i, k := range preset.Fields {
			kind, ok := catalog.Lookup(string(k))
			if !ok {
				unknown = append(unknown, string(k))
				continue
			}
			preset.Fields[i] = kind
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("preset %q: %w", name, &UnknownFieldKindError{Kinds: unknown})
		}

		preset.Name = name
		if preset.Label == "" {
			preset.Label = name
		}
		p.byName[name] = preset
		p.order = append(p.order, name)
	}
	return p, nil
}

// DefaultPresets loads the presets bundled with the binary.
func DefaultPresets(catalog *Catalog) (*Presets, error) {
	return LoadPresets(defaultPresetsYAML, catalog)
}

// Get looks a preset up by case-insensitive name.
func (p *Presets) Get(name string) (Preset, bool) {
	preset, ok := p.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	preset.Fields = append([]FieldKind(nil), preset.Fields...)
	return preset, true
}

// All returns the presets in file order.
func (p *Presets) All() []Preset {
	out := make([]Preset, 0, len(p.order))
	for _, name := range p.order {
		preset, _ := p.Get(name)
		out = append(out, preset)
	}
	return out
}

// Names returns the preset names sorted alphabetically.
func (p *Presets) Names() []string {
	names := append([]string(nil), p.order...)
	sort.Strings(names)
	return names
}
