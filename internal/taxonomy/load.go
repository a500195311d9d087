package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseSpec decodes a taxonomy YAML document.
func ParseSpec(data []byte) (Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse taxonomy yaml: %w", err)
	}
	return s, nil
}

// Load builds a taxonomy from the built-in tables extended (or replaced) by
// the file at path. An empty path yields the built-in tables.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	overlay, err := ParseSpec(data)
	if err != nil {
		return nil, err
	}
	t, err := New(Merge(DefaultSpec(), overlay))
	if err != nil {
		return nil, fmt.Errorf("compile taxonomy %s: %w", path, err)
	}
	return t, nil
}
