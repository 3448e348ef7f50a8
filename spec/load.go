package spec

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the wire representation used by Load and Save.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// Load reads a GraphSpec from r in the given Format and fills in the
// unknown-defaults described by the external interface.
func Load(r io.Reader, format Format) (*GraphSpec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("spec: read: %w", err)
	}

	g := &GraphSpec{}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(b, g); err != nil {
			return nil, fmt.Errorf("spec: decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(b, g); err != nil {
			return nil, fmt.Errorf("spec: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("spec: unknown format %v", format)
	}

	g.Normalize()
	return g, nil
}

// Save writes g to w in the given Format.
func Save(w io.Writer, format Format, g *GraphSpec) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("spec: encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("spec: encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("spec: unknown format %v", format)
	}
	return nil
}
