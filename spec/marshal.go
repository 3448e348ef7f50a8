package spec

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// RunSpec tags.
const (
	runTagOsProcess = "os_process"
	runTagGraph     = "graph"
	runTagStd       = "std"
)

// StdStageSpec tags.
const (
	stdTagTee   = "tee"
	stdTagMerge = "merge"
)

type taggedDoc struct {
	Type string                 `json:"type" yaml:"type" mapstructure:"type"`
	Data map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty" mapstructure:"data,omitempty"`
}

// MarshalJSON renders RunSpec as a {"type": ..., "data": {...}} tagged
// document, mirroring the recursive VertexSerialization convention used
// elsewhere in this family of runtimes for sum-typed configuration nodes.
func (r *RunSpec) MarshalJSON() ([]byte, error) {
	doc, err := r.toTaggedDoc()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (r *RunSpec) MarshalYAML() (interface{}, error) {
	return r.toTaggedDoc()
}

func (r *RunSpec) toTaggedDoc() (*taggedDoc, error) {
	switch {
	case r.OsProcess != nil:
		m, err := toMap(r.OsProcess)
		if err != nil {
			return nil, err
		}
		return &taggedDoc{Type: runTagOsProcess, Data: m}, nil
	case r.Graph != nil:
		m, err := toMap(r.Graph)
		if err != nil {
			return nil, err
		}
		return &taggedDoc{Type: runTagGraph, Data: m}, nil
	case r.StdStage != nil:
		m, err := toMap(r.StdStage)
		if err != nil {
			return nil, err
		}
		return &taggedDoc{Type: runTagStd, Data: m}, nil
	default:
		return nil, fmt.Errorf("spec: RunSpec has no variant set")
	}
}

func (r *RunSpec) UnmarshalJSON(b []byte) error {
	var doc taggedDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	return r.fromTaggedDoc(&doc)
}

func (r *RunSpec) UnmarshalYAML(value *yaml.Node) error {
	var doc taggedDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	return r.fromTaggedDoc(&doc)
}

func (r *RunSpec) fromTaggedDoc(doc *taggedDoc) error {
	switch doc.Type {
	case runTagOsProcess:
		out := &OsProcessSpec{}
		if err := fromMap(doc.Data, out); err != nil {
			return err
		}
		r.OsProcess = out
	case runTagGraph:
		out := &GraphSpec{}
		if err := fromMap(doc.Data, out); err != nil {
			return err
		}
		r.Graph = out
	case runTagStd:
		out := &StdStageSpec{}
		if err := fromMap(doc.Data, out); err != nil {
			return err
		}
		r.StdStage = out
	default:
		return fmt.Errorf("spec: unknown RunSpec type %q", doc.Type)
	}
	return nil
}

func (s *StdStageSpec) MarshalJSON() ([]byte, error) {
	doc, err := s.toTaggedDoc()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (s *StdStageSpec) MarshalYAML() (interface{}, error) {
	return s.toTaggedDoc()
}

func (s *StdStageSpec) toTaggedDoc() (*taggedDoc, error) {
	switch {
	case s.Tee != nil:
		m, err := toMap(s.Tee)
		if err != nil {
			return nil, err
		}
		return &taggedDoc{Type: stdTagTee, Data: m}, nil
	case s.Merge != nil:
		m, err := toMap(s.Merge)
		if err != nil {
			return nil, err
		}
		return &taggedDoc{Type: stdTagMerge, Data: m}, nil
	default:
		return nil, fmt.Errorf("spec: StdStageSpec has no variant set")
	}
}

func (s *StdStageSpec) UnmarshalJSON(b []byte) error {
	var doc taggedDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	return s.fromTaggedDoc(&doc)
}

func (s *StdStageSpec) UnmarshalYAML(value *yaml.Node) error {
	var doc taggedDoc
	if err := value.Decode(&doc); err != nil {
		return err
	}
	return s.fromTaggedDoc(&doc)
}

func (s *StdStageSpec) fromTaggedDoc(doc *taggedDoc) error {
	switch doc.Type {
	case stdTagTee:
		out := &TeeSpec{}
		if err := decodeAttrs(doc.Data, out); err != nil {
			return err
		}
		s.Tee = out
	case stdTagMerge:
		out := &MergeSpec{EagerlyComplete: false, EagerlyFail: false}
		if err := decodeAttrs(doc.Data, out); err != nil {
			return err
		}
		s.Merge = out
	default:
		return fmt.Errorf("spec: unknown StdStageSpec type %q", doc.Type)
	}
	return nil
}

// decodeAttrs decodes a leaf stage's attribute map (no nested tagged
// unions) with mapstructure, which is cheaper than a JSON round-trip and
// tolerates the loosely typed numeric/bool values YAML unmarshaling
// produces for a map[string]interface{}.
func decodeAttrs(m map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

// LogSpec marshals as a flat tagged document; File carries its Path
// alongside the type tag rather than nested under "data".
func (l *LogSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.asPlain())
}

func (l *LogSpec) MarshalYAML() (interface{}, error) {
	return l.asPlain(), nil
}

func (l *LogSpec) asPlain() map[string]interface{} {
	switch l.Type {
	case LogFile:
		return map[string]interface{}{"type": LogFile, "path": l.Path}
	case LogNull:
		return map[string]interface{}{"type": LogNull}
	default:
		return map[string]interface{}{"type": LogNoCapture}
	}
}

func (l *LogSpec) UnmarshalJSON(b []byte) error {
	var plain map[string]interface{}
	if err := json.Unmarshal(b, &plain); err != nil {
		return err
	}
	return l.fromPlain(plain)
}

func (l *LogSpec) UnmarshalYAML(value *yaml.Node) error {
	var plain map[string]interface{}
	if err := value.Decode(&plain); err != nil {
		return err
	}
	return l.fromPlain(plain)
}

func (l *LogSpec) fromPlain(plain map[string]interface{}) error {
	t, _ := plain["type"].(string)
	if t == "" {
		t = LogNoCapture
	}
	switch t {
	case LogNoCapture, LogNull:
		l.Type = t
	case LogFile:
		path, _ := plain["path"].(string)
		l.Type = LogFile
		l.Path = path
	default:
		return fmt.Errorf("spec: unknown LogSpec type %q", t)
	}
	return nil
}

// toMap and fromMap round-trip through encoding/json rather than
// mapstructure so that nested tagged unions (a Graph variant's own
// VertexSpec.Run) go through their own MarshalJSON/UnmarshalJSON instead
// of being flattened by reflection.
func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]interface{}, out interface{}) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
