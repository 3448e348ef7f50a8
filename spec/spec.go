// Package spec defines the declarative data model for a dataflow graph:
// GraphSpec, VertexSpec, RunSpec, EdgeSpec, PortSpec, and LogSpec.
package spec

// GraphSpec is the declarative description of a dataflow graph. It is
// recursive: a vertex's RunSpec may itself hold a GraphSpec.
type GraphSpec struct {
	Vertices map[string]*VertexSpec `json:"vertices,omitempty" yaml:"vertices,omitempty" mapstructure:"vertices,omitempty"`
	Edges    []*EdgeSpec            `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges,omitempty"`
	Inlets   []*PortSpec            `json:"inlets,omitempty" yaml:"inlets,omitempty" mapstructure:"inlets,omitempty"`
	Outlets  []*PortSpec            `json:"outlets,omitempty" yaml:"outlets,omitempty" mapstructure:"outlets,omitempty"`
}

// VertexSpec declares one vertex's run definition and its ordered ports.
// Port order is semantic: it is the zero-based port index used on the wire.
type VertexSpec struct {
	Run             *RunSpec         `json:"run" yaml:"run" mapstructure:"run"`
	Inlets          []string         `json:"inlets,omitempty" yaml:"inlets,omitempty" mapstructure:"inlets,omitempty"`
	Outlets         []string         `json:"outlets,omitempty" yaml:"outlets,omitempty" mapstructure:"outlets,omitempty"`
	RestartStrategy *RestartStrategy `json:"restart_strategy,omitempty" yaml:"restart_strategy,omitempty" mapstructure:"restart_strategy,omitempty"`
}

// RestartStrategy is a placeholder tagged value. Only NoRestart is
// implemented by the runtime; the type exists so a future restart policy
// can be added without a wire-format change.
type RestartStrategy struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"`
}

// RestartStrategyNoRestart is the only implemented restart strategy.
var RestartStrategyNoRestart = &RestartStrategy{Type: "no_restart"}

// RunSpec is a tagged union over the three vertex implementations.
type RunSpec struct {
	OsProcess *OsProcessSpec
	Graph     *GraphSpec
	StdStage  *StdStageSpec
}

// OsProcessSpec describes a child-process vertex.
type OsProcessSpec struct {
	Cmd []string          `json:"cmd" yaml:"cmd" mapstructure:"cmd"`
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty" mapstructure:"env,omitempty"`
	Log *LogSpec          `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log,omitempty"`
}

// LogSpec is a tagged union describing what happens to a child's stderr.
type LogSpec struct {
	Type string `json:"type" yaml:"type" mapstructure:"type"`
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path,omitempty"`
}

// LogSpec tags.
const (
	LogNoCapture = "no_capture"
	LogNull      = "null"
	LogFile      = "file"
)

// DefaultLogSpec is used wherever an OsProcessSpec omits Log.
var DefaultLogSpec = &LogSpec{Type: LogNoCapture}

// StdStageSpec is a tagged union over the built-in stages.
type StdStageSpec struct {
	Tee   *TeeSpec
	Merge *MergeSpec
}

// TeeSpec configures a 1-inlet, N-outlet broadcast stage.
type TeeSpec struct {
	Schema       string `json:"schema" yaml:"schema" mapstructure:"schema"`
	OutletsCount int    `json:"outlets_count" yaml:"outlets_count" mapstructure:"outlets_count"`
}

// MergeSpec configures an N-inlet, 1-outlet coalescing stage.
type MergeSpec struct {
	Schema          string `json:"schema" yaml:"schema" mapstructure:"schema"`
	InletsCount     int    `json:"inlets_count" yaml:"inlets_count" mapstructure:"inlets_count"`
	EagerlyComplete bool   `json:"eagerly_complete,omitempty" yaml:"eagerly_complete,omitempty" mapstructure:"eagerly_complete,omitempty"`
	EagerlyFail     bool   `json:"eagerly_fail,omitempty" yaml:"eagerly_fail,omitempty" mapstructure:"eagerly_fail,omitempty"`
}

// PortSpec addresses one named port on one named vertex.
type PortSpec struct {
	Vertex string `json:"vertex" yaml:"vertex" mapstructure:"vertex"`
	Port   string `json:"port" yaml:"port" mapstructure:"port"`
}

// EdgeSpec binds one producer's outlet to one consumer's inlet, carrying
// the schema document both ends must resolve against.
type EdgeSpec struct {
	Producer PortSpec `json:"producer" yaml:"producer" mapstructure:"producer"`
	Consumer PortSpec `json:"consumer" yaml:"consumer" mapstructure:"consumer"`
	Schema   string   `json:"schema" yaml:"schema" mapstructure:"schema"`
}

// Normalize fills the unknown-default values described by the external
// interface: empty maps/slices instead of nil, and LogNoCapture /
// RestartStrategyNoRestart where omitted.
func (g *GraphSpec) Normalize() {
	if g.Vertices == nil {
		g.Vertices = map[string]*VertexSpec{}
	}
	if g.Edges == nil {
		g.Edges = []*EdgeSpec{}
	}
	if g.Inlets == nil {
		g.Inlets = []*PortSpec{}
	}
	if g.Outlets == nil {
		g.Outlets = []*PortSpec{}
	}

	for _, v := range g.Vertices {
		v.normalize()
	}
}

func (v *VertexSpec) normalize() {
	if v.RestartStrategy == nil {
		v.RestartStrategy = RestartStrategyNoRestart
	}
	if v.Run != nil {
		if v.Run.OsProcess != nil {
			if v.Run.OsProcess.Env == nil {
				v.Run.OsProcess.Env = map[string]string{}
			}
			if v.Run.OsProcess.Log == nil {
				v.Run.OsProcess.Log = DefaultLogSpec
			}
		}
		if v.Run.Graph != nil {
			v.Run.Graph.Normalize()
		}
	}
}
