// Package vertex is the tagged dispatcher over a vertex's three possible
// run definitions. It owns the vertex's channel vectors only until it
// hands them to the matching inner runtime; its own termination is
// exactly that runtime's termination, and errors pass through unchanged.
package vertex

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/whitaker-io/flowgraph/builtin"
	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/runner/osprocess"
	"github.com/whitaker-io/flowgraph/spec"
)

// GraphRunner runs a nested GraphSpec against its external port slots.
// Vertex never implements this itself — it is supplied by whatever
// assembled the graph this vertex belongs to, since running a nested
// graph is itself an Assembler invocation and vertex must not import
// that package (it would import vertex to build each of its own
// vertices, forming a cycle).
type GraphRunner func(ctx context.Context, g *spec.GraphSpec, externalOutlets []message.ProducerChannels, externalInlets []message.ConsumerChannels, logger *logrus.Logger) error

// Vertex is one assembled vertex: its run definition plus its in-order
// outlet and inlet channel slots, exactly as bound by the graph
// assembler.
type Vertex struct {
	Run      *spec.RunSpec
	Outlets  []message.ProducerChannels
	Inlets   []message.ConsumerChannels
	RunGraph GraphRunner
}

// Run dispatches v.Run to the matching inner runtime and blocks until it
// finishes.
func Run(ctx context.Context, v *Vertex, logger *logrus.Logger) error {
	switch {
	case v.Run.OsProcess != nil:
		return osprocess.Run(ctx, v.Run.OsProcess, outletSchemas(v.Outlets), inletSchemas(v.Inlets), v.Outlets, v.Inlets, logger)
	case v.Run.StdStage != nil:
		return runStdStage(ctx, v.Run.StdStage, v.Outlets, v.Inlets)
	case v.Run.Graph != nil:
		if v.RunGraph == nil {
			return &UnconfiguredGraphRunnerError{}
		}
		return v.RunGraph(ctx, v.Run.Graph, v.Outlets, v.Inlets, logger)
	default:
		return &EmptyRunSpecError{}
	}
}

func runStdStage(ctx context.Context, s *spec.StdStageSpec, outlets []message.ProducerChannels, inlets []message.ConsumerChannels) error {
	switch {
	case s.Tee != nil:
		if len(inlets) != 1 {
			return &StdStageArityError{Stage: "tee", Want: 1, Got: len(inlets)}
		}
		return builtin.RunTee(ctx, inlets[0], outlets)
	case s.Merge != nil:
		if len(outlets) != 1 {
			return &StdStageArityError{Stage: "merge", Want: 1, Got: len(outlets)}
		}
		cfg := builtin.MergeConfig{EagerlyComplete: s.Merge.EagerlyComplete, EagerlyFail: s.Merge.EagerlyFail}
		return builtin.RunMerge(ctx, inlets, outlets[0], cfg)
	default:
		return &EmptyStdStageSpecError{}
	}
}

func outletSchemas(outlets []message.ProducerChannels) []string {
	schemas := make([]string, len(outlets))
	for i, o := range outlets {
		schemas[i] = o.Schema
	}
	return schemas
}

func inletSchemas(inlets []message.ConsumerChannels) []string {
	schemas := make([]string, len(inlets))
	for i, in := range inlets {
		schemas[i] = in.Schema
	}
	return schemas
}
