// Package graph implements the assembler (§4.I): it reserves each
// vertex's named port slots, binds internal edges and external ports
// into those slots, validates that every slot ended up bound, and then
// launches one Vertex Runner per vertex, awaiting all of them jointly.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/hamba/avro/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/runner/vertex"
	"github.com/whitaker-io/flowgraph/spec"
)

type vertexSlots struct {
	inletNames  []string
	outletNames []string
	inlets      map[string]*message.ConsumerChannels
	outlets     map[string]*message.ProducerChannels
}

// Run assembles g and runs every vertex to completion. externalOutlets
// and externalInlets are this graph's own external port slots, supplied
// by whatever is running it as a vertex (or as the top-level graph).
func Run(ctx context.Context, g *spec.GraphSpec, externalOutlets []message.ProducerChannels, externalInlets []message.ConsumerChannels, logger *logrus.Logger) error {
	g.Normalize()

	slots, err := buildSlots(g)
	if err != nil {
		return err
	}
	if err := bindInternalEdges(g, slots); err != nil {
		return err
	}
	if err := bindExternals(g, slots, externalOutlets, externalInlets); err != nil {
		return err
	}
	if err := validate(g, slots); err != nil {
		return err
	}
	return launch(ctx, g, slots, logger)
}

func buildSlots(g *spec.GraphSpec) (map[string]*vertexSlots, error) {
	slots := make(map[string]*vertexSlots, len(g.Vertices))

	for name, vs := range g.Vertices {
		inlets := make(map[string]*message.ConsumerChannels, len(vs.Inlets))
		for _, port := range vs.Inlets {
			if _, dup := inlets[port]; dup {
				return nil, &DuplicatePortNameError{Vertex: name, Port: port, Outlet: false}
			}
			inlets[port] = nil
		}

		outlets := make(map[string]*message.ProducerChannels, len(vs.Outlets))
		for _, port := range vs.Outlets {
			if _, dup := outlets[port]; dup {
				return nil, &DuplicatePortNameError{Vertex: name, Port: port, Outlet: true}
			}
			outlets[port] = nil
		}

		slots[name] = &vertexSlots{
			inletNames:  vs.Inlets,
			outletNames: vs.Outlets,
			inlets:      inlets,
			outlets:     outlets,
		}
	}

	return slots, nil
}

func bindInternalEdges(g *spec.GraphSpec, slots map[string]*vertexSlots) error {
	for _, e := range g.Edges {
		if _, err := avro.Parse(e.Schema); err != nil {
			return &SchemaParseError{Schema: e.Schema, Cause: err}
		}

		producerSlots, err := lookupOutlet(slots, e.Producer.Vertex, e.Producer.Port)
		if err != nil {
			return err
		}
		consumerSlots, err := lookupInlet(slots, e.Consumer.Vertex, e.Consumer.Port)
		if err != nil {
			return err
		}

		pc, cc := message.NewPipe(e.Schema)
		producerSlots.outlets[e.Producer.Port] = &pc
		consumerSlots.inlets[e.Consumer.Port] = &cc
	}
	return nil
}

func bindExternals(g *spec.GraphSpec, slots map[string]*vertexSlots, externalOutlets []message.ProducerChannels, externalInlets []message.ConsumerChannels) error {
	if len(externalOutlets) != len(g.Outlets) {
		return &ExternalPortMismatchError{Outlet: true, Expected: len(g.Outlets), Got: len(externalOutlets)}
	}
	if len(externalInlets) != len(g.Inlets) {
		return &ExternalPortMismatchError{Outlet: false, Expected: len(g.Inlets), Got: len(externalInlets)}
	}

	for i, p := range g.Outlets {
		vs, err := lookupOutlet(slots, p.Vertex, p.Port)
		if err != nil {
			return err
		}
		vs.outlets[p.Port] = &externalOutlets[i]
	}
	for i, p := range g.Inlets {
		vs, err := lookupInlet(slots, p.Vertex, p.Port)
		if err != nil {
			return err
		}
		vs.inlets[p.Port] = &externalInlets[i]
	}
	return nil
}

// lookupOutlet resolves vertexName/port to its reserved (still-unbound)
// outlet slot, in the vertexSlots that owns it.
func lookupOutlet(slots map[string]*vertexSlots, vertexName, port string) (*vertexSlots, error) {
	vs, ok := slots[vertexName]
	if !ok {
		return nil, &VertexDoesNotExistError{Vertex: vertexName}
	}
	slot, ok := vs.outlets[port]
	if !ok {
		return nil, &PortDoesNotExistError{Vertex: vertexName, Port: port, Outlet: true}
	}
	if slot != nil {
		return nil, &PortAlreadyBoundError{Vertex: vertexName, Port: port, Outlet: true}
	}
	return vs, nil
}

func lookupInlet(slots map[string]*vertexSlots, vertexName, port string) (*vertexSlots, error) {
	vs, ok := slots[vertexName]
	if !ok {
		return nil, &VertexDoesNotExistError{Vertex: vertexName}
	}
	slot, ok := vs.inlets[port]
	if !ok {
		return nil, &PortDoesNotExistError{Vertex: vertexName, Port: port, Outlet: false}
	}
	if slot != nil {
		return nil, &PortAlreadyBoundError{Vertex: vertexName, Port: port, Outlet: false}
	}
	return vs, nil
}

func validate(g *spec.GraphSpec, slots map[string]*vertexSlots) error {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		vs := slots[name]
		var unboundInlets, unboundOutlets []string
		for _, port := range vs.inletNames {
			if vs.inlets[port] == nil {
				unboundInlets = append(unboundInlets, port)
			}
		}
		for _, port := range vs.outletNames {
			if vs.outlets[port] == nil {
				unboundOutlets = append(unboundOutlets, port)
			}
		}
		if len(unboundInlets) > 0 || len(unboundOutlets) > 0 {
			return &UnboundPortsError{Vertex: name, UnboundInlets: unboundInlets, UnboundOutlets: unboundOutlets}
		}
	}
	return nil
}

func launch(ctx context.Context, g *spec.GraphSpec, slots map[string]*vertexSlots, logger *logrus.Logger) error {
	names := make([]string, 0, len(g.Vertices))
	for name := range g.Vertices {
		names = append(names, name)
	}
	sort.Strings(names)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(names))
	for _, name := range names {
		name := name
		vs := g.Vertices[name]
		slot := slots[name]

		outlets := make([]message.ProducerChannels, len(slot.outletNames))
		for i, port := range slot.outletNames {
			outlets[i] = *slot.outlets[port]
		}
		inlets := make([]message.ConsumerChannels, len(slot.inletNames))
		for i, port := range slot.inletNames {
			inlets[i] = *slot.inlets[port]
		}

		v := &vertex.Vertex{Run: vs.Run, Outlets: outlets, Inlets: inlets, RunGraph: Run}

		go func() {
			err := vertex.Run(runCtx, v, logger)
			if err != nil {
				err = fmt.Errorf("graph: vertex %q: %w", name, err)
			}
			results <- err
		}()
	}

	var errs error
	for range names {
		if err := <-results; err != nil {
			if errs == nil {
				cancel()
			}
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}
