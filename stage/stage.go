// Package stage hosts a user stage on the child side of an OS-process
// vertex: it performs the handshake, then runs every inlet/outlet
// wrapper alongside the inbound/outbound protocol streams concurrently,
// terminating when all three activity groups have finished.
package stage

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/whitaker-io/flowgraph/handshake"
	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/wrapper"
)

// Outlet binds one of the stage's outlet ports to the Source backing it.
type Outlet struct {
	Schema string
	Source wrapper.Source
}

// Inlet binds one of the stage's inlet ports to its reader schema, item
// decoder, and the Sink consuming decoded items.
type Inlet struct {
	Schema string
	Decode wrapper.ItemDecoder
	Sink   wrapper.Sink
}

// Stage is a user stage's port declarations, in the order they will be
// reported during the handshake and addressed on the wire.
type Stage struct {
	Outlets []Outlet
	Inlets  []Inlet
}

// Run performs the child-side handshake over r/w, then drives every
// wrapper and both protocol streams until they jointly finish. It
// returns the first error encountered, collecting any others that
// occur during shutdown into the same multierror.
func Run(ctx context.Context, s *Stage, r io.Reader, w io.Writer) error {
	dec := command.NewDecoder(r)
	enc := command.NewEncoder(w)

	outletSchemas := make([]string, len(s.Outlets))
	for i, o := range s.Outlets {
		outletSchemas[i] = o.Schema
	}
	inletSchemas := make([]string, len(s.Inlets))
	for i, in := range s.Inlets {
		inletSchemas[i] = in.Schema
	}

	if err := handshake.RunChild(enc, outletSchemas, inletSchemas); err != nil {
		return fmt.Errorf("stage: handshake: %w", err)
	}

	outletProducer := make([]message.ProducerChannels, len(s.Outlets))
	outletConsumer := make([]message.ConsumerChannels, len(s.Outlets))
	for i, o := range s.Outlets {
		outletProducer[i], outletConsumer[i] = message.NewPipe(o.Schema)
	}

	inletProducer := make([]message.ProducerChannels, len(s.Inlets))
	inletConsumer := make([]message.ConsumerChannels, len(s.Inlets))
	for i, in := range s.Inlets {
		inletProducer[i], inletConsumer[i] = message.NewPipe(in.Schema)
	}

	outletRx := make([]<-chan message.ProducerMessage, len(s.Outlets))
	outletTx := make([]chan<- message.ConsumerMessage, len(s.Outlets))
	for i := range s.Outlets {
		outletRx[i] = outletConsumer[i].Rx
		outletTx[i] = outletConsumer[i].Tx
	}

	inletRx := make([]<-chan message.ConsumerMessage, len(s.Inlets))
	inletTx := make([]chan<- message.ProducerMessage, len(s.Inlets))
	for i := range s.Inlets {
		inletRx[i] = inletProducer[i].Rx
		inletTx[i] = inletProducer[i].Tx
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(s.Outlets)+len(s.Inlets)+2)

	for i, o := range s.Outlets {
		i, o := i, o
		go func() {
			err := wrapper.RunOutlet(runCtx, outletProducer[i], o.Source)
			close(outletProducer[i].Tx)
			results <- labeled("outlet wrapper", i, err)
		}()
	}
	for i, in := range s.Inlets {
		i, in := i, in
		go func() {
			err := wrapper.RunInlet(runCtx, inletConsumer[i], in.Decode, in.Sink)
			close(inletConsumer[i].Tx)
			results <- labeled("inlet wrapper", i, err)
		}()
	}
	go func() {
		results <- labeled("outbound", 0, message.MessageToCommand(runCtx, enc, outletRx, inletRx))
	}()
	go func() {
		results <- labeled("inbound", 0, message.CommandToMessage(runCtx, dec, inletTx, outletTx))
	}()

	var errs error
	n := len(s.Outlets) + len(s.Inlets) + 2
	for i := 0; i < n; i++ {
		if err := <-results; err != nil {
			if errs == nil {
				cancel()
			}
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func labeled(activity string, idx int, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("stage: %s[%d]: %w", activity, idx, err)
}
