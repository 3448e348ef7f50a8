// Package osprocess runs one OS-process vertex: it spawns the child,
// captures its stderr per the vertex's LogSpec, performs the parent-side
// handshake, then relays data between the vertex's own inlet/outlet
// channel slots and the child's stdio until both directions and the
// child's exit have jointly finished.
package osprocess

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/whitaker-io/flowgraph/handshake"
	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/spec"
)

// Run spawns and drives one OS-process vertex. outlets/inlets are this
// vertex's own port channel slots, in declaration order, already bound
// by the graph assembler. outletReaderSchemas/inletWriterSchemas are the
// schemas those slots were bound with, used to validate the child's
// handshake declarations. logger defaults to the package logger when nil.
func Run(
	ctx context.Context,
	s *spec.OsProcessSpec,
	outletReaderSchemas, inletWriterSchemas []string,
	outlets []message.ProducerChannels,
	inlets []message.ConsumerChannels,
	logger *logrus.Logger,
) error {
	if logger == nil {
		logger = defaultLogger
	}

	proc, err := spawn(ctx, s, logger)
	if err != nil {
		return err
	}

	// Probe: an already-exited handle before the handshake even starts
	// is reported distinctly from a failure discovered mid-handshake.
	select {
	case exitErr := <-proc.exited:
		return &OsProcessError{Kind: UnexpectedProcessExit, Cause: exitErr}
	default:
	}

	dec := command.NewDecoder(proc.stdout)
	enc := command.NewEncoder(proc.stdin)

	handshakeDone := make(chan error, 1)
	go func() {
		_, err := handshake.RunParent(dec, outletReaderSchemas, inletWriterSchemas)
		handshakeDone <- err
	}()

	select {
	case err := <-handshakeDone:
		if err != nil {
			return &OsProcessError{Kind: HandshakeError, Cause: err}
		}
	case exitErr := <-proc.exited:
		return &OsProcessError{Kind: UnexpectedProcessExit, Cause: exitErr}
	case <-ctx.Done():
		return ctx.Err()
	}

	return wireUp(ctx, enc, dec, outlets, inlets, proc)
}

// wireUp builds the two protocol-stream adapters over the child's stdio,
// crossed against this vertex's own port slots: data destined for the
// child's inlets flows out through outletRx/inletRx's command encoding
// and the child's own outlet/inlet traffic flows back in through
// inletTx/outletTx's command decoding, per the wire's fixed addressing
// (Push/Completed/Failed carry an inlet-indexed port id, Pull/Cancelled
// an outlet-indexed one) — see the protocol/message package. It awaits
// both directions and the child's exit jointly, cancelling the rest on
// the first failure.
func wireUp(
	ctx context.Context,
	enc *command.Encoder,
	dec *command.Decoder,
	outlets []message.ProducerChannels,
	inlets []message.ConsumerChannels,
	proc *process,
) error {
	outboundOutletRx := make([]<-chan message.ProducerMessage, len(inlets))
	for i, in := range inlets {
		outboundOutletRx[i] = in.Rx
	}
	outboundInletRx := make([]<-chan message.ConsumerMessage, len(outlets))
	for i, o := range outlets {
		outboundInletRx[i] = o.Rx
	}

	inboundInletTx := make([]chan<- message.ProducerMessage, len(outlets))
	for i, o := range outlets {
		inboundInletTx[i] = o.Tx
	}
	inboundOutletTx := make([]chan<- message.ConsumerMessage, len(inlets))
	for i, in := range inlets {
		inboundOutletTx[i] = in.Tx
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, 3)
	go func() {
		results <- wrapErr("outbound", message.MessageToCommand(runCtx, enc, outboundOutletRx, outboundInletRx))
	}()
	go func() {
		results <- wrapErr("inbound", message.CommandToMessage(runCtx, dec, inboundInletTx, inboundOutletTx))
	}()
	go func() {
		select {
		case err := <-proc.exited:
			if err != nil {
				results <- &OsProcessError{Kind: WireUpError, Cause: fmt.Errorf("child process: %w", err)}
				return
			}
			results <- nil
		case <-runCtx.Done():
			results <- nil
		}
	}()

	var errs error
	for i := 0; i < 3; i++ {
		if err := <-results; err != nil {
			if errs == nil {
				cancel()
			}
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func wrapErr(activity string, err error) error {
	if err == nil {
		return nil
	}
	return &OsProcessError{Kind: WireUpError, Cause: fmt.Errorf("%s: %w", activity, err)}
}
