// Package handshake implements the one-shot parent/child exchange that
// establishes port counts and per-port schema resolutions before any
// data command flows.
package handshake

import (
	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/protocol/schema"
)

// ProtocolVersion is the handshake's Hello version. Bump it only for a
// wire-incompatible change.
const ProtocolVersion int32 = 1

// Done bundles the parent-side handshake's result: one schema
// Resolution per outlet (writer = child's declaration, reader = the
// parent's expectation) and one per inlet (writer = the parent's
// expectation, reader = child's declaration).
type Done struct {
	OutletResolutions []*schema.Resolution
	InletResolutions  []*schema.Resolution
}

// RunParent performs the parent side of the handshake: it expects a
// Hello matching len(outletReaderSchemas)/len(inletWriterSchemas), then
// outletsCount PortDeclares (the child's outlet writer schemas, resolved
// against outletReaderSchemas), then inletsCount PortDeclares (the
// child's inlet reader schemas, resolved against inletWriterSchemas).
func RunParent(dec *command.Decoder, outletReaderSchemas, inletWriterSchemas []string) (*Done, error) {
	outletsCount := len(outletReaderSchemas)
	inletsCount := len(inletWriterSchemas)

	c, err := nextCommand(dec)
	if err != nil {
		return nil, err
	}
	if c.Hello == nil {
		tag, _ := c.Tag()
		return nil, &UnexpectedCommandError{Tag: tag}
	}
	if int(c.Hello.InletsCount) != inletsCount || int(c.Hello.OutletsCount) != outletsCount {
		return nil, &PortCountMismatchError{
			ExpectedInlets:  inletsCount,
			ExpectedOutlets: outletsCount,
			GotInlets:       c.Hello.InletsCount,
			GotOutlets:      c.Hello.OutletsCount,
		}
	}

	outletResolutions := make([]*schema.Resolution, outletsCount)
	for i := 0; i < outletsCount; i++ {
		writerDoc, err := nextPortDeclare(dec)
		if err != nil {
			return nil, err
		}
		res, err := schema.Resolve(writerDoc, outletReaderSchemas[i])
		if err != nil {
			return nil, err
		}
		outletResolutions[i] = res
	}

	inletResolutions := make([]*schema.Resolution, inletsCount)
	for i := 0; i < inletsCount; i++ {
		readerDoc, err := nextPortDeclare(dec)
		if err != nil {
			return nil, err
		}
		res, err := schema.Resolve(inletWriterSchemas[i], readerDoc)
		if err != nil {
			return nil, err
		}
		inletResolutions[i] = res
	}

	return &Done{OutletResolutions: outletResolutions, InletResolutions: inletResolutions}, nil
}

func nextCommand(dec *command.Decoder) (*command.Command, error) {
	c, err := dec.Decode()
	if err != nil {
		return nil, &ProtocolInletTerminatedError{Cause: err}
	}
	return c, nil
}

func nextPortDeclare(dec *command.Decoder) (string, error) {
	c, err := nextCommand(dec)
	if err != nil {
		return "", err
	}
	if c.PortDeclare == nil {
		tag, _ := c.Tag()
		return "", &UnexpectedCommandError{Tag: tag}
	}
	return c.PortDeclare.Schema, nil
}
