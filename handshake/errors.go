package handshake

import (
	"fmt"

	"github.com/whitaker-io/flowgraph/protocol/command"
)

// PortCountMismatchError is returned when a child's Hello disagrees with
// the parent's expected port counts.
type PortCountMismatchError struct {
	ExpectedInlets, ExpectedOutlets int
	GotInlets, GotOutlets           int32
}

func (e *PortCountMismatchError) Error() string {
	return fmt.Sprintf(
		"handshake: port count mismatch: expected inlets=%d outlets=%d, got inlets=%d outlets=%d",
		e.ExpectedInlets, e.ExpectedOutlets, e.GotInlets, e.GotOutlets,
	)
}

// UnexpectedCommandError is returned when a command other than the
// expected Hello/PortDeclare arrives during the handshake.
type UnexpectedCommandError struct {
	Tag command.Tag
}

func (e *UnexpectedCommandError) Error() string {
	return fmt.Sprintf("handshake: unexpected command %s", e.Tag)
}

// ProtocolInletTerminatedError is returned when the handshake stream
// ends (or errors) before the handshake completes.
type ProtocolInletTerminatedError struct {
	Cause error
}

func (e *ProtocolInletTerminatedError) Error() string {
	return fmt.Sprintf("handshake: protocol stream terminated before handshake completed: %v", e.Cause)
}

func (e *ProtocolInletTerminatedError) Unwrap() error { return e.Cause }
