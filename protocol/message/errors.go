package message

import (
	"fmt"

	"github.com/whitaker-io/flowgraph/protocol/command"
)

// UnexpectedCommandError is returned by CommandToMessage when it is
// handed a Hello or PortDeclare command, which only belong to the
// handshake.
type UnexpectedCommandError struct {
	Tag command.Tag
}

func (e *UnexpectedCommandError) Error() string {
	return fmt.Sprintf("message: unexpected command %s outside handshake", e.Tag)
}

// PortIndexOutOfRangeError is returned when a command's port id does not
// address a declared port.
type PortIndexOutOfRangeError struct {
	Tag   command.Tag
	Index int32
	Count int
}

func (e *PortIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("message: %s port id %d out of range [0,%d)", e.Tag, e.Index, e.Count)
}
