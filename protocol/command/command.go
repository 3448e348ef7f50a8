// Package command implements the wire protocol commands exchanged between
// a parent and a child OS-process vertex, and their length-prefixed binary
// framing.
package command

import "fmt"

// Hello is the first command a child emits, declaring its port counts.
type Hello struct {
	Version      int32 `avro:"version"`
	InletsCount  int32 `avro:"inlets_count"`
	OutletsCount int32 `avro:"outlets_count"`
}

// PortDeclare carries one port's schema document during the handshake.
type PortDeclare struct {
	Schema string `avro:"schema"`
}

// PortPull is a demand signal: "send me up to MaxItems items".
type PortPull struct {
	PortID   int32 `avro:"port_id"`
	MaxItems int32 `avro:"max_items"`
}

// PortPush carries a batch of writer-schema-encoded datums.
type PortPush struct {
	PortID int32    `avro:"port_id"`
	Items  [][]byte `avro:"items"`
}

// OutletCompleted signals an outlet's source has no more items.
type OutletCompleted struct {
	PortID int32 `avro:"port_id"`
}

// OutletFailed signals an outlet's source failed terminally.
type OutletFailed struct {
	PortID  int32    `avro:"port_id"`
	Failure *Failure `avro:"failure"`
}

// InletCancelled signals an inlet's sink no longer wants data.
type InletCancelled struct {
	PortID int32 `avro:"port_id"`
}

// Tag identifies a Command variant on the wire. The numeric values are
// the envelope's leading discriminant byte and must never change once a
// child/parent pair is deployed against each other.
type Tag byte

const (
	TagHello Tag = iota
	TagPortDeclare
	TagPortPull
	TagPortPush
	TagOutletCompleted
	TagOutletFailed
	TagInletCancelled
)

func (t Tag) String() string {
	switch t {
	case TagHello:
		return "Hello"
	case TagPortDeclare:
		return "PortDeclare"
	case TagPortPull:
		return "PortPull"
	case TagPortPush:
		return "PortPush"
	case TagOutletCompleted:
		return "OutletCompleted"
	case TagOutletFailed:
		return "OutletFailed"
	case TagInletCancelled:
		return "InletCancelled"
	default:
		return fmt.Sprintf("Tag(%d)", byte(t))
	}
}

// Command is a tagged union over the seven wire commands. Exactly one
// field is non-nil.
type Command struct {
	Hello           *Hello
	PortDeclare     *PortDeclare
	PortPull        *PortPull
	PortPush        *PortPush
	OutletCompleted *OutletCompleted
	OutletFailed    *OutletFailed
	InletCancelled  *InletCancelled
}

// Tag returns the variant tag of c, or an error if no variant (or more
// than one) is set.
func (c *Command) Tag() (Tag, error) {
	n := 0
	var tag Tag

	set := func(t Tag, ok bool) {
		if ok {
			n++
			tag = t
		}
	}

	set(TagHello, c.Hello != nil)
	set(TagPortDeclare, c.PortDeclare != nil)
	set(TagPortPull, c.PortPull != nil)
	set(TagPortPush, c.PortPush != nil)
	set(TagOutletCompleted, c.OutletCompleted != nil)
	set(TagOutletFailed, c.OutletFailed != nil)
	set(TagInletCancelled, c.InletCancelled != nil)

	if n != 1 {
		return 0, fmt.Errorf("command: expected exactly one variant set, got %d", n)
	}
	return tag, nil
}

// OutletIdx returns the port id when c addresses the outlet side of a
// vertex (the commands a child's outlet wrapper sends/receives:
// PortPull and InletCancelled), and reports whether c is such a command.
func (c *Command) OutletIdx() (int32, bool) {
	switch {
	case c.PortPull != nil:
		return c.PortPull.PortID, true
	case c.InletCancelled != nil:
		return c.InletCancelled.PortID, true
	default:
		return 0, false
	}
}

// InletIdx returns the port id when c addresses the inlet side of a
// vertex (PortPush, OutletCompleted, OutletFailed), and reports whether c
// is such a command.
func (c *Command) InletIdx() (int32, bool) {
	switch {
	case c.PortPush != nil:
		return c.PortPush.PortID, true
	case c.OutletCompleted != nil:
		return c.OutletCompleted.PortID, true
	case c.OutletFailed != nil:
		return c.OutletFailed.PortID, true
	default:
		return 0, false
	}
}
