package command

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hamba/avro/v2"
)

// Encoder frames Commands onto an io.Writer: a 4-byte big-endian length
// followed by a 1-byte tag discriminant and the tag's avro datum bytes.
// A single Encoder must not be shared across goroutines without external
// synchronization — the vertex runner serializes each direction's writes
// through exactly one Encoder, per the ordering guarantee that a
// direction's outbound stream is a single framed write side.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one framed Command.
func (e *Encoder) Encode(c *Command) error {
	tag, err := c.Tag()
	if err != nil {
		return fmt.Errorf("command: encode: %w", err)
	}

	datum, err := marshalVariant(tag, c)
	if err != nil {
		return fmt.Errorf("command: encode %s: %w", tag, err)
	}

	body := make([]byte, 1+len(datum))
	body[0] = byte(tag)
	copy(body[1:], datum)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := e.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("command: write length: %w", err)
	}
	if _, err := e.w.Write(body); err != nil {
		return fmt.Errorf("command: write body: %w", err)
	}
	return nil
}

// Decoder reads framed Commands from an io.Reader. It reads exactly one
// frame per Decode call: a blocking 4-byte length read followed by a
// blocking read of that many bytes, so a frame split across TCP/pipe
// reads is transparently reassembled by io.ReadFull rather than an
// explicit buffering state machine.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads and returns the next Command. It returns io.EOF (possibly
// wrapped) only when the stream ends cleanly before any byte of a new
// frame; a frame that begins and then truncates is reported as a
// non-EOF codec error, never silently swallowed.
func (d *Decoder) Decode() (*Command, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("command: truncated length prefix: %w", err)
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < 1 {
		return nil, fmt.Errorf("command: empty frame")
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(d.r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("command: truncated body: %w", err)
	}

	tag := Tag(body[0])
	c, err := unmarshalVariant(tag, body[1:])
	if err != nil {
		return nil, fmt.Errorf("command: decode %s: %w", tag, err)
	}
	return c, nil
}

func marshalVariant(tag Tag, c *Command) ([]byte, error) {
	schema := schemaFor(tag)
	if schema == nil {
		return nil, fmt.Errorf("unknown tag %s", tag)
	}

	switch tag {
	case TagHello:
		return avro.Marshal(schema, c.Hello)
	case TagPortDeclare:
		return avro.Marshal(schema, c.PortDeclare)
	case TagPortPull:
		return avro.Marshal(schema, c.PortPull)
	case TagPortPush:
		return avro.Marshal(schema, c.PortPush)
	case TagOutletCompleted:
		return avro.Marshal(schema, c.OutletCompleted)
	case TagOutletFailed:
		wire := outletFailedWire{PortID: c.OutletFailed.PortID}
		if c.OutletFailed.Failure != nil {
			wire.Failure = *c.OutletFailed.Failure
		}
		return avro.Marshal(schema, wire)
	case TagInletCancelled:
		return avro.Marshal(schema, c.InletCancelled)
	default:
		return nil, fmt.Errorf("unknown tag %s", tag)
	}
}

func unmarshalVariant(tag Tag, datum []byte) (*Command, error) {
	schema := schemaFor(tag)
	if schema == nil {
		return nil, fmt.Errorf("unknown tag %s", tag)
	}

	switch tag {
	case TagHello:
		v := &Hello{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{Hello: v}, nil
	case TagPortDeclare:
		v := &PortDeclare{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{PortDeclare: v}, nil
	case TagPortPull:
		v := &PortPull{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{PortPull: v}, nil
	case TagPortPush:
		v := &PortPush{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{PortPush: v}, nil
	case TagOutletCompleted:
		v := &OutletCompleted{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{OutletCompleted: v}, nil
	case TagOutletFailed:
		wire := &outletFailedWire{}
		if err := avro.Unmarshal(schema, datum, wire); err != nil {
			return nil, err
		}
		return &Command{OutletFailed: &OutletFailed{PortID: wire.PortID, Failure: &wire.Failure}}, nil
	case TagInletCancelled:
		v := &InletCancelled{}
		if err := avro.Unmarshal(schema, datum, v); err != nil {
			return nil, err
		}
		return &Command{InletCancelled: v}, nil
	default:
		return nil, fmt.Errorf("unknown tag %s", tag)
	}
}
