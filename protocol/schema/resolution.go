// Package schema resolves a producer's writer schema against a
// consumer's reader schema for one edge, and encodes/decodes datums
// against the resolved pair. It is a thin, hand-rolled layer over
// github.com/hamba/avro/v2 — the core's own logic, not something the
// Avro library provides, since only exact structural agreement is
// recognized as compatible (no promotion rules, no default-value
// backfill).
package schema

import (
	"fmt"

	"github.com/hamba/avro/v2"
)

// Resolution is the result of matching a writer schema against a reader
// schema at handshake time.
type Resolution struct {
	Writer avro.Schema
	Reader avro.Schema
}

// IncompatibleError is returned by Resolve when the writer and reader
// schemas do not structurally agree.
type IncompatibleError struct {
	Writer string
	Reader string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("schema: writer %q incompatible with reader %q", e.Writer, e.Reader)
}

// ParseError wraps a failure to parse a schema document.
type ParseError struct {
	Doc   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema: parse %q: %v", e.Doc, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Resolve parses writerDoc and readerDoc and checks them for
// compatibility. Compatibility here means structural equality of their
// canonical form — mid-stream schema evolution is out of scope, so a
// resolution either exists exactly or fails.
func Resolve(writerDoc, readerDoc string) (*Resolution, error) {
	w, err := avro.Parse(writerDoc)
	if err != nil {
		return nil, &ParseError{Doc: writerDoc, Cause: err}
	}
	r, err := avro.Parse(readerDoc)
	if err != nil {
		return nil, &ParseError{Doc: readerDoc, Cause: err}
	}

	if !compatible(w, r) {
		return nil, &IncompatibleError{Writer: w.String(), Reader: r.String()}
	}

	return &Resolution{Writer: w, Reader: r}, nil
}

func compatible(w, r avro.Schema) bool {
	if w.Type() != r.Type() {
		return false
	}
	return w.Fingerprint() == r.Fingerprint()
}

// Encode marshals v against the writer schema.
func (res *Resolution) Encode(v interface{}) ([]byte, error) {
	return avro.Marshal(res.Writer, v)
}

// Decode unmarshals b (written against the writer schema) into v using
// the reader schema.
func (res *Resolution) Decode(b []byte, v interface{}) error {
	return avro.Unmarshal(res.Reader, b, v)
}
