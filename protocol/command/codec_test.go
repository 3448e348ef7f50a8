package command

import (
	"bytes"
	"io"
	"testing"
)

func sampleCommands() []*Command {
	return []*Command{
		{Hello: &Hello{Version: 1, InletsCount: 2, OutletsCount: 1}},
		{PortDeclare: &PortDeclare{Schema: `"int"`}},
		{PortPull: &PortPull{PortID: 0, MaxItems: 16}},
		{PortPush: &PortPush{PortID: 0, Items: [][]byte{{1, 2, 3}, {4}}}},
		{OutletCompleted: &OutletCompleted{PortID: 0}},
		{OutletFailed: &OutletFailed{PortID: 1, Failure: &Failure{
			Message:     "boom",
			ReasonChain: []FailureReason{{Message: "cause"}},
		}}},
		{InletCancelled: &InletCancelled{PortID: 1}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range sampleCommands() {
		buf := &bytes.Buffer{}
		if err := NewEncoder(buf).Encode(c); err != nil {
			t.Fatalf("encode: %v", err)
		}

		got, err := NewDecoder(buf).Decode()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		wantTag, _ := c.Tag()
		gotTag, _ := got.Tag()
		if wantTag != gotTag {
			t.Fatalf("tag mismatch: want %s got %s", wantTag, gotTag)
		}
	}
}

func TestFramingBackToBack(t *testing.T) {
	cmds := sampleCommands()[:2]

	buf := &bytes.Buffer{}
	enc := NewEncoder(buf)
	for _, c := range cmds {
		if err := enc.Encode(c); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	dec := NewDecoder(buf)
	for i, want := range cmds {
		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		wantTag, _ := want.Tag()
		gotTag, _ := got.Tag()
		if wantTag != gotTag {
			t.Fatalf("decode %d: tag mismatch: want %s got %s", i, wantTag, gotTag)
		}
	}

	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("expected io.EOF after exactly two commands, got %v", err)
	}
}

func TestPartialTailYieldsNoCommand(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewEncoder(buf).Encode(sampleCommands()[0]); err != nil {
		t.Fatalf("encode: %v", err)
	}

	full := buf.Bytes()
	truncated := bytes.NewReader(full[:len(full)-1])

	if _, err := NewDecoder(truncated).Decode(); err == nil {
		t.Fatalf("expected an error decoding a truncated frame")
	}
}

func TestOutletInletIdx(t *testing.T) {
	pull := &Command{PortPull: &PortPull{PortID: 3, MaxItems: 1}}
	if idx, ok := pull.OutletIdx(); !ok || idx != 3 {
		t.Fatalf("PortPull should be outlet-side idx 3, got %d,%v", idx, ok)
	}
	if _, ok := pull.InletIdx(); ok {
		t.Fatalf("PortPull should not be inlet-side")
	}

	push := &Command{PortPush: &PortPush{PortID: 2}}
	if idx, ok := push.InletIdx(); !ok || idx != 2 {
		t.Fatalf("PortPush should be inlet-side idx 2, got %d,%v", idx, ok)
	}
}
