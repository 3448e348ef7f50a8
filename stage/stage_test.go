package stage

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/whitaker-io/flowgraph/handshake"
	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/wrapper"
)

const intSchema = `"int"`

type sliceSource struct {
	items [][]byte
	i     int
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, bool, error) {
	if s.i >= len(s.items) {
		return nil, false, nil
	}
	item := s.items[s.i]
	s.i++
	return item, true, nil
}

type recordingSink struct {
	got chan []byte
}

func (r *recordingSink) Send(ctx context.Context, item interface{}) error {
	r.got <- item.([]byte)
	return nil
}

// TestStageOutletEndToEnd drives a Stage with a single outlet across an
// in-memory pipe, acting as the parent at the raw command level: perform
// the handshake, then Pull and observe Push/Complete on the wire.
func TestStageOutletEndToEnd(t *testing.T) {
	childR, parentW := io.Pipe()
	parentR, childW := io.Pipe()

	s := &Stage{
		Outlets: []Outlet{{Schema: intSchema, Source: &sliceSource{items: [][]byte{{1}, {2}, {3}}}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stageErrCh := make(chan error, 1)
	go func() { stageErrCh <- Run(ctx, s, childR, childW) }()

	parentDec := command.NewDecoder(parentR)
	parentEnc := command.NewEncoder(parentW)

	done, err := handshake.RunParent(parentDec, []string{intSchema}, nil)
	if err != nil {
		t.Fatalf("RunParent: %v", err)
	}
	if len(done.OutletResolutions) != 1 {
		t.Fatalf("expected 1 outlet resolution, got %d", len(done.OutletResolutions))
	}

	if err := parentEnc.Encode(&command.Command{PortPull: &command.PortPull{PortID: 0, MaxItems: 2}}); err != nil {
		t.Fatalf("encode pull: %v", err)
	}
	c, err := parentDec.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.PortPush == nil || len(c.PortPush.Items) != 2 {
		t.Fatalf("expected PortPush with 2 items, got %+v", c)
	}

	if err := parentEnc.Encode(&command.Command{PortPull: &command.PortPull{PortID: 0, MaxItems: 2}}); err != nil {
		t.Fatalf("encode pull: %v", err)
	}
	c, err = parentDec.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.PortPush == nil || len(c.PortPush.Items) != 1 {
		t.Fatalf("expected PortPush with 1 item, got %+v", c)
	}

	c, err = parentDec.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.OutletCompleted == nil {
		t.Fatalf("expected OutletCompleted, got %+v", c)
	}

	_ = parentW.Close()
	_ = childW.Close()

	if err := <-stageErrCh; err != nil {
		t.Fatalf("stage.Run: %v", err)
	}
}

var _ wrapper.Sink = (*recordingSink)(nil)
