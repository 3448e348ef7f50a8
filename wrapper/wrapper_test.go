package wrapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whitaker-io/flowgraph/protocol/message"
)

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

func TestOutletPushesUpToMaxItems(t *testing.T) {
	src := &sliceSource{items: [][]byte{{1}, {2}, {3}}}
	pc, cc := message.NewPipe(`"int"`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- RunOutlet(ctx, pc, src) }()

	cc.Tx <- message.ConsumerMessage{Pull: &message.Pull{MaxItems: 2}}
	msg := mustRecv(t, cc.Rx)
	if msg.Push == nil || len(msg.Push.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", msg)
	}

	cc.Tx <- message.ConsumerMessage{Pull: &message.Pull{MaxItems: 2}}
	msg = mustRecv(t, cc.Rx)
	if msg.Push == nil || len(msg.Push.Items) != 1 {
		t.Fatalf("expected 1 item, got %+v", msg)
	}

	msg = mustRecv(t, cc.Rx)
	if !msg.Complete {
		t.Fatalf("expected Complete, got %+v", msg)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("RunOutlet: %v", err)
	}
}

func TestOutletCancelStopsCleanly(t *testing.T) {
	src := &sliceSource{items: [][]byte{{1}, {2}}}
	pc, cc := message.NewPipe(`"int"`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- RunOutlet(ctx, pc, src) }()

	cc.Tx <- message.ConsumerMessage{Cancel: true}

	if err := <-errCh; err != nil {
		t.Fatalf("RunOutlet: %v", err)
	}
}

type recordingSink struct {
	got []interface{}
}

func (r *recordingSink) Send(ctx context.Context, item interface{}) error {
	r.got = append(r.got, item)
	return nil
}

func TestInletPullsAndDecodes(t *testing.T) {
	pc, cc := message.NewPipe(`"int"`)
	sink := &recordingSink{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	decode := func(item []byte) (interface{}, error) {
		return int(item[0]), nil
	}

	errCh := make(chan error, 1)
	go func() { errCh <- RunInlet(ctx, cc, decode, sink) }()

	pull := mustRecv(t, pc.Rx)
	if pull.Pull == nil || pull.Pull.MaxItems != PullMaxItems {
		t.Fatalf("expected Pull{%d}, got %+v", PullMaxItems, pull)
	}

	pc.Tx <- message.ProducerMessage{Push: &message.Push{Items: [][]byte{{7}, {8}}}}

	// second pull after queue drains
	pull = mustRecv(t, pc.Rx)
	if pull.Pull == nil {
		t.Fatalf("expected second Pull, got %+v", pull)
	}
	pc.Tx <- message.ProducerMessage{Complete: true}

	if err := <-errCh; err != nil {
		t.Fatalf("RunInlet: %v", err)
	}

	if len(sink.got) != 2 || sink.got[0] != 7 || sink.got[1] != 8 {
		t.Fatalf("unexpected sink contents: %+v", sink.got)
	}
}

func TestInletDecodeFailureCancelsUpstream(t *testing.T) {
	pc, cc := message.NewPipe(`"int"`)
	sink := &recordingSink{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	decode := func(item []byte) (interface{}, error) {
		return nil, errors.New("bad datum")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- RunInlet(ctx, cc, decode, sink) }()

	mustRecv(t, pc.Rx)
	pc.Tx <- message.ProducerMessage{Push: &message.Push{Items: [][]byte{{1}}}}

	cancel2 := mustRecv(t, pc.Rx)
	if !cancel2.Cancel {
		t.Fatalf("expected Cancel upstream, got %+v", cancel2)
	}

	err := <-errCh
	var derr *DeserializeFailureError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DeserializeFailureError, got %v", err)
	}
}

func mustRecv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		var zero T
		return zero
	}
}
