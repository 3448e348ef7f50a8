package vertex

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/spec"
)

const intSchema = `"int"`

func mustRecv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		var zero T
		return zero
	}
}

func TestRunEmptyRunSpec(t *testing.T) {
	v := &Vertex{Run: &spec.RunSpec{}}
	err := Run(context.Background(), v, nil)
	if _, ok := err.(*EmptyRunSpecError); !ok {
		t.Fatalf("expected EmptyRunSpecError, got %#v", err)
	}
}

func TestRunEmptyStdStageSpec(t *testing.T) {
	v := &Vertex{Run: &spec.RunSpec{StdStage: &spec.StdStageSpec{}}}
	err := Run(context.Background(), v, nil)
	if _, ok := err.(*EmptyStdStageSpecError); !ok {
		t.Fatalf("expected EmptyStdStageSpecError, got %#v", err)
	}
}

func TestRunUnconfiguredGraphRunner(t *testing.T) {
	v := &Vertex{Run: &spec.RunSpec{Graph: &spec.GraphSpec{}}}
	err := Run(context.Background(), v, nil)
	if _, ok := err.(*UnconfiguredGraphRunnerError); !ok {
		t.Fatalf("expected UnconfiguredGraphRunnerError, got %#v", err)
	}
}

func TestRunTeeArityMismatch(t *testing.T) {
	v := &Vertex{
		Run:    &spec.RunSpec{StdStage: &spec.StdStageSpec{Tee: &spec.TeeSpec{Schema: intSchema, OutletsCount: 2}}},
		Inlets: []message.ConsumerChannels{},
	}
	err := Run(context.Background(), v, nil)
	arityErr, ok := err.(*StdStageArityError)
	if !ok {
		t.Fatalf("expected StdStageArityError, got %#v", err)
	}
	if arityErr.Stage != "tee" || arityErr.Want != 1 || arityErr.Got != 0 {
		t.Fatalf("unexpected arity error %+v", arityErr)
	}
}

func TestRunMergeArityMismatch(t *testing.T) {
	v := &Vertex{
		Run:     &spec.RunSpec{StdStage: &spec.StdStageSpec{Merge: &spec.MergeSpec{Schema: intSchema, InletsCount: 2}}},
		Outlets: []message.ProducerChannels{},
	}
	err := Run(context.Background(), v, nil)
	arityErr, ok := err.(*StdStageArityError)
	if !ok {
		t.Fatalf("expected StdStageArityError, got %#v", err)
	}
	if arityErr.Stage != "merge" || arityErr.Want != 1 || arityErr.Got != 0 {
		t.Fatalf("unexpected arity error %+v", arityErr)
	}
}

func TestRunTeeDispatch(t *testing.T) {
	inProducer, inConsumer := message.NewPipe(intSchema)
	out0Producer, out0Consumer := message.NewPipe(intSchema)

	v := &Vertex{
		Run:     &spec.RunSpec{StdStage: &spec.StdStageSpec{Tee: &spec.TeeSpec{Schema: intSchema, OutletsCount: 1}}},
		Inlets:  []message.ConsumerChannels{inConsumer},
		Outlets: []message.ProducerChannels{out0Producer},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, v, nil) }()

	out0Consumer.Tx <- message.ConsumerMessage{Pull: &message.Pull{MaxItems: 1}}

	pull := mustRecv(t, inProducer.Rx)
	if pull.Pull == nil || pull.Pull.MaxItems != 1 {
		t.Fatalf("expected upstream Pull{1}, got %+v", pull)
	}

	inProducer.Tx <- message.ProducerMessage{Complete: true}

	msg := mustRecv(t, out0Consumer.Rx)
	if !msg.Complete {
		t.Fatalf("expected Complete, got %+v", msg)
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunGraphDispatch(t *testing.T) {
	var gotGraph *spec.GraphSpec
	var runner GraphRunner = func(ctx context.Context, g *spec.GraphSpec, externalOutlets []message.ProducerChannels, externalInlets []message.ConsumerChannels, logger *logrus.Logger) error {
		gotGraph = g
		return nil
	}

	nested := &spec.GraphSpec{}
	v := &Vertex{Run: &spec.RunSpec{Graph: nested}, RunGraph: runner}

	if err := Run(context.Background(), v, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotGraph != nested {
		t.Fatalf("expected RunGraph to be called with the nested graph")
	}
}
