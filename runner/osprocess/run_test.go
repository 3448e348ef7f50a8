package osprocess

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/whitaker-io/flowgraph/protocol/message"
	"github.com/whitaker-io/flowgraph/spec"
	"github.com/whitaker-io/flowgraph/stage"
)

// helperEnvVar re-execs this same test binary as the child process: when
// set, TestMain runs a tiny stage instead of the test suite, following
// the standard library's os/exec self-exec pattern for fixtures that
// need a real separate process rather than an in-memory pipe.
const helperEnvVar = "FLOWGRAPH_OSPROCESS_TEST_HELPER"

func TestMain(m *testing.M) {
	switch os.Getenv(helperEnvVar) {
	case "outlet":
		runHelperOutlet()
		os.Exit(0)
	default:
		os.Exit(m.Run())
	}
}

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

func runHelperOutlet() {
	s := &stage.Stage{
		Outlets: []stage.Outlet{{Schema: intSchema, Source: &sliceSource{items: [][]byte{{1}, {2}, {3}}}}},
	}
	if err := stage.Run(context.Background(), s, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func TestRunOutletEndToEnd(t *testing.T) {
	outletProducer, outletConsumer := message.NewPipe(intSchema)

	s := &spec.OsProcessSpec{
		Cmd: []string{os.Args[0]},
		Env: map[string]string{helperEnvVar: "outlet"},
		Log: &spec.LogSpec{Type: spec.LogNoCapture},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- Run(ctx, s, []string{intSchema}, nil, []message.ProducerChannels{outletProducer}, nil, nil)
	}()

	outletConsumer.Tx <- message.ConsumerMessage{Pull: &message.Pull{MaxItems: 3}}

	msg := mustRecv(t, outletConsumer.Rx)
	if msg.Push == nil || len(msg.Push.Items) != 3 {
		t.Fatalf("expected Push with 3 items, got %+v", msg)
	}

	// The Push filled the Pull's max_items, so the source's end is only
	// observed on the next Pull.
	outletConsumer.Tx <- message.ConsumerMessage{Pull: &message.Pull{MaxItems: 3}}

	final := mustRecv(t, outletConsumer.Rx)
	if !final.Complete {
		t.Fatalf("expected Complete, got %+v", final)
	}

	if err := <-runErrCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunEmptyCmd(t *testing.T) {
	s := &spec.OsProcessSpec{Cmd: nil, Log: &spec.LogSpec{Type: spec.LogNoCapture}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := Run(ctx, s, nil, nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for empty cmd")
	}
	spawnErr, ok := err.(*SpawnError)
	if !ok || spawnErr.Kind != EmptyCmd {
		t.Fatalf("expected SpawnError{EmptyCmd}, got %#v", err)
	}
}

func mustRecv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for message")
		var zero T
		return zero
	}
}
