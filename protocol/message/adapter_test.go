package message

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/whitaker-io/flowgraph/protocol/command"
)

func TestCommandToMessageRoutesByTag(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := command.NewEncoder(buf)

	if err := enc.Encode(&command.Command{PortPull: &command.PortPull{PortID: 0, MaxItems: 4}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Encode(&command.Command{PortPush: &command.PortPush{PortID: 0, Items: [][]byte{{9}}}}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := command.NewDecoder(buf)

	inletTx := make(chan ProducerMessage, 1)
	outletTx := make(chan ConsumerMessage, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- CommandToMessage(ctx, dec, []chan<- ProducerMessage{inletTx}, []chan<- ConsumerMessage{outletTx})
	}()

	select {
	case msg := <-outletTx:
		if msg.Pull == nil || msg.Pull.MaxItems != 4 {
			t.Fatalf("expected Pull{4}, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outlet consumer message")
	}

	select {
	case msg := <-inletTx:
		if msg.Push == nil || len(msg.Push.Items) != 1 {
			t.Fatalf("expected Push{1 item}, got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inlet producer message")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("CommandToMessage: %v", err)
	}
}

func TestCommandToMessageRejectsHello(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := command.NewEncoder(buf).Encode(&command.Command{Hello: &command.Hello{Version: 1}}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	err := CommandToMessage(context.Background(), command.NewDecoder(buf), nil, nil)
	if _, ok := err.(*UnexpectedCommandError); !ok {
		t.Fatalf("expected UnexpectedCommandError, got %v", err)
	}
}

func TestMessageToCommandMergesAndTags(t *testing.T) {
	outlet := make(chan ProducerMessage, 1)
	inlet := make(chan ConsumerMessage, 1)

	outlet <- ProducerMessage{Complete: true}
	inlet <- ConsumerMessage{Cancel: true}
	close(outlet)
	close(inlet)

	buf := &bytes.Buffer{}
	enc := command.NewEncoder(buf)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := MessageToCommand(ctx, enc,
		[]<-chan ProducerMessage{outlet},
		[]<-chan ConsumerMessage{inlet},
	); err != nil {
		t.Fatalf("MessageToCommand: %v", err)
	}

	dec := command.NewDecoder(buf)

	seen := map[command.Tag]bool{}
	for i := 0; i < 2; i++ {
		c, err := dec.Decode()
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		tag, _ := c.Tag()
		seen[tag] = true
	}

	if !seen[command.TagOutletCompleted] || !seen[command.TagInletCancelled] {
		t.Fatalf("expected OutletCompleted and InletCancelled, got %+v", seen)
	}
}
