// Package wrapper adapts a data source/sink to the pull-based streaming
// protocol (protocol/message): the Outlet wrapper turns a source into an
// outlet vertex port, the Inlet wrapper turns a sink into an inlet vertex
// port.
package wrapper

import (
	"context"

	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/protocol/message"
)

// Source is a data source feeding an Outlet wrapper. Next returns the
// next writer-schema-encoded item, ok=false on a clean end of stream, or
// a non-nil err on a terminal source failure.
type Source interface {
	Next(ctx context.Context) (item []byte, ok bool, err error)
}

// RunOutlet drives pc as an Outlet wrapper over src until the source
// ends, fails, or the consumer cancels. It collapses the source FSM
// (Idle / ProducingItems / CheckIfCancelled / Sending) into one linear
// loop: each turn waits for demand, drains the source up to that
// demand (bailing early on a Cancel observed mid-drain), then sends
// whatever was accumulated.
func RunOutlet(ctx context.Context, pc message.ProducerChannels, src Source) error {
	for {
		demand, ok := recv(ctx, pc.Rx)
		if !ok {
			return nil
		}
		if demand.Cancel {
			return nil
		}
		if demand.Pull == nil {
			return &UnexpectedConsumerMessageError{}
		}

		acc, cancelled, sourceEnded, err := drain(ctx, pc.Rx, src, demand.Pull.MaxItems)
		if err != nil {
			_ = send(ctx, pc.Tx, message.ProducerMessage{Fail: command.NewFailure(err)})
			return err
		}
		if cancelled {
			return nil
		}

		if len(acc) > 0 {
			if err := send(ctx, pc.Tx, message.ProducerMessage{Push: &message.Push{Items: acc}}); err != nil {
				return err
			}
		}
		if sourceEnded {
			return send(ctx, pc.Tx, message.ProducerMessage{Complete: true})
		}
	}
}

// drain pulls from src until maxItems items are accumulated, the source
// ends, or a Cancel is observed. A Cancel can only ever arrive on rx
// between source reads, since the wrapper owns rx exclusively between
// turns — this is the "CheckIfCancelled" state folded into the loop
// rather than a distinct suspension.
func drain(ctx context.Context, rx <-chan message.ConsumerMessage, src Source, maxItems int32) (acc [][]byte, cancelled, sourceEnded bool, err error) {
	for int32(len(acc)) < maxItems {
		item, ok, srcErr := src.Next(ctx)
		if srcErr != nil {
			return acc, false, false, srcErr
		}
		if !ok {
			return acc, false, true, nil
		}
		acc = append(acc, item)

		select {
		case msg := <-rx:
			if msg.Cancel {
				return acc, true, false, nil
			}
			return acc, false, false, &UnexpectedConsumerMessageError{}
		default:
		}
	}
	return acc, false, false, nil
}

func recv[T any](ctx context.Context, rx <-chan T) (T, bool) {
	var zero T
	select {
	case v, ok := <-rx:
		return v, ok
	case <-ctx.Done():
		return zero, false
	}
}

func send[T any](ctx context.Context, tx chan<- T, v T) error {
	select {
	case tx <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
