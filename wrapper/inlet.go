package wrapper

import (
	"context"

	"github.com/whitaker-io/flowgraph/protocol/message"
)

// PullMaxItems is the fixed demand size an Inlet wrapper requests per
// Pull, matching the resource policy's inlet pull size.
const PullMaxItems = 16

// ItemDecoder decodes one writer-schema-encoded item into the domain
// value the Sink expects, using the edge's resolved reader schema.
type ItemDecoder func(item []byte) (interface{}, error)

// Sink is a data sink fed by an Inlet wrapper.
type Sink interface {
	Send(ctx context.Context, item interface{}) error
}

// RunInlet drives cc as an Inlet wrapper, pulling PullMaxItems items at
// a time and pushing each decoded item to sink one-by-one. It collapses
// the SinkSend / Pulling / WaitingForPush / SinkPollComplete FSM into one
// linear loop over a local queue.
func RunInlet(ctx context.Context, cc message.ConsumerChannels, decode ItemDecoder, sink Sink) error {
	var queue [][]byte

	for {
		if len(queue) == 0 {
			if err := send(ctx, cc.Tx, message.ConsumerMessage{Pull: &message.Pull{MaxItems: PullMaxItems}}); err != nil {
				return err
			}

			msg, ok := recv(ctx, cc.Rx)
			if !ok {
				return nil
			}

			switch {
			case msg.Push != nil:
				queue = append(queue, msg.Push.Items...)
				continue
			case msg.Complete:
				return nil
			case msg.Fail != nil:
				return &InletFailureError{Cause: msg.Fail}
			default:
				continue
			}
		}

		item := queue[0]
		queue = queue[1:]

		decoded, err := decode(item)
		if err != nil {
			_ = send(ctx, cc.Tx, message.ConsumerMessage{Cancel: true})
			return &DeserializeFailureError{Cause: err}
		}

		if err := sink.Send(ctx, decoded); err != nil {
			_ = send(ctx, cc.Tx, message.ConsumerMessage{Cancel: true})
			return &SinkFailureError{Cause: err}
		}
	}
}
