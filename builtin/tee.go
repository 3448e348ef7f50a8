// Package builtin implements the two pure in-process fan stages, Tee and
// Merge, as linear loops over the same per-port channel protocol the
// wire-facing wrappers use.
package builtin

import (
	"context"
	"time"

	"github.com/whitaker-io/flowgraph/protocol/command"
	"github.com/whitaker-io/flowgraph/protocol/message"
)

// trailingCheck is how long a Push handler waits for a Complete/Fail
// that the same Pull response may have queued right behind it, before
// giving up and returning to await the next event.
const trailingCheck = 20 * time.Millisecond

// downstreamState is one outlet's readiness in a Tee.
type downstreamState struct {
	ready    bool
	maxItems int32
}

// RunTee drives one inlet's items to every element of outlets, pulling
// upstream only once every outlet has issued a Pull (no outlet remains
// Busy), using the minimum of their advertised max_items. Any outlet
// Cancel tears the whole stage down: Cancel propagates upstream and
// Complete is broadcast to every remaining outlet.
func RunTee(ctx context.Context, inlet message.ConsumerChannels, outlets []message.ProducerChannels) error {
	states := make([]downstreamState, len(outlets))

	outletRx := make([]<-chan message.ConsumerMessage, len(outlets))
	for i, o := range outlets {
		outletRx[i] = o.Rx
	}

	for {
		idx, msg, ok := recvAny(ctx, outletRx)
		if !ok {
			return nil
		}

		if msg.Cancel {
			if err := send(ctx, inlet.Tx, message.ConsumerMessage{Cancel: true}); err != nil {
				return err
			}
			return broadcastComplete(ctx, outlets)
		}

		if msg.Pull == nil {
			continue
		}
		states[idx] = downstreamState{ready: true, maxItems: msg.Pull.MaxItems}

		if !anyBusy(states) {
			minItems := minMaxItems(states)
			if minItems > 0 {
				if err := send(ctx, inlet.Tx, message.ConsumerMessage{Pull: &message.Pull{MaxItems: minItems}}); err != nil {
					return err
				}

				upstream, ok := recv(ctx, inlet.Rx)
				if !ok {
					return nil
				}

				switch {
				case upstream.Push != nil:
					if err := broadcastPush(ctx, outlets, upstream.Push.Items); err != nil {
						return err
					}
					for i := range states {
						states[i] = downstreamState{}
					}

					// The producer may have emitted Complete/Fail right
					// behind this Push in the same response to our one
					// Pull (source ended mid-drain); wait up to
					// trailingCheck for it so we don't wait on a Pull
					// nobody will ever send.
					select {
					case trailing := <-inlet.Rx:
						switch {
						case trailing.Complete:
							return broadcastComplete(ctx, outlets)
						case trailing.Fail != nil:
							return broadcastFail(ctx, outlets, trailing.Fail)
						}
					case <-time.After(trailingCheck):
					}
				case upstream.Complete:
					return broadcastComplete(ctx, outlets)
				case upstream.Fail != nil:
					return broadcastFail(ctx, outlets, upstream.Fail)
				}
			}
		}
	}
}

func anyBusy(states []downstreamState) bool {
	for _, s := range states {
		if !s.ready {
			return true
		}
	}
	return false
}

func minMaxItems(states []downstreamState) int32 {
	if len(states) == 0 {
		return 0
	}
	min := states[0].maxItems
	for _, s := range states[1:] {
		if s.maxItems < min {
			min = s.maxItems
		}
	}
	return min
}

func broadcastPush(ctx context.Context, outlets []message.ProducerChannels, items [][]byte) error {
	for _, o := range outlets {
		if err := send(ctx, o.Tx, message.ProducerMessage{Push: &message.Push{Items: items}}); err != nil {
			return err
		}
	}
	return nil
}

func broadcastComplete(ctx context.Context, outlets []message.ProducerChannels) error {
	for _, o := range outlets {
		if err := send(ctx, o.Tx, message.ProducerMessage{Complete: true}); err != nil {
			return err
		}
	}
	return nil
}

func broadcastFail(ctx context.Context, outlets []message.ProducerChannels, f *command.Failure) error {
	for _, o := range outlets {
		if err := send(ctx, o.Tx, message.ProducerMessage{Fail: f}); err != nil {
			return err
		}
	}
	return nil
}
