package builtin

import (
	"context"
	"reflect"

	"github.com/whitaker-io/flowgraph/protocol/message"
)

type upstreamState int

const (
	upstreamIdle upstreamState = iota
	upstreamPulled
	upstreamComplete
	upstreamFailed
)

// MergeConfig carries Merge's two termination policies.
type MergeConfig struct {
	EagerlyComplete bool
	EagerlyFail     bool
}

// mergeEvent is one event off the combined downstream/upstream event
// stream: either the single outlet's ConsumerMessage, or one inlet's
// ProducerMessage tagged by its index.
type mergeEvent struct {
	fromOutlet bool
	consumer   message.ConsumerMessage
	inletIdx   int
	producer   message.ProducerMessage
}

// recvMergeEvent waits on whichever of outletRx or inletRx is ready
// first, using reflect.Select since the two are different message types
// and the inlet fan-in width is a runtime graph parameter.
func recvMergeEvent(ctx context.Context, outletRx <-chan message.ConsumerMessage, inletRx []<-chan message.ProducerMessage) (mergeEvent, bool) {
	cases := make([]reflect.SelectCase, 0, len(inletRx)+2)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(outletRx)})
	for _, rx := range inletRx {
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(rx)})
	}
	doneCase := len(cases)
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, value, ok := reflect.Select(cases)
	if chosen == doneCase || !ok {
		return mergeEvent{}, false
	}
	if chosen == 0 {
		return mergeEvent{fromOutlet: true, consumer: value.Interface().(message.ConsumerMessage)}, true
	}
	return mergeEvent{inletIdx: chosen - 1, producer: value.Interface().(message.ProducerMessage)}, true
}

// RunMerge coalesces items from every element of inlets into outlet. It
// is a single event loop over the combined downstream/upstream event
// stream, mirroring the one-event-at-a-time Busy/WaitingForUpstreams FSM
// the protocol specifies: a downstream Pull drains the buffer if
// non-empty, else issues Pull to every Idle upstream and waits; only the
// first upstream to answer within that wait is forwarded downstream
// (capped at the Pull's max_items), with its own excess and every other
// upstream's eventual answer buffered for a later Pull to drain.
// Termination follows cfg's eager flags: an eager Complete/Fail ends the
// stage on the first occurrence; otherwise it waits until no upstream
// remains Idle or Pulled, then relays whichever Complete/Fail it was
// that last went terminal.
func RunMerge(ctx context.Context, inlets []message.ConsumerChannels, outlet message.ProducerChannels, cfg MergeConfig) error {
	states := make([]upstreamState, len(inlets))
	var buffer [][]byte
	waiting := false
	var waitMaxItems int32

	inletRx := make([]<-chan message.ProducerMessage, len(inlets))
	for i, in := range inlets {
		inletRx[i] = in.Rx
	}

	for {
		ev, ok := recvMergeEvent(ctx, outlet.Rx, inletRx)
		if !ok {
			return nil
		}

		if ev.fromOutlet {
			switch {
			case ev.consumer.Cancel:
				if err := cancelAllInlets(ctx, inlets); err != nil {
					return err
				}
				return send(ctx, outlet.Tx, message.ProducerMessage{Complete: true})

			case ev.consumer.Pull != nil:
				if waiting {
					return &DoublePullError{}
				}

				maxItems := ev.consumer.Pull.MaxItems

				if len(buffer) > 0 {
					n := int32(len(buffer))
					if maxItems < n {
						n = maxItems
					}
					if err := send(ctx, outlet.Tx, message.ProducerMessage{Push: &message.Push{Items: buffer[:n]}}); err != nil {
						return err
					}
					buffer = buffer[n:]
					continue
				}

				for i, in := range inlets {
					if states[i] == upstreamIdle {
						if err := send(ctx, in.Tx, message.ConsumerMessage{Pull: &message.Pull{MaxItems: maxItems}}); err != nil {
							return err
						}
						states[i] = upstreamPulled
					}
				}
				waiting = true
				waitMaxItems = maxItems
			}
			continue
		}

		idx := ev.inletIdx
		switch {
		case ev.producer.Push != nil:
			states[idx] = upstreamIdle
			items := ev.producer.Push.Items

			if waiting {
				waiting = false
				n := int32(len(items))
				if waitMaxItems < n {
					n = waitMaxItems
				}
				if err := send(ctx, outlet.Tx, message.ProducerMessage{Push: &message.Push{Items: items[:n]}}); err != nil {
					return err
				}
				buffer = append(buffer, items[n:]...)
			} else {
				// A still-Pulled upstream catching up after another one
				// already answered this round: nothing is waiting for it
				// right now, so its whole answer goes to the buffer.
				buffer = append(buffer, items...)
			}

		case ev.producer.Complete:
			states[idx] = upstreamComplete
			if done, term := resolveTermination(states, cfg.EagerlyComplete, message.ProducerMessage{Complete: true}); done {
				return terminateMerge(ctx, inlets, outlet, states, term)
			}

		case ev.producer.Fail != nil:
			states[idx] = upstreamFailed
			f := ev.producer.Fail
			if done, term := resolveTermination(states, cfg.EagerlyFail, message.ProducerMessage{Fail: f}); done {
				return terminateMerge(ctx, inlets, outlet, states, term)
			}
		}
	}
}

// resolveTermination decides whether the event just applied to states
// should end the stage: immediately if eager is set for that event kind,
// or once no upstream remains Idle or Pulled. term is the exact message
// to relay downstream when it does — the triggering event's own message,
// not a scan for any other upstream's failure.
func resolveTermination(states []upstreamState, eager bool, term message.ProducerMessage) (bool, message.ProducerMessage) {
	if eager || allTerminal(states) {
		return true, term
	}
	return false, message.ProducerMessage{}
}

// terminateMerge cancels every upstream still Idle or Pulled, then
// relays term downstream.
func terminateMerge(ctx context.Context, inlets []message.ConsumerChannels, outlet message.ProducerChannels, states []upstreamState, term message.ProducerMessage) error {
	for i, in := range inlets {
		if states[i] == upstreamIdle || states[i] == upstreamPulled {
			if err := send(ctx, in.Tx, message.ConsumerMessage{Cancel: true}); err != nil {
				return err
			}
		}
	}
	return send(ctx, outlet.Tx, term)
}

// cancelAllInlets cancels every inlet unconditionally, regardless of its
// current state — a downstream Cancel tears the whole stage down
// immediately, unlike a Complete/Fail-driven shutdown which only needs
// to reach upstreams that haven't already finished on their own.
func cancelAllInlets(ctx context.Context, inlets []message.ConsumerChannels) error {
	for _, in := range inlets {
		if err := send(ctx, in.Tx, message.ConsumerMessage{Cancel: true}); err != nil {
			return err
		}
	}
	return nil
}

func allTerminal(states []upstreamState) bool {
	for _, s := range states {
		if s == upstreamIdle || s == upstreamPulled {
			return false
		}
	}
	return true
}
