package message

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/whitaker-io/flowgraph/protocol/command"
)

// CommandToMessage drains dec, routing each inbound command to the
// correct per-port channel: PortPull/InletCancelled become a
// ConsumerMessage delivered to outletTx[port_id]; PortPush/
// OutletCompleted/OutletFailed become a ProducerMessage delivered to
// inletTx[port_id]. It returns nil when dec reaches a clean end of
// stream, and a non-nil error for anything else (a malformed frame, an
// out-of-range port id, or a Hello/PortDeclare arriving outside the
// handshake).
func CommandToMessage(ctx context.Context, dec *command.Decoder, inletTx []chan<- ProducerMessage, outletTx []chan<- ConsumerMessage) error {
	for {
		c, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("message: command_to_message: %w", err)
		}

		if idx, ok := c.OutletIdx(); ok {
			if idx < 0 || int(idx) >= len(outletTx) {
				tag, _ := c.Tag()
				return &PortIndexOutOfRangeError{Tag: tag, Index: idx, Count: len(outletTx)}
			}
			msg := toConsumerMessage(c)
			select {
			case outletTx[idx] <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if idx, ok := c.InletIdx(); ok {
			if idx < 0 || int(idx) >= len(inletTx) {
				tag, _ := c.Tag()
				return &PortIndexOutOfRangeError{Tag: tag, Index: idx, Count: len(inletTx)}
			}
			msg := toProducerMessage(c)
			select {
			case inletTx[idx] <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		tag, _ := c.Tag()
		return &UnexpectedCommandError{Tag: tag}
	}
}

func toConsumerMessage(c *command.Command) ConsumerMessage {
	switch {
	case c.PortPull != nil:
		return ConsumerMessage{Pull: &Pull{MaxItems: c.PortPull.MaxItems}}
	case c.InletCancelled != nil:
		return ConsumerMessage{Cancel: true}
	default:
		return ConsumerMessage{}
	}
}

func toProducerMessage(c *command.Command) ProducerMessage {
	switch {
	case c.PortPush != nil:
		return ProducerMessage{Push: &Push{Items: c.PortPush.Items}}
	case c.OutletCompleted != nil:
		return ProducerMessage{Complete: true}
	case c.OutletFailed != nil:
		return ProducerMessage{Fail: c.OutletFailed.Failure}
	default:
		return ProducerMessage{}
	}
}

type taggedItem struct {
	outlet bool
	idx    int
	pm     ProducerMessage
	cm     ConsumerMessage
}

// MessageToCommand merges outletRx (one ProducerMessage receiver per
// outlet port) and inletRx (one ConsumerMessage receiver per inlet port)
// into a single framed command stream written to enc, tagging each
// message with its port index. It returns when every source channel has
// been closed (all buffered items flushed to enc first), or when ctx is
// cancelled, or on the first write error.
func MessageToCommand(ctx context.Context, enc *command.Encoder, outletRx []<-chan ProducerMessage, inletRx []<-chan ConsumerMessage) error {
	items := make(chan taggedItem, len(outletRx)+len(inletRx)+1)

	var wg sync.WaitGroup
	wg.Add(len(outletRx) + len(inletRx))

	for i, rx := range outletRx {
		go forwardOutlet(ctx, &wg, i, rx, items)
	}
	for i, rx := range inletRx {
		go forwardInlet(ctx, &wg, i, rx, items)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it := <-items:
			if err := encodeItem(enc, it); err != nil {
				return err
			}
		case <-done:
			return drainAndEncode(enc, items)
		}
	}
}

func forwardOutlet(ctx context.Context, wg *sync.WaitGroup, idx int, rx <-chan ProducerMessage, items chan<- taggedItem) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pm, ok := <-rx:
			if !ok {
				return
			}
			select {
			case items <- taggedItem{outlet: true, idx: idx, pm: pm}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func forwardInlet(ctx context.Context, wg *sync.WaitGroup, idx int, rx <-chan ConsumerMessage, items chan<- taggedItem) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case cm, ok := <-rx:
			if !ok {
				return
			}
			select {
			case items <- taggedItem{outlet: false, idx: idx, cm: cm}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func drainAndEncode(enc *command.Encoder, items chan taggedItem) error {
	for {
		select {
		case it := <-items:
			if err := encodeItem(enc, it); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func encodeItem(enc *command.Encoder, it taggedItem) error {
	var c *command.Command

	if it.outlet {
		switch {
		case it.pm.Push != nil:
			c = &command.Command{PortPush: &command.PortPush{PortID: int32(it.idx), Items: it.pm.Push.Items}}
		case it.pm.Complete:
			c = &command.Command{OutletCompleted: &command.OutletCompleted{PortID: int32(it.idx)}}
		case it.pm.Fail != nil:
			c = &command.Command{OutletFailed: &command.OutletFailed{PortID: int32(it.idx), Failure: it.pm.Fail}}
		default:
			return nil
		}
	} else {
		switch {
		case it.cm.Pull != nil:
			c = &command.Command{PortPull: &command.PortPull{PortID: int32(it.idx), MaxItems: it.cm.Pull.MaxItems}}
		case it.cm.Cancel:
			c = &command.Command{InletCancelled: &command.InletCancelled{PortID: int32(it.idx)}}
		default:
			return nil
		}
	}

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("message: message_to_command: %w", err)
	}
	return nil
}
