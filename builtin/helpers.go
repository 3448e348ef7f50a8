package builtin

import (
	"context"
	"reflect"
)

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

// recvAny waits on whichever of rxs is ready first (and ctx.Done), using
// reflect.Select since the fan-in width is a runtime graph parameter,
// not something a static select statement can express. It reports the
// winning index, the received value, and false if ctx ended first or the
// winning channel was closed.
func recvAny[T any](ctx context.Context, rxs []<-chan T) (int, T, bool) {
	var zero T

	cases := make([]reflect.SelectCase, len(rxs)+1)
	for i, rx := range rxs {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(rx)}
	}
	cases[len(rxs)] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}

	chosen, value, ok := reflect.Select(cases)
	if chosen == len(rxs) || !ok {
		return 0, zero, false
	}
	return chosen, value.Interface().(T), true
}
