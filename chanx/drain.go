package chanx

import (
	"context"

	"github.com/baxromumarov/drain"
)

// OrDone wraps a receive channel so that it respects context cancellation.
// The returned channel yields values from in until in is closed or ctx
// is cancelled, whichever comes first.
//
// Registering OrDone(ctx, ch) instead of ch makes a drain session
// cancellable: on cancellation every wrapper closes, each slot is retired
// and [drain.Run] returns. Values still buffered in ch are left there.
func OrDone[T any](ctx context.Context, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// RecvContext registers ch with r through [OrDone], so the slot retires
// when ch closes or ctx is cancelled. A context that can never be
// cancelled registers ch directly.
func RecvContext[T any](ctx context.Context, r *drain.Registry, ch <-chan T, fn func(T)) int {
	if ctx.Done() == nil {
		return drain.Recv(r, ch, fn)
	}
	return drain.Recv(r, OrDone(ctx, ch), fn)
}

// Drain reads and discards values from every channel until all of them
// are closed. Use it to unblock producers during shutdown. Nil channels
// are skipped.
func Drain[T any](chs ...<-chan T) {
	r := drain.NewRegistry()
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		drain.Recv(r, ch, func(T) {})
	}
	drain.Run(r)
}
