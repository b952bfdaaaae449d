package chanx

import (
	"context"

	"github.com/baxromumarov/drain"
)

// Merge combines multiple input channels into a single output channel
// (fan-in). A single [drain.Engine] consumes every input and forwards each
// value; per-input order is preserved, order across inputs
// is not. Nil inputs are skipped.
//
// The output channel is closed once every input is closed and emptied, or
// once ctx is cancelled.
func Merge[T any](ctx context.Context, chs ...<-chan T) <-chan T {
	return MergeWith(ctx, nil, chs...)
}

// MergeWith is like [Merge] and passes opts to the draining engine.
func MergeWith[T any](ctx context.Context, opts []drain.Option, chs ...<-chan T) <-chan T {
	out := make(chan T)

	r := drain.NewRegistry()
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		RecvContext(ctx, r, ch, func(v T) {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- v:
			case <-ctx.Done():
			}
		})
	}

	e := drain.NewEngine(r, opts...)

	go func() {
		defer close(out)
		e.Run()
	}()

	return out
}
