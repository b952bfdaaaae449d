// Package chanx provides channel helpers for the code around a drain
// session: producers that close safely, cancellable sources, and fan-in.
//
//   - [Send] and [Recv]: context-aware send and receive that unblock on
//     cancellation instead of leaking goroutines.
//   - [TryRecv]: non-blocking receive reporting message, empty, or closed
//     and drained as a [github.com/baxromumarov/drain.Status].
//   - [Closable]: idempotent-close producer handle whose buffered values
//     survive Close until drained.
//   - [OrDone] and [RecvContext]: make a drain session cancellable by
//     closing its sources when a context ends.
//   - [Drain]: discard everything from several channels until all close.
//   - [Merge]: fan-in onto one output channel, driven by a single drain
//     engine.
package chanx
