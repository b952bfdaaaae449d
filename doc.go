// Package drain consumes messages from any number of channels, dispatching
// each message to the handler registered for its channel, until every
// channel has been closed and emptied.
//
// It is a fan-in drain for producer/consumer pipelines where several
// producers feed one consuming loop. The loop must neither finish early,
// dropping buffered messages, nor hang on a channel that will never
// produce again.
//
// # Registering Channels
//
// Build a [Registry] before the session starts. Each registration gets a
// dense, permanent slot index:
//
//	r := drain.NewRegistry()
//	drain.Recv(r, words, func(w string) { fmt.Println("word:", w) })
//	drain.Recv(r, nums, func(n int) { total += n })
//	drain.Run(r)
//
// [Recv] is typed; [Registry.Register] takes any receive-capable channel and
// a [Handler] over boxed values.
//
// # The Drain Loop
//
// [Run] (or [NewEngine] followed by [Engine.Run]) keeps a live count,
// initially the number of slots. Each iteration asks the [Waiter] for one
// ready slot. A message is handed to the slot's handler on the calling
// goroutine; a channel found closed and empty is retired and the live count
// drops by one. Run returns when the live count reaches zero. An empty
// registry returns immediately.
//
// A channel closed by its producer while messages are still buffered keeps
// delivering until the buffer is empty; only closed-and-empty retires it.
//
// Retired slots keep their index. Nothing shifts when another slot
// retires. There is no limit on the number of channels; registries larger
// than one [reflect.Select] can take are waited on in shards.
//
// [NewWaiter] exposes the waiting step on its own, for callers that want
// to drive their own loop over a registry.
//
// # Fairness
//
// When several channels are ready at once the [Waiter] picks one according
// to [WithFairness]:
//
//   - [Randomized] (default): uniform pseudo-random choice among ready
//     channels, as done by [reflect.Select].
//   - [RoundRobin]: the first ready channel at or after the slot following
//     the previous winner.
//
// Messages of one channel are delivered in send order. No order is
// promised across channels.
//
// # Errors and Panics
//
// A channel closing is not an error. Run has no error result.
//
// Broken bookkeeping (retiring a slot twice, the live count underflowing,
// a wake-up on a slot that is not active) panics with [*InvariantError].
//
// Handler panics are not recovered; they propagate out of Run and abandon
// the remaining channels. Observers see [EventAborted] instead of
// [EventDone] in that case. Handlers that return errors can opt into one of
// two explicit policies: [RecvCollect] gathers failures into a [Collector]
// and keeps draining, [RecvLogged] logs each failure and keeps draining.
// Failures are attributed to their slot with [*HandlerError].
//
// # Cancellation
//
// The loop has no timeout. To stop early, wrap each channel with
// [github.com/baxromumarov/drain/chanx.OrDone]: cancelling the context
// closes every wrapper, each slot retires, and Run returns.
//
// # Observability
//
//   - [WithLogger]: slog logger for session start, retirements and completion.
//   - [WithObserver]: unified hook receiving an [Event] for every state change.
//   - [WithOnDeliver] and [WithOnRetire]: narrow per-slot hooks.
//   - [Engine.Stats]: per-slot delivery counts and retirement order.
//
// The [github.com/baxromumarov/drain/metrics] subpackage turns events into
// Prometheus series.
package drain
