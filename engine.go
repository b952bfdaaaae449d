package drain

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an [Engine].
type State int32

const (
	// StateActive means slots remain live and the engine is waiting (or
	// about to wait) for one of them.
	StateActive State = iota

	// StateAttemptingRead means the engine is handling one ready slot.
	StateAttemptingRead

	// StateDone means every slot was observed closed and empty.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAttemptingRead:
		return "attempting-read"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats is a snapshot of an engine's counters.
type Stats struct {
	// Delivered holds the number of handler invocations per slot index.
	Delivered []int64

	// Retired lists slot indices in the order they were retired.
	Retired []int

	// Iterations counts wake-ups of the loop.
	Iterations int64

	// SpuriousWakes counts wake-ups that found nothing to read.
	SpuriousWakes int64
}

// Total returns the total number of handler invocations.
func (s Stats) Total() int64 {
	var n int64
	for _, d := range s.Delivered {
		n += d
	}
	return n
}

// selector is the waiting side of an engine. [*Waiter] implements it.
type selector interface {
	WaitOne() Ready
	Retire(index int)
}

// Engine drains every channel of a [Registry] until each one has been
// observed closed and empty.
//
// Handlers run one at a time on the goroutine that called [Engine.Run], in
// receive order per channel. A handler that blocks stalls the whole session.
// Handler panics are not recovered: they propagate out of Run and the
// remaining channels are abandoned. Observers still receive an
// [EventAborted] on the way out.
type Engine struct {
	reg     *Registry
	waiter  selector
	cfg     config
	session string
	log     *slog.Logger

	started atomic.Bool
	state   atomic.Int32
	live    atomic.Int64

	delivered  []atomic.Int64
	iterations atomic.Int64
	spurious   atomic.Int64

	mu      sync.Mutex // protects retired
	retired []int
}

// NewEngine binds r to a new engine. The registry is frozen: further
// registrations panic, and r cannot back another engine.
func NewEngine(r *Registry, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r.bind()

	session := cfg.session
	if session == "" {
		session = uuid.NewString()
	}

	e := &Engine{
		reg:       r,
		waiter:    newWaiter(r.slots, cfg.fairness),
		cfg:       cfg,
		session:   session,
		log:       cfg.logger.With(slog.String("session", session)),
		delivered: make([]atomic.Int64, len(r.slots)),
		retired:   make([]int, 0, len(r.slots)),
	}
	e.live.Store(int64(len(r.slots)))
	return e
}

// Run drains r with a fresh [Engine] and returns once every channel has
// been observed closed and empty.
func Run(r *Registry, opts ...Option) {
	NewEngine(r, opts...).Run()
}

// Run drives the session to completion. It returns only when every
// registered channel has been observed closed and empty; with no channels
// it returns immediately.
//
// Run panics if called more than once, and panics with [*InvariantError]
// if the slot bookkeeping is ever found inconsistent.
func (e *Engine) Run() {
	if !e.started.CompareAndSwap(false, true) {
		panic("drain: Engine.Run called more than once")
	}

	start := time.Now()
	e.log.Debug("drain session started",
		slog.Int("slots", len(e.reg.slots)),
		slog.String("fairness", e.cfg.fairness.String()),
	)
	e.emit(Event{Kind: EventStarted, Slot: noSlot, Live: e.Live()})

	finished := false
	defer func() {
		if !finished {
			e.abort(start)
		}
	}()

	for e.live.Load() > 0 {
		e.state.Store(int32(StateActive))
		ready := e.waiter.WaitOne()

		e.state.Store(int32(StateAttemptingRead))
		e.iterations.Add(1)

		switch ready.Status {
		case StatusMessage:
			e.dispatch(ready)
		case StatusClosed:
			e.retire(ready.Index)
		default:
			// Nothing to read and not closed; wait again.
			e.spurious.Add(1)
			info := e.reg.slots[ready.Index].SlotInfo
			e.log.Debug("spurious wake", slog.Int("slot", info.Index), slog.String("name", info.Name))
			e.emit(Event{Kind: EventSpurious, Slot: info, Live: e.Live()})
		}
	}

	finished = true
	e.state.Store(int32(StateDone))
	elapsed := time.Since(start)
	e.log.Debug("drain session done",
		slog.Int64("delivered", e.Stats().Total()),
		slog.Int64("iterations", e.iterations.Load()),
		slog.Duration("elapsed", elapsed),
	)
	e.emit(Event{Kind: EventDone, Slot: noSlot, Duration: elapsed})
}

// abort reports a session that is unwinding before Done, from a handler
// or observer panic or an invariant violation.
func (e *Engine) abort(start time.Time) {
	elapsed := time.Since(start)
	e.log.Error("drain session aborted",
		slog.Int("live", e.Live()),
		slog.Int64("delivered", e.Stats().Total()),
		slog.Duration("elapsed", elapsed),
	)
	e.emit(Event{Kind: EventAborted, Slot: noSlot, Live: e.Live(), Duration: elapsed})
}

func (e *Engine) dispatch(r Ready) {
	s := &e.reg.slots[r.Index]

	start := time.Now()
	s.handler(r.value.Interface())
	d := time.Since(start)

	e.delivered[r.Index].Add(1)
	if e.cfg.onDeliver != nil {
		e.cfg.onDeliver(s.SlotInfo, d)
	}
	e.emit(Event{Kind: EventDelivered, Slot: s.SlotInfo, Live: e.Live(), Duration: d})
}

func (e *Engine) retire(idx int) {
	e.waiter.Retire(idx)

	live := e.live.Load()
	if live <= 0 {
		panic(newInvariantError("retire", idx, int(live), "live count would underflow"))
	}
	live--
	e.live.Store(live)

	e.mu.Lock()
	e.retired = append(e.retired, idx)
	e.mu.Unlock()

	info := e.reg.slots[idx].SlotInfo
	e.log.Debug("slot retired",
		slog.Int("slot", info.Index),
		slog.String("name", info.Name),
		slog.Int64("live", live),
	)
	if e.cfg.onRetire != nil {
		e.cfg.onRetire(info, int(live))
	}
	e.emit(Event{Kind: EventRetired, Slot: info, Live: int(live)})
}

// SessionID returns the identifier carried on this engine's logs and events.
func (e *Engine) SessionID() string {
	return e.session
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Live returns the number of slots not yet retired.
func (e *Engine) Live() int {
	return int(e.live.Load())
}

// Stats returns a snapshot of the engine's counters. It is safe to call
// while Run is in progress.
func (e *Engine) Stats() Stats {
	st := Stats{
		Delivered:     make([]int64, len(e.delivered)),
		Iterations:    e.iterations.Load(),
		SpuriousWakes: e.spurious.Load(),
	}
	for i := range e.delivered {
		st.Delivered[i] = e.delivered[i].Load()
	}

	e.mu.Lock()
	st.Retired = append([]int(nil), e.retired...)
	e.mu.Unlock()

	return st
}
