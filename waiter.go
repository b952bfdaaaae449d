package drain

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
)

// Fairness selects how a [Waiter] chooses among several ready slots.
type Fairness int

const (
	// Randomized picks uniformly at random among ready slots, using
	// the pseudo-random case selection of [reflect.Select].
	Randomized Fairness = iota

	// RoundRobin probes slots starting one past the previous winner and
	// takes the first ready one. Under sustained contention every ready
	// slot is served once per rotation.
	RoundRobin
)

func (f Fairness) String() string {
	switch f {
	case Randomized:
		return "random"
	case RoundRobin:
		return "round-robin"
	default:
		return fmt.Sprintf("Fairness(%d)", int(f))
	}
}

// ParseFairness parses the names produced by [Fairness.String].
func ParseFairness(s string) (Fairness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "randomized", "":
		return Randomized, nil
	case "round-robin", "roundrobin", "rr":
		return RoundRobin, nil
	default:
		return 0, fmt.Errorf("drain: unknown fairness policy %q", s)
	}
}

// Ready is one slot the waiter found ready, together with the outcome of
// the receive that readiness was established by.
type Ready struct {
	Index  int
	Status Status

	value reflect.Value
}

// Message returns the received message, or nil unless Status is
// [StatusMessage].
func (r Ready) Message() any {
	if r.Status != StatusMessage || !r.value.IsValid() {
		return nil
	}
	return r.value.Interface()
}

// maxSelectCases is the most cases a single [reflect.Select] accepts.
const maxSelectCases = 1 << 16

// shard is a block of consecutive slots small enough for one
// reflect.Select. cases holds one case per entry of ids followed by a
// control case, used as the default branch of a poll or as the stop
// signal of a blocked shard.
type shard struct {
	ids   []int // ascending slot indices, retired ones until compaction
	cases []reflect.SelectCase
	live  int
}

// Waiter blocks on many channels at once and wakes on the first ready one.
//
// Slot indices never change. Retired slots drop out of the select set, so
// a wait costs time proportional to the live slots only. Registries larger
// than a single [reflect.Select] can take are split into shards that are
// polled, then waited on together.
//
// A Waiter is not safe for concurrent use.
type Waiter struct {
	slots     []Slot
	shards    []*shard
	shardSize int
	pos       []int // slot index -> position in its shard
	active    []bool
	live      int
	fairness  Fairness
	cursor    int

	// results received by blocked shards that lost the race to wake
	// first; served before any new receive.
	pending []Ready
}

// NewWaiter builds a waiter over the slots of r, all initially active, and
// binds r: it cannot be registered to or given to another waiter or
// engine afterwards. Use it to drive a custom loop; [Engine] does this for
// the common case. NewWaiter panics if f is not a known Fairness value.
func NewWaiter(r *Registry, f Fairness) *Waiter {
	switch f {
	case Randomized, RoundRobin:
	default:
		panic("drain: invalid fairness policy")
	}
	r.bind()
	return newWaiter(r.slots, f)
}

func newWaiter(slots []Slot, f Fairness) *Waiter {
	return newShardedWaiter(slots, f, maxSelectCases-1)
}

// newShardedWaiter splits slots into shards of at most size slots.
func newShardedWaiter(slots []Slot, f Fairness, size int) *Waiter {
	w := &Waiter{
		slots:     slots,
		shardSize: size,
		pos:       make([]int, len(slots)),
		active:    make([]bool, len(slots)),
		live:      len(slots),
		fairness:  f,
	}
	for start := 0; start < len(slots); start += size {
		end := min(start+size, len(slots))
		sh := &shard{
			ids:   make([]int, 0, end-start),
			cases: make([]reflect.SelectCase, 0, end-start+1),
			live:  end - start,
		}
		for i := start; i < end; i++ {
			sh.ids = append(sh.ids, i)
			sh.cases = append(sh.cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: slots[i].ch,
			})
			w.pos[i] = i - start
			w.active[i] = true
		}
		sh.cases = append(sh.cases, reflect.SelectCase{})
		w.shards = append(w.shards, sh)
	}
	return w
}

// Active returns the number of slots still considered by WaitOne.
func (w *Waiter) Active() int {
	return w.live
}

// WaitOne blocks until an active slot has a message or is closed and
// empty, and returns it. WaitOne panics with [*InvariantError] when no slot
// is active, since it would block forever.
func (w *Waiter) WaitOne() Ready {
	if w.live == 0 {
		panic(newInvariantError("wait", -1, w.live, "no active slots to wait on"))
	}

	for len(w.pending) > 0 {
		r := w.pending[0]
		w.pending = w.pending[1:]
		if w.active[r.Index] {
			w.cursor = (r.Index + 1) % len(w.slots)
			return r
		}
	}

	if w.fairness == RoundRobin {
		if r, ok := w.probe(); ok {
			return r
		}
	}
	return w.wait()
}

// wait selects over the live shards.
func (w *Waiter) wait() Ready {
	live := make([]*shard, 0, len(w.shards))
	for _, sh := range w.shards {
		if sh.live > 0 {
			live = append(live, sh)
		}
	}

	if len(live) == 1 {
		sh := live[0]
		chosen, v, ok := reflect.Select(sh.cases[:len(sh.ids)])
		return w.ready(sh, chosen, v, ok)
	}

	// Poll every shard before blocking, from a random one so that no
	// shard is favoured.
	start := 0
	if w.fairness == Randomized {
		start = rand.IntN(len(live))
	}
	for k := range live {
		sh := live[(start+k)%len(live)]
		n := len(sh.ids)
		sh.cases[n] = reflect.SelectCase{Dir: reflect.SelectDefault}
		if chosen, v, ok := reflect.Select(sh.cases); chosen != n {
			return w.ready(sh, chosen, v, ok)
		}
	}
	return w.block(live)
}

type shardResult struct {
	sh     *shard
	chosen int
	v      reflect.Value
	ok     bool
}

// block waits on every shard from its own goroutine. The first shard to
// wake wins; the others are stopped, and anything they received before
// stopping is kept in pending.
func (w *Waiter) block(live []*shard) Ready {
	stop := make(chan struct{})
	results := make(chan shardResult, len(live))
	for _, sh := range live {
		sh.cases[len(sh.ids)] = reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(stop),
		}
		go func() {
			chosen, v, ok := reflect.Select(sh.cases)
			results <- shardResult{sh: sh, chosen: chosen, v: v, ok: ok}
		}()
	}

	first := <-results
	close(stop)
	for range len(live) - 1 {
		res := <-results
		if res.chosen != len(res.sh.ids) {
			w.pending = append(w.pending, w.ready(res.sh, res.chosen, res.v, res.ok))
		}
	}
	return w.ready(first.sh, first.chosen, first.v, first.ok)
}

// ready maps a shard-local choice back to its slot.
func (w *Waiter) ready(sh *shard, chosen int, v reflect.Value, ok bool) Ready {
	if chosen < 0 || chosen >= len(sh.ids) || !w.active[sh.ids[chosen]] {
		panic(newInvariantError("wait", chosen, w.live, "selected a slot outside the active set"))
	}
	idx := sh.ids[chosen]
	w.cursor = (idx + 1) % len(w.slots)

	if !ok {
		return Ready{Index: idx, Status: StatusClosed}
	}
	return Ready{Index: idx, Status: StatusMessage, value: v}
}

// probe polls live slots without blocking, in index order starting at the
// cursor.
func (w *Waiter) probe() (Ready, bool) {
	s0 := w.cursor / w.shardSize
	first := w.shards[s0]
	split, _ := slices.BinarySearch(first.ids, w.cursor)

	if r, ok := w.probeRange(first.ids[split:]); ok {
		return r, true
	}
	for k := 1; k < len(w.shards); k++ {
		if r, ok := w.probeRange(w.shards[(s0+k)%len(w.shards)].ids); ok {
			return r, true
		}
	}
	return w.probeRange(first.ids[:split])
}

func (w *Waiter) probeRange(ids []int) (Ready, bool) {
	for _, idx := range ids {
		if !w.active[idx] {
			continue
		}
		v, st := w.slots[idx].tryRecv()
		if st == StatusEmpty {
			continue
		}
		w.cursor = (idx + 1) % len(w.slots)
		return Ready{Index: idx, Status: st, value: v}, true
	}
	return Ready{}, false
}

// Retire permanently removes index from consideration. Retiring an unknown
// or already retired index panics with [*InvariantError].
func (w *Waiter) Retire(index int) {
	if index < 0 || index >= len(w.active) {
		panic(newInvariantError("retire", index, w.live, "unknown slot index"))
	}
	if !w.active[index] {
		panic(newInvariantError("retire", index, w.live, "slot already retired"))
	}
	w.active[index] = false
	w.live--

	sh := w.shards[index/w.shardSize]
	sh.cases[w.pos[index]].Chan = reflect.Value{}
	sh.live--
	if sh.live <= len(sh.ids)/2 {
		w.compact(sh)
	}
}

// compact drops retired slots from sh, keeping index order. A shard is
// compacted once half of it is retired, so its length stays below twice
// its live count.
func (w *Waiter) compact(sh *shard) {
	n := 0
	for i, idx := range sh.ids {
		if !w.active[idx] {
			continue
		}
		sh.ids[n] = idx
		sh.cases[n] = sh.cases[i]
		w.pos[idx] = n
		n++
	}
	clear(sh.cases[n:])
	sh.ids = sh.ids[:n]
	sh.cases = sh.cases[:n+1]
}
