// Package bench runs synthetic saturation drains: N producers keep their
// channels full while one engine drains them, and the report shows how
// evenly deliveries were spread while every channel was ready.
package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/drain"
	"github.com/baxromumarov/drain/chanx"
)

// Scenario describes one saturation run.
type Scenario struct {
	Channels int
	Messages int // per channel
	Buffer   int // per channel capacity
	Fairness drain.Fairness
}

// Validate reports the first invalid field.
func (s Scenario) Validate() error {
	switch {
	case s.Channels < 0:
		return errors.New("bench: channels must be non-negative")
	case s.Messages < 0:
		return errors.New("bench: messages must be non-negative")
	case s.Buffer < 0:
		return errors.New("bench: buffer must be non-negative")
	}
	_, err := drain.ParseFairness(s.Fairness.String())
	return err
}

// Report is the outcome of a run.
type Report struct {
	Session   string
	Fairness  drain.Fairness
	Delivered []int64

	// Window holds per-slot deliveries made before the first slot
	// retired, while every channel was still live.
	Window []int64

	Elapsed time.Duration
}

// Total returns the number of delivered messages.
func (r Report) Total() int64 {
	var n int64
	for _, d := range r.Delivered {
		n += d
	}
	return n
}

// Throughput returns delivered messages per second.
func (r Report) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total()) / r.Elapsed.Seconds()
}

// Spread returns the ratio between the most and least served slot inside
// the window: 1 is perfectly even, +Inf means a slot was starved.
// It returns 1 with fewer than two slots.
func (r Report) Spread() float64 {
	if len(r.Window) < 2 {
		return 1
	}
	lo, hi := r.Window[0], r.Window[0]
	for _, w := range r.Window[1:] {
		lo = min(lo, w)
		hi = max(hi, w)
	}
	if lo == 0 {
		if hi == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return float64(hi) / float64(lo)
}

// Run executes sc. Producers start first and the engine starts once every
// buffer is full, so the window begins saturated. Cancelling ctx stops the
// producers; their channels close and the drain finishes with what was
// sent, and Run returns the context error.
func Run(ctx context.Context, sc Scenario, opts ...drain.Option) (Report, error) {
	if err := sc.Validate(); err != nil {
		return Report{}, err
	}

	chs := make([]chan int, sc.Channels)
	window := make([]int64, sc.Channels)
	windowOpen := true

	r := drain.NewRegistry()
	for i := range chs {
		i := i
		chs[i] = make(chan int, sc.Buffer)
		drain.RecvNamed(r, fmt.Sprintf("producer-%d", i), chs[i], func(int) {
			if windowOpen {
				window[i]++
			}
		})
	}

	opts = append(opts,
		drain.WithFairness(sc.Fairness),
		drain.WithObserver(func(ev drain.Event) {
			if ev.Kind == drain.EventRetired {
				windowOpen = false
			}
		}),
	)
	e := drain.NewEngine(r, opts...)

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chs {
		ch := ch
		g.Go(func() error {
			defer close(ch)
			for j := 0; j < sc.Messages; j++ {
				if err := chanx.Send(gctx, ch, j); err != nil {
					return err
				}
			}
			return nil
		})
	}

	warmUp(gctx, chs, min(sc.Buffer, sc.Messages))

	start := time.Now()
	e.Run()
	elapsed := time.Since(start)

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{
		Session:   e.SessionID(),
		Fairness:  sc.Fairness,
		Delivered: e.Stats().Delivered,
		Window:    window,
		Elapsed:   elapsed,
	}, nil
}

// warmUp waits until every channel holds want messages or ctx ends.
func warmUp(ctx context.Context, chs []chan int, want int) {
	for {
		full := true
		for _, ch := range chs {
			if len(ch) < want {
				full = false
				break
			}
		}
		if full {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Microsecond):
		}
	}
}
