package drain

import (
	"io"
	"log/slog"
	"time"
)

type config struct {
	fairness  Fairness
	logger    *slog.Logger
	session   string
	observers []func(Event)
	onDeliver func(SlotInfo, time.Duration)
	onRetire  func(SlotInfo, int)
}

// Option configures an [Engine].
type Option func(*config)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultConfig() config {
	return config{
		fairness: Randomized,
		logger:   discardLogger,
	}
}

// WithFairness sets the tie-break policy used when several slots are ready
// at once. The default is [Randomized].
// It panics if f is not a known Fairness value.
func WithFairness(f Fairness) Option {
	switch f {
	case Randomized, RoundRobin:
	default:
		panic("drain: invalid fairness policy")
	}
	return func(c *config) {
		c.fairness = f
	}
}

// WithLogger sets the structured logger. The engine logs session start,
// retirements, spurious wakes and completion at debug level.
// By default nothing is logged. WithLogger panics if l is nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("drain: logger must not be nil")
	}
	return func(c *config) {
		c.logger = l
	}
}

// WithSessionID overrides the generated session identifier carried on log
// lines and events.
func WithSessionID(id string) Option {
	return func(c *config) {
		c.session = id
	}
}

// WithObserver registers a hook receiving an [Event] for every state
// change of the session. Observers run synchronously on the engine
// goroutine and must be quick. It may be given more than once.
// WithObserver panics if fn is nil.
func WithObserver(fn func(Event)) Option {
	if fn == nil {
		panic("drain: observer must not be nil")
	}
	return func(c *config) {
		c.observers = append(c.observers, fn)
	}
}

// WithOnDeliver registers a hook invoked after each handler returns, with
// the handler's wall-clock duration. It panics if fn is nil.
func WithOnDeliver(fn func(SlotInfo, time.Duration)) Option {
	if fn == nil {
		panic("drain: deliver hook must not be nil")
	}
	return func(c *config) {
		c.onDeliver = fn
	}
}

// WithOnRetire registers a hook invoked when a slot is retired. It receives
// the live count after the retirement. It panics if fn is nil.
func WithOnRetire(fn func(SlotInfo, int)) Option {
	if fn == nil {
		panic("drain: retire hook must not be nil")
	}
	return func(c *config) {
		c.onRetire = fn
	}
}
