package drain

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
)

// HandlerError wraps an error returned by a handler together with the
// [SlotInfo] of the slot whose message it was handling.
type HandlerError struct {
	Slot SlotInfo
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("slot %q (#%d) handler failed: %v", e.Slot.Name, e.Slot.Index, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsHandlerError reports whether err (or any error in its chain) is a
// [*HandlerError].
func IsHandlerError(err error) bool {
	if err == nil {
		return false
	}
	var he *HandlerError
	return errors.As(err, &he)
}

// SlotOf extracts the [SlotInfo] from the first [*HandlerError] in err's
// chain. Returns false if no HandlerError is found.
func SlotOf(err error) (SlotInfo, bool) {
	if err == nil {
		return SlotInfo{}, false
	}

	var he *HandlerError
	if errors.As(err, &he) {
		return he.Slot, true
	}
	return SlotInfo{}, false
}

// CauseOf unwraps the first [*HandlerError] in err's chain and returns its
// underlying cause. If err is not a HandlerError, it is returned as-is.
// Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var he *HandlerError
	if errors.As(err, &he) {
		return he.Err
	}

	return err
}

// AllHandlerErrors recursively collects every [*HandlerError] from err's
// chain, including errors combined by a [Collector] or [errors.Join].
// Returns nil if none are found.
func AllHandlerErrors(err error) []*HandlerError {
	if err == nil {
		return nil
	}

	var out []*HandlerError
	collectHandlerErrors(err, &out)
	return out
}

func collectHandlerErrors(err error, out *[]*HandlerError) {
	switch e := err.(type) {
	case *HandlerError:
		*out = append(*out, e)

	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectHandlerErrors(sub, out)
		}

	case interface{ Unwrap() error }:
		collectHandlerErrors(e.Unwrap(), out)
	}
}

// Collector accumulates handler failures so a session can run to
// completion and report every error afterwards. Register handlers with
// [RecvCollect].
type Collector struct {
	mu  sync.Mutex
	err error
	n   int
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) add(slot SlotInfo, err error) {
	c.mu.Lock()
	c.err = multierr.Append(c.err, &HandlerError{Slot: slot, Err: err})
	c.n++
	c.mu.Unlock()
}

// Err returns every collected failure combined, or nil.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Len returns the number of collected failures.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// RecvCollect registers a typed channel whose handler may fail. Failures
// are recorded in c, attributed to the slot, and draining continues.
func RecvCollect[T any](r *Registry, c *Collector, name string, ch <-chan T, fn func(T) error) int {
	if c == nil || fn == nil {
		panic("drain: collector and handler must not be nil")
	}
	slot := r.next(name)
	return RecvNamed(r, slot.Name, ch, func(v T) {
		if err := fn(v); err != nil {
			c.add(slot, err)
		}
	})
}

// RecvLogged registers a typed channel whose handler may fail. Each failure
// is logged at error level and draining continues.
func RecvLogged[T any](r *Registry, logger *slog.Logger, name string, ch <-chan T, fn func(T) error) int {
	if logger == nil || fn == nil {
		panic("drain: logger and handler must not be nil")
	}
	slot := r.next(name)
	return RecvNamed(r, slot.Name, ch, func(v T) {
		if err := fn(v); err != nil {
			logger.Error("drain handler failed",
				slog.Int("slot", slot.Index),
				slog.String("name", slot.Name),
				slog.Any("error", err),
			)
		}
	})
}
