package drain

import (
	"errors"
	"fmt"
	"runtime"
)

// InvariantError describes a broken bookkeeping invariant inside a drain
// session: retiring a slot twice, retiring an unknown slot, the live count
// underflowing, or the waiter selecting a slot outside its active set.
//
// These are programming errors, not runtime failures. The engine never
// returns an InvariantError; it panics with one, aborting the session.
type InvariantError struct {
	// Op is the operation that detected the violation ("wait", "retire").
	Op string

	// Index is the slot involved, or -1 when no slot applies.
	Index int

	// Live is the live slot count when the violation was detected.
	Live int

	// Msg describes the violated invariant.
	Msg string

	// Stack is the goroutine stack trace at the point of detection.
	Stack string
}

// Error returns a human-readable representation of the violation,
// including the full stack trace.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("drain: invariant violated in %s (slot %d, live %d): %s\n\n%s",
		e.Op, e.Index, e.Live, e.Msg, e.Stack)
}

// IsInvariant reports whether err (or any error in its chain) is an
// [*InvariantError].
func IsInvariant(err error) bool {
	if err == nil {
		return false
	}
	var ie *InvariantError
	return errors.As(err, &ie)
}

func newInvariantError(op string, index, live int, msg string) *InvariantError {
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &InvariantError{
		Op:    op,
		Index: index,
		Live:  live,
		Msg:   msg,
		Stack: string(buf[:n]),
	}
}
