package drain

import (
	"fmt"
	"time"
)

// EventKind classifies an [Event].
type EventKind int

const (
	// EventStarted is emitted once when Run begins.
	EventStarted EventKind = iota

	// EventDelivered is emitted after a handler returns.
	EventDelivered

	// EventSpurious is emitted when a wake-up found nothing to read.
	EventSpurious

	// EventRetired is emitted when a closed and empty slot is retired.
	EventRetired

	// EventDone is emitted once when the live count reaches zero.
	EventDone

	// EventAborted is emitted instead of EventDone when Run unwinds on a
	// panic. Live holds the slots that were never retired.
	EventAborted
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventDelivered:
		return "delivered"
	case EventSpurious:
		return "spurious"
	case EventRetired:
		return "retired"
	case EventDone:
		return "done"
	case EventAborted:
		return "aborted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes one state change of a drain session.
type Event struct {
	Kind    EventKind
	Session string

	// Slot is the slot involved. For EventStarted, EventDone and
	// EventAborted its Index is -1.
	Slot SlotInfo

	// Slots is the number of registered slots.
	Slots int

	// Live is the live slot count after the event.
	Live int

	// Duration is the handler duration for EventDelivered and the
	// session duration for EventDone and EventAborted. Zero otherwise.
	Duration time.Duration
}

// emit calls every registered observer.
func (e *Engine) emit(ev Event) {
	if len(e.cfg.observers) == 0 {
		return
	}
	ev.Session = e.session
	ev.Slots = len(e.reg.slots)
	for _, fn := range e.cfg.observers {
		fn(ev)
	}
}

var noSlot = SlotInfo{Index: -1}
