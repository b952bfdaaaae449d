package drain

import (
	"fmt"
	"reflect"
)

// Status is the outcome of a single receive attempt on a slot's channel.
type Status int

const (
	// StatusEmpty means the channel is open but has nothing buffered.
	StatusEmpty Status = iota

	// StatusMessage means a message was received.
	StatusMessage

	// StatusClosed means the channel is closed and no buffered messages
	// remain. No further messages will ever arrive.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusMessage:
		return "message"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Handler receives one message taken from a slot's channel. The message is
// the received value boxed in an interface; use [Recv] for typed handlers.
type Handler func(msg any)

// SlotInfo identifies a registered channel. Index is assigned at
// registration and never changes, even after other slots retire.
type SlotInfo struct {
	Index int
	Name  string
}

// Slot pairs a channel with its handler under a permanent index.
// Slots are created by [Registry.Register] and never mutated.
type Slot struct {
	SlotInfo

	ch      reflect.Value
	handler Handler
}

// tryRecv performs a non-blocking receive on the slot's channel.
func (s *Slot) tryRecv() (reflect.Value, Status) {
	v, ok := s.ch.TryRecv()
	switch {
	case ok:
		return v, StatusMessage
	case v.IsValid():
		// Closed: reflect reports the element zero value with ok == false.
		return reflect.Value{}, StatusClosed
	default:
		return reflect.Value{}, StatusEmpty
	}
}

// Registry holds the ordered channel/handler pairs of one drain session.
//
// All channels must be registered before the registry is handed to
// [NewEngine]; registering afterwards panics. A registry backs exactly one
// engine.
type Registry struct {
	slots []Slot
	bound bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends ch with handler h and returns the slot index.
// ch must be a non-nil channel that can be received from.
//
// Register panics on a nil handler, a non-channel or send-only value, a nil
// channel (it would never become ready nor close), or if the registry is
// already bound to an engine.
func (r *Registry) Register(ch any, h Handler) int {
	return r.RegisterNamed("", ch, h)
}

// RegisterNamed is like [Registry.Register] but attaches a name used in
// logs, events and metrics. An empty name defaults to "slot-<index>".
func (r *Registry) RegisterNamed(name string, ch any, h Handler) int {
	if r.bound {
		panic("drain: Register called after the registry was bound to an engine")
	}
	if h == nil {
		panic("drain: handler must not be nil")
	}

	v := reflect.ValueOf(ch)
	if v.Kind() != reflect.Chan {
		panic(fmt.Sprintf("drain: Register requires a channel, got %T", ch))
	}
	if v.Type().ChanDir()&reflect.RecvDir == 0 {
		panic(fmt.Sprintf("drain: Register requires a receive-capable channel, got %T", ch))
	}
	if v.IsNil() {
		panic("drain: channel must not be nil")
	}

	info := r.next(name)
	r.slots = append(r.slots, Slot{
		SlotInfo: info,
		ch:       v,
		handler:  h,
	})
	return info.Index
}

// next returns the identity the next registration will receive.
func (r *Registry) next(name string) SlotInfo {
	idx := len(r.slots)
	if name == "" {
		name = fmt.Sprintf("slot-%d", idx)
	}
	return SlotInfo{Index: idx, Name: name}
}

// Len returns the number of registered slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// Slots returns the identities of all registered slots in index order.
func (r *Registry) Slots() []SlotInfo {
	out := make([]SlotInfo, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.SlotInfo
	}
	return out
}

// bind marks the registry as owned by an engine and freezes it.
func (r *Registry) bind() {
	if r.bound {
		panic("drain: registry is already bound to an engine")
	}
	r.bound = true
}

// Recv registers a typed channel. fn receives each message by value with
// its concrete type.
func Recv[T any](r *Registry, ch <-chan T, fn func(T)) int {
	return RecvNamed(r, "", ch, fn)
}

// RecvNamed is like [Recv] with a slot name.
func RecvNamed[T any](r *Registry, name string, ch <-chan T, fn func(T)) int {
	if fn == nil {
		panic("drain: handler must not be nil")
	}
	return r.RegisterNamed(name, ch, func(msg any) {
		// A nil interface message arrives as a nil any; hand fn the zero T.
		v, _ := msg.(T)
		fn(v)
	})
}
