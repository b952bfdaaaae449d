package chanx

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by [Closable.Send] when the channel has been closed.
var ErrClosed = errors.New("chanx: send on closed channel")

// ErrBuffFull is returned by [Closable.TrySend] when the buffer is full.
var ErrBuffFull = errors.New("chanx: buffer is full")

// Closable is the producer side of a drained channel. Close is idempotent
// and sends after Close return [ErrClosed] instead of panicking, so several
// producers can share one Closable and race to shut it down.
//
// Closing does not discard buffered values: a drain session keeps
// delivering them from [Closable.Chan] and retires the slot only once the
// buffer is empty.
type Closable[T any] struct {
	ch     chan T
	once   sync.Once
	closed chan struct{} // closed when Close() is called

	mu       sync.RWMutex // protects isClosed and serializes with Close
	isClosed bool

	// senders blocked outside the lock; Close waits for them before
	// closing ch.
	inflight sync.WaitGroup
}

// NewClosable creates a Closable channel with the given buffer capacity.
func NewClosable[T any](capacity int) *Closable[T] {
	return &Closable[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// offer attempts a non-blocking send under the read lock. sent reports
// whether v was queued; err is ErrClosed after Close. When block is set and
// the buffer is full, the caller is counted in flight and must call
// inflight.Done once it stops waiting.
func (c *Closable[T]) offer(v T, block bool) (sent bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return false, ErrClosed
	}
	select {
	case c.ch <- v:
		return true, nil
	default:
		if block {
			c.inflight.Add(1)
		}
		return false, nil
	}
}

// Send sends v, blocking while the buffer is full. It returns [ErrClosed]
// if the channel is or becomes closed.
func (c *Closable[T]) Send(v T) error {
	return c.SendContext(context.Background(), v)
}

// TrySend sends v without blocking. It returns [ErrBuffFull] when the
// buffer is full and [ErrClosed] after Close.
func (c *Closable[T]) TrySend(v T) error {
	sent, err := c.offer(v, false)
	if err != nil {
		return err
	}
	if !sent {
		return ErrBuffFull
	}
	return nil
}

// SendContext is like [Closable.Send] but also unblocks when ctx is
// canceled, returning the context error.
func (c *Closable[T]) SendContext(ctx context.Context, v T) error {
	sent, err := c.offer(v, true)
	if err != nil || sent {
		return err
	}
	defer c.inflight.Done()

	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrClosed
	}
}

// Close closes the underlying channel. Only the first call has an effect.
// It wakes blocked senders and waits for them to return before closing the
// channel readers see.
func (c *Closable[T]) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.isClosed = true
		c.mu.Unlock()

		close(c.closed)
		c.inflight.Wait()
		close(c.ch)
	})
}

// Chan returns the underlying channel for reading, suitable for
// [github.com/baxromumarov/drain.Recv].
func (c *Closable[T]) Chan() <-chan T {
	return c.ch
}

// Done returns a channel that is closed when [Closable.Close] is called.
func (c *Closable[T]) Done() <-chan struct{} {
	return c.closed
}

// Len returns the number of buffered values, or 0 once closed even though
// buffered values remain readable from [Closable.Chan].
func (c *Closable[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return 0
	}
	return len(c.ch)
}
