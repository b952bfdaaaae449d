package chanx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/drain"
)

func TestClosable_Send(t *testing.T) {
	c := NewClosable[int](1)
	err := c.Send(-12)
	assert.NoError(t, err)

	err = c.TrySend(900)
	assert.EqualError(t, err, ErrBuffFull.Error())
}

func TestClosable_TrySend(t *testing.T) {
	c := NewClosable[int](2)
	assert.NoError(t, c.TrySend(1), "first try send error")
	assert.NoError(t, c.TrySend(2), "second try send error")
	assert.ErrorIs(t, c.TrySend(3), ErrBuffFull)
}

func TestClosable_TrySendWithClose(t *testing.T) {
	c := NewClosable[int](2)
	assert.NoError(t, c.TrySend(1))
	c.Close() // next sends must return ErrClosed

	assert.ErrorIs(t, c.TrySend(2), ErrClosed)
	assert.ErrorIs(t, c.Send(3), ErrClosed)
}

func TestClosable_CloseIsIdempotent(t *testing.T) {
	c := NewClosable[int](0)
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestClosable_SendUnblocksOnClose(t *testing.T) {
	c := NewClosable[int](0)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Send(1) }()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock on Close")
	}
}

func TestClosable_SendContextCanceled(t *testing.T) {
	c := NewClosable[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, c.SendContext(ctx, 1), context.DeadlineExceeded)
}

func TestClosable_LenAfterClose(t *testing.T) {
	c := NewClosable[int](10)

	require.NoError(t, c.Send(1))
	require.NoError(t, c.Send(2))
	require.NoError(t, c.Send(3))

	assert.Equal(t, 3, c.Len(), "Len should reflect buffered items before close")

	c.Close()

	// After close, Len returns 0 even though items are still drainable.
	assert.Equal(t, 0, c.Len(), "Len should return 0 after close")
}

func TestClosable_DrainedAfterClose(t *testing.T) {
	c := NewClosable[string](4)
	require.NoError(t, c.Send("a"))
	require.NoError(t, c.Send("b"))
	c.Close()

	var got []string
	r := drain.NewRegistry()
	drain.Recv(r, c.Chan(), func(s string) { got = append(got, s) })
	drain.Run(r)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestClosable_ConcurrentSendAndClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := NewClosable[int](1)
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if err := c.Send(j); err != nil {
						assert.ErrorIs(t, err, ErrClosed)
						return
					}
				}
			}()
		}
		go func() {
			time.Sleep(time.Millisecond)
			c.Close()
		}()

		Drain(c.Chan())
		wg.Wait()
	}
}
