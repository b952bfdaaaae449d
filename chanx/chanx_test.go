package chanx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baxromumarov/drain"
)

func TestSend(t *testing.T) {
	ch := make(chan int, 1) // buffered so Send doesn't block

	err := Send(context.Background(), ch, 12)
	assert.NoError(t, err)

	// Verify value was sent
	val := <-ch
	assert.Equal(t, 12, val)
}

func TestSend_ContextCanceled(t *testing.T) {
	ch := make(chan int) // unbuffered

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := Send(ctx, ch, 12)
	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestRecv(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "hi"
	close(ch)

	v, ok, err := Recv(context.Background(), ch)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hi", v)

	_, ok, err = Recv(context.Background(), ch)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRecv_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := Recv(ctx, make(chan int))
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTryRecv(t *testing.T) {
	ch := make(chan int, 1)

	_, st := TryRecv(ch)
	assert.Equal(t, drain.StatusEmpty, st)

	ch <- 4
	close(ch)

	v, st := TryRecv(ch)
	assert.Equal(t, drain.StatusMessage, st)
	assert.Equal(t, 4, v)

	v, st = TryRecv(ch)
	assert.Equal(t, drain.StatusClosed, st)
	assert.Zero(t, v)
}

func TestTryRecv_NilChannel(t *testing.T) {
	var ch chan int
	_, st := TryRecv(ch)
	assert.Equal(t, drain.StatusEmpty, st)
}
