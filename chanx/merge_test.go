package chanx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/drain"
)

func TestMerge_BasicFunctionality(t *testing.T) {
	ctx := context.Background()
	ch1 := make(chan int, 2)
	ch2 := make(chan int, 2)

	ch1 <- 1
	ch1 <- 2
	ch2 <- 3
	ch2 <- 4
	close(ch1)
	close(ch2)

	out := Merge(ctx, ch1, ch2)

	received := make([]int, 0, 4)
	for v := range out {
		received = append(received, v)
	}

	assert.ElementsMatch(t, []int{1, 2, 3, 4}, received)
}

func TestMerge_NoChannels(t *testing.T) {
	out := Merge[int](context.Background())

	// Should be closed immediately
	_, ok := <-out
	assert.False(t, ok)
}

func TestMerge_NilChannels(t *testing.T) {
	var ch1, ch2 chan int

	out := Merge(context.Background(), ch1, ch2)

	// Nil inputs are skipped, so there is nothing to wait for.
	_, ok := <-out
	assert.False(t, ok)
}

func TestMerge_MixedNilAndValidChannels(t *testing.T) {
	var ch1 chan int // nil
	ch2 := make(chan int, 1)
	ch2 <- 42
	close(ch2)

	out := Merge(context.Background(), ch1, ch2)

	val, ok := <-out
	require.True(t, ok)
	assert.Equal(t, 42, val)

	_, ok = <-out
	assert.False(t, ok)
}

func TestMerge_ClosedChannels(t *testing.T) {
	ch1 := make(chan int)
	ch2 := make(chan int)
	close(ch1)
	close(ch2)

	out := Merge(context.Background(), ch1, ch2)

	_, ok := <-out
	assert.False(t, ok)
}

func TestMerge_PreservesPerInputOrder(t *testing.T) {
	ch1 := make(chan int, 10)
	ch2 := make(chan int, 10)

	go func() {
		for i := 0; i < 10; i++ {
			ch1 <- i
			time.Sleep(time.Millisecond)
		}
		close(ch1)
	}()
	go func() {
		for i := 10; i < 20; i++ {
			ch2 <- i
			time.Sleep(time.Millisecond)
		}
		close(ch2)
	}()

	var low, high []int
	for v := range Merge(context.Background(), ch1, ch2) {
		if v < 10 {
			low = append(low, v)
		} else {
			high = append(high, v)
		}
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, low)
	assert.Equal(t, []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, high)
}

func TestMerge_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch1 := make(chan int)
	ch2 := make(chan int)

	out := Merge(ctx, ch1, ch2)

	// Cancel context before any values
	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output was not closed after cancellation")
	}
}

func TestMerge_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	never := make(chan int)
	out := Merge(ctx, never)

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("output was not closed after the deadline")
	}
}

func TestMergeWith_RoundRobin(t *testing.T) {
	a := make(chan string, 2)
	b := make(chan string, 2)
	a <- "a1"
	a <- "a2"
	b <- "b1"
	b <- "b2"
	close(a)
	close(b)

	out := MergeWith(context.Background(), []drain.Option{drain.WithFairness(drain.RoundRobin)}, a, b)

	var got []string
	for v := range out {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, got)
}

func TestMerge_ManyChannels(t *testing.T) {
	const numChannels = 50
	chs := make([]<-chan int, numChannels)
	for i := range chs {
		ch := make(chan int, 1)
		ch <- i
		close(ch)
		chs[i] = ch
	}

	var received []int
	for v := range Merge(context.Background(), chs...) {
		received = append(received, v)
	}

	require.Len(t, received, numChannels)
	for i := 0; i < numChannels; i++ {
		assert.Contains(t, received, i)
	}
}
