package future

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestStreamBroadcastsToCurrentWaiters(t *testing.T) {
	s := NewStream[int]()

	const n = 5
	var wg sync.WaitGroup
	results := make(chan int, n)
	waiters := make([]*Waiter[int], n)
	for i := range waiters {
		waiters[i] = NewWaiter[int]()
		s.Attach(waiters[i])
	}
	for _, w := range waiters {
		wg.Add(1)
		go func(w *Waiter[int]) {
			defer wg.Done()
			v, err := w.Wait(t.Context())
			if err == nil {
				results <- v
			}
		}(w)
	}

	assert.Equal(t, n, s.Resolve(42))
	wg.Wait()
	close(results)
	for v := range results {
		assert.Equal(t, 42, v)
	}
	assert.Zero(t, s.Len())
}

func TestStreamDoesNotRetain(t *testing.T) {
	s := NewStream[int]()
	assert.Equal(t, 0, s.Resolve(1))

	w := NewWaiter[int]()
	s.Attach(w)
	assert.False(t, w.Fired())

	assert.Equal(t, 1, s.Resolve(2))
	v, err := w.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStreamReject(t *testing.T) {
	s := NewStream[int]()
	boom := errors.New("boom")

	done := make(chan error, 1)
	w := NewWaiter[int]()
	s.Attach(w)
	go func() {
		_, err := w.Wait(t.Context())
		done <- err
	}()

	assert.Equal(t, 1, s.Reject(boom))
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, boom))
	case <-time.After(time.Second):
		t.Fatal("waiter not woken")
	}
}

func TestWaiterFirstResultWins(t *testing.T) {
	a, b := NewStream[string](), NewStream[string]()
	w := NewWaiter[string]()
	a.Attach(w)
	b.Attach(w)

	assert.Equal(t, 1, b.Resolve("b"))
	assert.Equal(t, 0, a.Resolve("a"))

	v, err := w.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Zero(t, a.Len())
}
