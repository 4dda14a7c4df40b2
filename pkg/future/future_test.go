package future

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestFutureSettlesOnce(t *testing.T) {
	f := New[int]()
	require.False(t, f.Settled())

	assert.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("late")))

	v, err := f.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestFutureRejectReachesAllWaiters(t *testing.T) {
	f := New[string]()
	boom := errors.New("boom")

	w1, w2 := NewWaiter[string](), NewWaiter[string]()
	f.Attach(w1)
	f.Attach(w2)
	require.True(t, f.Reject(boom))

	_, err := w1.Wait(t.Context())
	assert.True(t, errors.Is(err, boom))
	_, err = w2.Wait(t.Context())
	assert.True(t, errors.Is(err, boom))
}

func TestFutureLateAttachGetsResult(t *testing.T) {
	f := New[int]()
	f.Resolve(7)

	w := NewWaiter[int]()
	f.Attach(w)
	v, err := w.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFutureWaitContextCanceled(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.Settled())
}

func TestWaiterDetachesOnCancel(t *testing.T) {
	f := New[int]()
	w := NewWaiter[int]()
	f.Attach(w)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := w.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	f.mu.Lock()
	n := len(f.waiters)
	f.mu.Unlock()
	assert.Zero(t, n)
}
