package future

import (
	"context"
	"slices"
	"sync"
)

// Future is a value that settles exactly once. Waiters attached after
// settlement receive the stored result immediately.
type Future[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	result  Result[T]
	waiters []*Waiter[T]
}

// New creates an unsettled future.
func New[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

// Resolve settles the future with v. It returns false when already settled.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(Result[T]{Value: v})
}

// Reject settles the future with err. It returns false when already settled.
func (f *Future[T]) Reject(err error) bool {
	return f.settle(Result[T]{Err: err})
}

func (f *Future[T]) settle(r Result[T]) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.result = r
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		w.deliver(r)
	}
	return true
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether Resolve or Reject has been called.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled result, ok is false while unsettled.
func (f *Future[T]) Result() (Result[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.settled
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		r, _ := f.Result()
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Attach registers w to receive the result.
func (f *Future[T]) Attach(w *Waiter[T]) {
	f.mu.Lock()
	if f.settled {
		r := f.result
		f.mu.Unlock()
		w.deliver(r)
		return
	}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	w.track(f)
}

// Detach removes w without delivering anything.
func (f *Future[T]) Detach(w *Waiter[T]) {
	f.mu.Lock()
	f.waiters = slices.DeleteFunc(f.waiters, func(x *Waiter[T]) bool { return x == w })
	f.mu.Unlock()
}
