package future

import (
	"context"
	"sync"
	"sync/atomic"
)

// Result is the outcome delivered to a waiter.
type Result[T any] struct {
	Value T
	Err   error
}

type source[T any] interface {
	Detach(w *Waiter[T])
}

// Waiter receives the first result delivered by any future or stream it is attached to.
type Waiter[T any] struct {
	ch    chan Result[T]
	fired atomic.Bool

	mu      sync.Mutex
	sources []source[T]
}

// NewWaiter creates an unattached waiter.
func NewWaiter[T any]() *Waiter[T] {
	return &Waiter[T]{
		ch: make(chan Result[T], 1),
	}
}

// Wait blocks until a result is delivered or ctx is done, then detaches from every source.
func (w *Waiter[T]) Wait(ctx context.Context) (T, error) {
	defer w.Release()

	select {
	case r := <-w.ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// C exposes the delivery channel for callers selecting on several things at once.
// Callers using C must call Release when done.
func (w *Waiter[T]) C() <-chan Result[T] {
	return w.ch
}

// Fired reports whether a result has been delivered.
func (w *Waiter[T]) Fired() bool {
	return w.fired.Load()
}

// Release detaches the waiter from all sources it was attached to.
func (w *Waiter[T]) Release() {
	w.mu.Lock()
	sources := w.sources
	w.sources = nil
	w.mu.Unlock()

	for _, s := range sources {
		s.Detach(w)
	}
}

func (w *Waiter[T]) deliver(r Result[T]) bool {
	if !w.fired.CompareAndSwap(false, true) {
		return false
	}
	w.ch <- r
	return true
}

func (w *Waiter[T]) track(s source[T]) {
	w.mu.Lock()
	w.sources = append(w.sources, s)
	w.mu.Unlock()
}
