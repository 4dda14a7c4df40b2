package future

import (
	"context"
	"sync"
)

// Stream broadcasts each result to the waiters attached at that moment.
// Nothing is retained: a waiter attached after a broadcast waits for the next one.
type Stream[T any] struct {
	mu      sync.Mutex
	waiters map[*Waiter[T]]struct{}
}

// NewStream creates a stream without waiters.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		waiters: make(map[*Waiter[T]]struct{}),
	}
}

// Attach registers w for the next broadcast.
func (s *Stream[T]) Attach(w *Waiter[T]) {
	s.mu.Lock()
	s.waiters[w] = struct{}{}
	s.mu.Unlock()
	w.track(s)
}

// Detach removes w.
func (s *Stream[T]) Detach(w *Waiter[T]) {
	s.mu.Lock()
	delete(s.waiters, w)
	s.mu.Unlock()
}

// Resolve wakes every attached waiter with v and returns how many received it.
func (s *Stream[T]) Resolve(v T) int {
	return s.broadcast(Result[T]{Value: v})
}

// Reject wakes every attached waiter with err and returns how many received it.
func (s *Stream[T]) Reject(err error) int {
	return s.broadcast(Result[T]{Err: err})
}

func (s *Stream[T]) broadcast(r Result[T]) int {
	s.mu.Lock()
	if len(s.waiters) == 0 {
		s.mu.Unlock()
		return 0
	}
	waiters := make([]*Waiter[T], 0, len(s.waiters))
	for w := range s.waiters {
		waiters = append(waiters, w)
	}
	clear(s.waiters)
	s.mu.Unlock()

	woken := 0
	for _, w := range waiters {
		if w.deliver(r) {
			woken++
		}
	}
	return woken
}

// Wait attaches a fresh waiter and blocks for the next broadcast.
func (s *Stream[T]) Wait(ctx context.Context) (T, error) {
	w := NewWaiter[T]()
	s.Attach(w)
	return w.Wait(ctx)
}

// Len returns the number of attached waiters.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}
