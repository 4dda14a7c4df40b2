package cache

import "sync"

// Plain is a FIFO cache: once full, every append evicts the oldest record.
type Plain[T Record] struct {
	mu     sync.RWMutex
	ring   ring[T]
	counts map[string]int
}

// NewPlain creates a Plain cache holding at most capacity records.
func NewPlain[T Record](capacity int) *Plain[T] {
	return &Plain[T]{
		ring:   newRing[T](capacityOrDefault(capacity)),
		counts: make(map[string]int),
	}
}

func (c *Plain[T]) Append(record T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ring.full() {
		_, evicted := c.ring.shift()
		c.decrease(evicted.GetSymbol())
	}
	c.ring.push(record)
	c.counts[record.GetSymbol()]++
}

func (c *Plain[T]) decrease(symbol string) {
	if c.counts[symbol] <= 1 {
		delete(c.counts, symbol)
		return
	}
	c.counts[symbol]--
}

// Values returns a copy of the stored records, oldest first.
func (c *Plain[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.values()
}

func (c *Plain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.len()
}

func (c *Plain[T]) Cap() int {
	return len(c.ring.buf)
}

// GetLimit returns min(limit, stored records of symbol). An empty symbol counts every record.
func (c *Plain[T]) GetLimit(symbol string, limit int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := c.ring.len()
	if symbol != "" {
		count = c.counts[symbol]
	}
	return limitOf(count, limit)
}

func (c *Plain[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ring.reset()
	clear(c.counts)
}
