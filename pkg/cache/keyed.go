package cache

import "sync"

type key struct {
	symbol string
	id     string
}

func keyOf(r Record) (key, bool) {
	id := r.GetID()
	if id == "" {
		return key{}, false
	}
	return key{symbol: r.GetSymbol(), id: id}, true
}

// Keyed is a FIFO cache indexed by (symbol, id). Appending a record whose key is
// already stored replaces it where it sits, without growing the cache.
// Records with an empty id are appended without indexing.
type Keyed[T Record] struct {
	mu     sync.RWMutex
	ring   ring[T]
	index  map[key]uint64
	counts map[string]int
}

// NewKeyed creates a Keyed cache holding at most capacity records.
func NewKeyed[T Record](capacity int) *Keyed[T] {
	return &Keyed[T]{
		ring:   newRing[T](capacityOrDefault(capacity)),
		index:  make(map[key]uint64),
		counts: make(map[string]int),
	}
}

func (c *Keyed[T]) Append(record T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, hasKey := keyOf(record)
	if hasKey {
		if seq, ok := c.index[k]; ok {
			*c.ring.slot(seq) = record
			return
		}
	}

	if c.ring.full() {
		seq, evicted := c.ring.shift()
		if ek, ok := keyOf(evicted); ok && c.index[ek] == seq {
			delete(c.index, ek)
		}
		c.decrease(evicted.GetSymbol())
	}

	seq := c.ring.push(record)
	if hasKey {
		c.index[k] = seq
	}
	c.counts[record.GetSymbol()]++
}

func (c *Keyed[T]) decrease(symbol string) {
	if c.counts[symbol] <= 1 {
		delete(c.counts, symbol)
		return
	}
	c.counts[symbol]--
}

// Values returns a copy of the stored records, oldest first.
func (c *Keyed[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.values()
}

func (c *Keyed[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ring.len()
}

func (c *Keyed[T]) Cap() int {
	return len(c.ring.buf)
}

// GetLimit returns min(limit, stored records of symbol). An empty symbol counts every record.
func (c *Keyed[T]) GetLimit(symbol string, limit int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := c.ring.len()
	if symbol != "" {
		count = c.counts[symbol]
	}
	return limitOf(count, limit)
}

func (c *Keyed[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ring.reset()
	clear(c.index)
	clear(c.counts)
}
