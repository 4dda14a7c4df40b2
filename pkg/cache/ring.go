package cache

// ring is a fixed-capacity buffer addressed by monotonically increasing sequence numbers.
type ring[T any] struct {
	buf  []T
	head uint64
	next uint64
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) len() int {
	return int(r.next - r.head)
}

func (r *ring[T]) full() bool {
	return r.len() == len(r.buf)
}

func (r *ring[T]) slot(seq uint64) *T {
	return &r.buf[seq%uint64(len(r.buf))]
}

// shift removes and returns the oldest element.
func (r *ring[T]) shift() (uint64, T) {
	var zero T
	seq := r.head
	p := r.slot(seq)
	v := *p
	*p = zero
	r.head++
	return seq, v
}

// push appends v and returns its sequence number. The ring must not be full.
func (r *ring[T]) push(v T) uint64 {
	seq := r.next
	*r.slot(seq) = v
	r.next++
	return seq
}

func (r *ring[T]) values() []T {
	out := make([]T, 0, r.len())
	for seq := r.head; seq < r.next; seq++ {
		out = append(out, *r.slot(seq))
	}
	return out
}

func (r *ring[T]) reset() {
	clear(r.buf)
	r.head, r.next = 0, 0
}
