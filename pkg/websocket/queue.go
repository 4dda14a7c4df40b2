package websocket

import "sync"

// FrameQueue is a bounded FIFO of inbound frames between the socket reader and the
// frame handler. head and next count frames ever popped and pushed.
type FrameQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf     []Frame
	head    uint64
	next    uint64
	policy  OverflowPolicy
	closed  bool
	dropped uint64
}

func NewFrameQueue(capacity int, policy OverflowPolicy) *FrameQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &FrameQueue{
		buf:    make([]Frame, capacity),
		policy: policy,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

func (q *FrameQueue) slot(seq uint64) *Frame {
	return &q.buf[seq%uint64(len(q.buf))]
}

func (q *FrameQueue) len() int {
	return int(q.next - q.head)
}

// Push enqueues frame. A full queue blocks, evicts the oldest frame or rejects frame,
// as the overflow policy says. Push on a closed queue returns false.
func (q *FrameQueue) Push(frame Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.closed && q.len() == len(q.buf) {
		switch q.policy {
		case OverflowBlock:
			q.notFull.Wait()
			continue
		case OverflowDropOldest:
			*q.slot(q.head) = Frame{}
			q.head++
		default:
			q.dropped++
			return false
		}
		q.dropped++
	}
	if q.closed {
		return false
	}

	*q.slot(q.next) = frame
	q.next++
	q.notEmpty.Signal()
	return true
}

// Pop blocks until a frame is queued. It returns false once the queue is closed.
func (q *FrameQueue) Pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.len() == 0 {
		if q.closed {
			return Frame{}, false
		}
		q.notEmpty.Wait()
	}
	p := q.slot(q.head)
	frame := *p
	*p = Frame{}
	q.head++
	q.notFull.Signal()
	return frame, true
}

// Close discards pending frames and wakes every blocked Push and Pop.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	clear(q.buf)
	q.head, q.next = 0, 0
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len()
}

// Dropped returns how many frames the overflow policy discarded.
func (q *FrameQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
