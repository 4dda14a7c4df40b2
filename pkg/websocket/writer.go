package websocket

import (
	"context"
	"sync/atomic"
)

// OutboundFrame is one queued write.
type OutboundFrame struct {
	MsgType MessageType
	Buf     []byte
}

// Writer is the bounded outbound queue of a Session. It refuses frames while the
// session is not connected, so nothing queued for a dead socket leaks into the next one.
type Writer struct {
	queue     chan OutboundFrame
	policy    OverflowPolicy
	connected atomic.Bool
	dropped   atomic.Uint64
}

func NewWriter(capacity int, policy OverflowPolicy) *Writer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Writer{
		queue:  make(chan OutboundFrame, capacity),
		policy: policy,
	}
}

func (w *Writer) SetConnected(connected bool) {
	w.connected.Store(connected)
}

func (w *Writer) Connected() bool {
	return w.connected.Load()
}

// Send copies payload and queues it according to the overflow policy.
func (w *Writer) Send(ctx context.Context, msgType MessageType, payload []byte) bool {
	if !w.connected.Load() {
		return false
	}
	frame := OutboundFrame{MsgType: msgType, Buf: append([]byte(nil), payload...)}

	if w.policy == OverflowBlock {
		select {
		case w.queue <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case w.queue <- frame:
			return true
		default:
		}
		if w.policy != OverflowDropOldest {
			w.dropped.Add(1)
			return false
		}
		select {
		case <-w.queue:
			w.dropped.Add(1)
		default:
		}
	}
}

// Queue is read by the single goroutine that owns the connection.
func (w *Writer) Queue() <-chan OutboundFrame {
	return w.queue
}

// Drain discards every queued frame.
func (w *Writer) Drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}

func (w *Writer) Len() int {
	return len(w.queue)
}

// Dropped returns how many frames the overflow policy discarded.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}
