// Package wstest provides in-memory websocket connections for tests.
package wstest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"exstream/pkg/websocket"
)

// Conn is an in-memory websocket.Conn. Frames pushed to Inbound are read by the session,
// text frames the session writes arrive on Written.
type Conn struct {
	Inbound chan []byte
	Written chan []byte

	closed chan struct{}
	once   sync.Once
}

func NewConn() *Conn {
	return &Conn{
		Inbound: make(chan []byte, 64),
		Written: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *Conn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case b, ok := <-c.Inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.MessageText, b, nil
	case <-c.closed:
		return 0, nil, io.EOF
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *Conn) Write(_ context.Context, msgType websocket.MessageType, payload []byte) error {
	if msgType != websocket.MessageText {
		return nil
	}
	select {
	case c.Written <- payload:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

func (c *Conn) Close(websocket.CloseCode, string) error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Push queues an inbound text frame.
func (c *Conn) Push(payload string) {
	c.Inbound <- []byte(payload)
}

// Drop ends the connection as if the peer went away.
func (c *Conn) Drop() {
	close(c.Inbound)
}

// Next returns the next frame written by the session.
func (c *Conn) Next(t testing.TB) string {
	t.Helper()
	return string(Recv(t, c.Written))
}

// Dialer hands out the connections sent to Conns, one per dial.
type Dialer struct {
	Conns chan *Conn
}

func NewDialer() *Dialer {
	return &Dialer{Conns: make(chan *Conn, 4)}
}

// Serve queues a fresh connection for the next dial and returns it.
func (d *Dialer) Serve() *Conn {
	c := NewConn()
	d.Conns <- c
	return c
}

func (d *Dialer) Dial(ctx context.Context) (websocket.Conn, error) {
	select {
	case c := <-d.Conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Recv reads one value from ch or fails the test after a second.
func Recv[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}
