package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"exstream/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	defaultWriteQueueSize = 1024
	defaultReadQueueSize  = 4096
)

// Option configures a Session.
type Option struct {
	Name   string
	Dialer Dialer

	Backoff        Backoff
	PingInterval   time.Duration
	WriteQueueSize int
	WriteOverflow  OverflowPolicy
	ReadQueueSize  int
	ReadOverflow   OverflowPolicy
	// PingPayload, when set, is written as a text frame instead of a ping control frame.
	PingPayload []byte

	// OnConnect runs after every successful dial, before frames are dispatched.
	// Payloads it sends are queued and written once it returns, so it must not
	// wait for responses. An error closes the connection and triggers a reconnect.
	OnConnect func(ctx context.Context) error
	// OnDisconnect runs after the connection ended and no more frames will be dispatched.
	OnDisconnect func(err error)
	// OnFrame receives data frames one at a time in arrival order.
	OnFrame func(ctx context.Context, frame Frame)

	// Marshal encodes payloads passed to Send. Defaults to sonic.
	Marshal func(v any) ([]byte, error)
}

// Session keeps one logical WebSocket connection alive, reconnecting with backoff.
type Session struct {
	opt       Option
	writer    *Writer
	connected atomic.Bool
	connects  atomic.Uint64
}

func NewSession(opt Option) (*Session, error) {
	if opt.Dialer == nil {
		return nil, exception.ErrWebSocketNilDialer
	}
	if opt.OnFrame == nil {
		return nil, errors.Wrap(exception.ErrWebSocketBadConfig, "nil frame handler")
	}
	if opt.Backoff.IsZero() {
		opt.Backoff = DefaultBackoff()
	}
	if opt.WriteQueueSize <= 0 {
		opt.WriteQueueSize = defaultWriteQueueSize
	}
	if opt.ReadQueueSize <= 0 {
		opt.ReadQueueSize = defaultReadQueueSize
	}
	if opt.Marshal == nil {
		opt.Marshal = sonic.ConfigFastest.Marshal
	}
	return &Session{
		opt:    opt,
		writer: NewWriter(opt.WriteQueueSize, opt.WriteOverflow),
	}, nil
}

// Connected reports whether a connection is currently established.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Connects returns how many connections were established so far.
func (s *Session) Connects() uint64 {
	return s.connects.Load()
}

// Send encodes payload and queues it as a text frame.
// []byte and string payloads are sent as they are.
func (s *Session) Send(ctx context.Context, payload any) error {
	var (
		buf []byte
		err error
	)
	switch p := payload.(type) {
	case []byte:
		buf = p
	case string:
		buf = []byte(p)
	default:
		buf, err = s.opt.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal payload").With("payload", payload)
		}
	}
	return s.SendMessage(ctx, MessageText, buf)
}

// SendMessage queues a raw frame.
func (s *Session) SendMessage(ctx context.Context, msgType MessageType, payload []byte) error {
	if !s.connected.Load() {
		return exception.ErrWebSocketNotConnected
	}
	if !s.writer.Send(ctx, msgType, payload) {
		if !s.connected.Load() {
			return exception.ErrWebSocketNotConnected
		}
		return exception.ErrWebSocketQueueFull
	}
	return nil
}

// Run starts the connection lifecycle and blocks until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := s.opt.Dialer.Dial(ctx)
		if err != nil {
			attempt++
			logs.Errorf("websocket %s: dial, attempt: %d, err: %+v", s.opt.Name, attempt, err)
			s.opt.Backoff.Sleep(ctx, attempt)
			continue
		}

		attempt = 0
		s.connects.Add(1)
		s.setConnected(true)
		logs.Infof("websocket %s: connected", s.opt.Name)

		err = s.runSession(ctx, conn)
		s.setConnected(false)
		logs.Infof("websocket %s: disconnected, dropped outbound: %d, err: %+v", s.opt.Name, s.writer.Dropped(), err)
		if s.opt.OnDisconnect != nil {
			s.opt.OnDisconnect(err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		attempt++
		s.opt.Backoff.Sleep(ctx, attempt)
	}
}

func (s *Session) setConnected(connected bool) {
	s.connected.Store(connected)
	s.writer.SetConnected(connected)
	if !connected {
		s.writer.Drain()
	}
}

func (s *Session) runSession(ctx context.Context, conn Conn) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := NewFrameQueue(s.opt.ReadQueueSize, s.opt.ReadOverflow)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		code, reason := CloseNormal, "session_end"
		if ctx.Err() != nil {
			code, reason = CloseGoingAway, "shutdown"
		}
		_ = conn.Close(code, reason)
		queue.Close()
		wg.Wait()
		if dropped := queue.Dropped(); dropped != 0 {
			logs.Errorf("websocket %s: session dropped %d inbound frames", s.opt.Name, dropped)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.readLoop(sessionCtx, conn, queue, errCh)
	}()

	// frames read before OnConnect returns wait in the queue
	if s.opt.OnConnect != nil {
		if err := s.opt.OnConnect(sessionCtx); err != nil {
			return errors.Wrap(err, "on connect")
		}
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.dispatch(sessionCtx, queue)
	}()

	pingType, pingPayload := MessagePing, []byte(nil)
	if len(s.opt.PingPayload) > 0 {
		pingType, pingPayload = MessageText, s.opt.PingPayload
	}
	var ping <-chan time.Time
	if s.opt.PingInterval > 0 {
		ticker := time.NewTicker(s.opt.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case frame := <-s.writer.Queue():
			if err := conn.Write(sessionCtx, frame.MsgType, frame.Buf); err != nil {
				return errors.Wrap(err, "write frame")
			}
		case <-ping:
			if err := conn.Write(sessionCtx, pingType, pingPayload); err != nil {
				return errors.Wrap(err, "write ping")
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn Conn, queue *FrameQueue, errCh chan<- error) {
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			errCh <- err
			return
		}
		if !msgType.IsData() || len(payload) == 0 {
			continue
		}
		if !queue.Push(Frame{MsgType: msgType, Payload: payload, RecvTsNano: time.Now().UnixNano()}) {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("websocket %s: drop inbound frame, queue full", s.opt.Name)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, queue *FrameQueue) {
	for {
		frame, ok := queue.Pop()
		if !ok {
			return
		}
		s.opt.OnFrame(ctx, frame)
	}
}
