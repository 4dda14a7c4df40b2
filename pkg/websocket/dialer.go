package websocket

import (
	"context"
	"net/http"
	"time"

	"exstream/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReadLimit        = 32 << 20
	closeWriteTimeout       = time.Second
)

// GorillaDialer dials URL with gorilla/websocket.
type GorillaDialer struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

func NewDialer(url string) *GorillaDialer {
	return &GorillaDialer{
		URL:              url,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadLimit:        DefaultReadLimit,
	}
}

func (d *GorillaDialer) Dial(ctx context.Context) (Conn, error) {
	if d.URL == "" {
		return nil, errors.Wrap(exception.ErrWebSocketBadConfig, "empty url")
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial websocket").With("url", d.URL)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn *websocket.Conn
}

func (c *gorillaConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, nil, err
	}
	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *gorillaConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	switch msgType {
	case MessagePing, MessagePong, MessageClose:
		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(closeWriteTimeout)
		}
		return c.conn.WriteControl(int(msgType), payload, deadline)
	case MessageText, MessageBinary:
		if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
			return err
		}
		return c.conn.WriteMessage(int(msgType), payload)
	default:
		return errors.Wrapf(exception.ErrWebSocketProtocol, "message type: %d", msgType)
	}
}

func (c *gorillaConn) Close(code CloseCode, reason string) error {
	msg := websocket.FormatCloseMessage(int(code), reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	return c.conn.Close()
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
