package exception

import "github.com/yanun0323/errors"

// WS errors
var (
	ErrWebSocketNilDialer    = errors.New("websocket: nil dialer")
	ErrWebSocketBadConfig    = errors.New("websocket: invalid config")
	ErrWebSocketNotConnected = errors.New("websocket: not connected")
	ErrWebSocketQueueFull    = errors.New("websocket: outbound queue full")
	ErrWebSocketProtocol     = errors.New("websocket: protocol error")
)
