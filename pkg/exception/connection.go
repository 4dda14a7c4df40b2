package exception

import "github.com/yanun0323/errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNilTransport     = errors.New("connection: nil transport")
)
