package websocket

// Frame is an inbound data message.
type Frame struct {
	// MsgType is the WebSocket message type of the payload.
	MsgType MessageType
	// Payload is the message body. The receiver owns it.
	Payload []byte
	// RecvTsNano is the wall clock time the frame was read.
	RecvTsNano int64
}
