package router

// TopicKind classifies inbound frames and outbound subscriptions.
type TopicKind uint8

const (
	_topic_kind_beg TopicKind = iota
	TopicTrades
	TopicOrderBook
	TopicOrders
	TopicMyTrades
	TopicPositions
	TopicAuth
	TopicSubscription
	TopicError
	_topic_kind_end
)

func (k TopicKind) IsAvailable() bool {
	return k > _topic_kind_beg && k < _topic_kind_end
}

// IsPrivate reports whether subscribing to the topic requires authentication.
func (k TopicKind) IsPrivate() bool {
	switch k {
	case TopicOrders, TopicMyTrades, TopicPositions:
		return true
	default:
		return false
	}
}

func (k TopicKind) String() string {
	switch k {
	case TopicTrades:
		return "trades"
	case TopicOrderBook:
		return "orderbook"
	case TopicOrders:
		return "orders"
	case TopicMyTrades:
		return "mytrades"
	case TopicPositions:
		return "positions"
	case TopicAuth:
		return "auth"
	case TopicSubscription:
		return "subscription"
	case TopicError:
		return "error"
	default:
		return "unknown"
	}
}

// Mode tells how many resolutions a subscription expects.
type Mode uint8

const (
	// ModeStream subscriptions are resolved repeatedly and never complete.
	ModeStream Mode = iota
	// ModeOneShot subscriptions are resolved once and then forgotten.
	ModeOneShot
)

func (m Mode) String() string {
	if m == ModeOneShot {
		return "one-shot"
	}
	return "stream"
}
