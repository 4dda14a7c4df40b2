package orderbook

import "github.com/shopspring/decimal"

// SyncState is the reconciliation state of a book.
type SyncState uint8

const (
	// StateUnsynced has no usable book and no buffered deltas.
	StateUnsynced SyncState = iota
	// StateBuffering holds deltas while a snapshot is awaited.
	StateBuffering
	// StateSynced has a book consistent with the last applied nonce.
	StateSynced
)

func (s SyncState) String() string {
	switch s {
	case StateUnsynced:
		return "unsynced"
	case StateBuffering:
		return "buffering"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Snapshot is a full book image at Nonce.
type Snapshot struct {
	Bids      []Level
	Asks      []Level
	Nonce     int64
	Timestamp int64
	// Checksum is verified after the snapshot is applied when set.
	Checksum *int64
}

// Delta is an incremental update. Levels with zero size are removals.
type Delta struct {
	Bids       []Level
	Asks       []Level
	FirstNonce int64
	Nonce      int64
	PrevNonce  int64
	Timestamp  int64
	// Checksum is verified after the delta is applied when set.
	Checksum *int64
}

// OrderBook is an immutable copy of a book handed to readers.
type OrderBook struct {
	Symbol    string
	Bids      []Level
	Asks      []Level
	Nonce     int64
	Timestamp int64
	State     SyncState
}

// Limit returns a copy keeping at most n levels per side. A non-positive n keeps all.
func (b OrderBook) Limit(n int) OrderBook {
	if n <= 0 {
		return b
	}
	if len(b.Bids) > n {
		b.Bids = b.Bids[:n:n]
	}
	if len(b.Asks) > n {
		b.Asks = b.Asks[:n:n]
	}
	return b
}

func (b OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

func (b OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Spread returns best ask minus best bid.
func (b OrderBook) Spread() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}
