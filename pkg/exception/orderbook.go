package exception

import "github.com/yanun0323/errors"

// Order book errors
var (
	// ErrOrderBookNotSubscribed is returned when an update arrives for a symbol without a book.
	ErrOrderBookNotSubscribed = errors.New("orderbook: symbol not subscribed")

	// ErrOrderBookSnapshotStale is returned once the resync attempts are exhausted.
	ErrOrderBookSnapshotStale = errors.New("orderbook: snapshot stale")

	ErrOrderBookSequenceGap      = errors.New("orderbook: sequence gap")
	ErrOrderBookChecksumMismatch = errors.New("orderbook: checksum mismatch")
	ErrOrderBookNilFetcher       = errors.New("orderbook: nil snapshot fetcher")
)
