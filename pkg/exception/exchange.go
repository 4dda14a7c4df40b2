package exception

import "github.com/yanun0323/errors"

var (
	ErrExchangeUnknownMarket     = errors.New("exchange: unknown market")
	ErrExchangeRequestFailed     = errors.New("exchange: request failed")
	ErrExchangeMissingCredential = errors.New("exchange: missing credential")
	ErrExchangeBooksDisabled     = errors.New("exchange: order books disabled")
)
