package binance

import (
	"context"
	"strconv"

	"exstream/internal/exchange"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"

	"github.com/yanun0323/errors"
)

// FetchSnapshot loads the depth snapshot of symbol from /api/v3/depth.
func (e *Exchange) FetchSnapshot(ctx context.Context, symbol string) (orderbook.Snapshot, error) {
	id, err := e.MarketID(symbol)
	if err != nil {
		return orderbook.Snapshot{}, err
	}

	var (
		result depthSnapshot
		failed wireError
	)
	resp, err := e.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": id,
			"limit":  strconv.Itoa(e.cfg.SnapshotLimit),
		}).
		SetResult(&result).
		SetError(&failed).
		Get("/api/v3/depth")
	if err != nil {
		return orderbook.Snapshot{}, errors.Wrap(err, "get depth").With("symbol", symbol)
	}
	if resp.IsError() {
		return orderbook.Snapshot{}, errors.Wrapf(exception.ErrExchangeRequestFailed, "get depth, status: %d, code: %d, msg: %s", resp.StatusCode(), failed.Code, failed.Msg)
	}

	bids, err := exchange.ParseLevels(result.Bids)
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	asks, err := exchange.ParseLevels(result.Asks)
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	return orderbook.Snapshot{
		Bids:  bids,
		Asks:  asks,
		Nonce: result.LastUpdateID,
	}, nil
}
