package okx

import (
	"context"

	"exstream/pkg/orderbook"
	"exstream/pkg/router"

	"github.com/yanun0323/errors"
)

// FetchSnapshot resubscribes the books channel of symbol and waits for the snapshot
// OKX pushes after a subscribe.
func (e *Exchange) FetchSnapshot(ctx context.Context, symbol string) (orderbook.Snapshot, error) {
	instID, err := InstID(symbol)
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SnapshotTimeout)
	defer cancel()

	arg := wireArg{Channel: channelBooks, InstID: instID}
	if err := e.public.Session().Send(ctx, wireRequest{Op: opUnsubscribe, Args: []wireArg{arg}}); err != nil {
		return orderbook.Snapshot{}, errors.Wrap(err, "send unsubscribe").With("symbol", symbol)
	}

	hash := snapshotHash(instID)
	p, err := e.public.Router().Subscribe(ctx, router.Request{
		Topic:   router.TopicOrderBook,
		Hashes:  []string{hash},
		Payload: wireRequest{Op: opSubscribe, Args: []wireArg{arg}},
		Mode:    router.ModeOneShot,
	})
	if err != nil {
		return orderbook.Snapshot{}, err
	}
	defer p.Cancel()

	snap, err := router.Wait[orderbook.Snapshot](ctx, p)
	if err != nil {
		// forget the request so the next attempt subscribes again
		_ = e.public.Router().Unsubscribe(ctx, hash, nil)
		return orderbook.Snapshot{}, err
	}
	return snap, nil
}
