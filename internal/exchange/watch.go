package exchange

import (
	"context"

	"exstream/pkg/cache"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
)

// WatchRecords waits for the next resolution of req, then returns the latest records of
// symbol from store, filtered by since and limit.
func WatchRecords[T cache.Record](ctx context.Context, client *router.Client, req router.Request, store cache.Cache[T], symbol string, since int64, limit int) ([]T, error) {
	if _, err := client.Watch(ctx, req); err != nil {
		return nil, err
	}
	limit = store.GetLimit(symbol, limit)
	return cache.FilterBySymbolSinceLimit(store.Values(), symbol, since, limit), nil
}

// WatchBook waits for the next published book of req and keeps limit levels per side.
func WatchBook(ctx context.Context, client *router.Client, req router.Request, limit int) (orderbook.OrderBook, error) {
	book, err := router.Watch[orderbook.OrderBook](ctx, client, req)
	if err != nil {
		return orderbook.OrderBook{}, err
	}
	return book.Limit(limit), nil
}
