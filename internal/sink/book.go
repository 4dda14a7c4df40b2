package sink

import (
	"context"
	"strconv"
	"sync"

	"exstream/pkg/orderbook"

	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
)

// RedisClient is the Redis command BookWriter needs.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// RedisHash adapts *redis.Client to RedisClient.
type RedisHash struct {
	client *redis.Client
}

func NewRedisHash(client *redis.Client) *RedisHash {
	return &RedisHash{client: client}
}

func (r *RedisHash) HSet(ctx context.Context, key string, values ...any) error {
	return r.client.HSet(ctx, key, values...).Err()
}

type topOfBook struct {
	bid string
	ask string
}

// BookWriter stores the best bid and ask of every book in a Redis hash:
//
//	key:    book:{exchange}:{symbol}
//	fields: bid, ask, ts, nonce
//
// A book whose top did not change since the last write is skipped.
type BookWriter struct {
	client   RedisClient
	exchange string

	mu   sync.Mutex
	last map[string]topOfBook
}

func NewBookWriter(client RedisClient, exchange string) *BookWriter {
	return &BookWriter{
		client:   client,
		exchange: exchange,
		last:     make(map[string]topOfBook),
	}
}

// Key returns the Redis key of symbol.
func (w *BookWriter) Key(symbol string) string {
	return "book:" + w.exchange + ":" + symbol
}

// Write stores the top of book and reports whether a command was sent.
func (w *BookWriter) Write(ctx context.Context, book orderbook.OrderBook) (bool, error) {
	top := topOfBook{bid: "0", ask: "0"}
	if bid, ok := book.BestBid(); ok {
		top.bid = bid.Price.String()
	}
	if ask, ok := book.BestAsk(); ok {
		top.ask = ask.Price.String()
	}

	key := w.Key(book.Symbol)
	w.mu.Lock()
	if prev, ok := w.last[key]; ok && prev == top {
		w.mu.Unlock()
		return false, nil
	}
	w.last[key] = top
	w.mu.Unlock()

	err := w.client.HSet(ctx, key,
		"bid", top.bid,
		"ask", top.ask,
		"ts", strconv.FormatInt(book.Timestamp, 10),
		"nonce", strconv.FormatInt(book.Nonce, 10),
	)
	if err != nil {
		w.mu.Lock()
		delete(w.last, key)
		w.mu.Unlock()
		return false, errors.Wrap(err, "hset book").With("key", key)
	}
	return true, nil
}
