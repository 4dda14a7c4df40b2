package binance

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"exstream/internal/adapter"
	"exstream/internal/exchange"
	"exstream/pkg/cache"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/yanun0323/errors"
)

const (
	DefaultWSURL         = "wss://stream.binance.com:9443/ws"
	DefaultRESTURL       = "https://api.binance.com"
	DefaultSnapshotLimit = 1000
)

// Config configures the public spot streams.
type Config struct {
	WSURL         string
	RESTURL       string
	SnapshotLimit int
	Capacity      exchange.Capacity
	Session       websocket.Option
	Hub           *router.Hub

	// Depth, MaxPending and MaxResyncAttempts are passed to the order-book engine.
	Depth             int
	MaxPending        int
	MaxResyncAttempts int
}

// Exchange serves Binance spot trades and order books over one socket.
type Exchange struct {
	cfg  Config
	conn *exchange.Connection
	rest *resty.Client

	requestID atomic.Int64

	mu      sync.Mutex
	acks    map[int64]string // request id -> subscribe hash
	symbols map[string]string // market id -> symbol
}

func New(ctx context.Context, cfg Config) (*Exchange, error) {
	if cfg.WSURL == "" {
		cfg.WSURL = DefaultWSURL
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = DefaultRESTURL
	}
	if cfg.SnapshotLimit <= 0 {
		cfg.SnapshotLimit = DefaultSnapshotLimit
	}

	e := &Exchange{
		cfg:     cfg,
		rest:    resty.New().SetBaseURL(cfg.RESTURL).SetJSONUnmarshaler(sonic.ConfigFastest.Unmarshal),
		acks:    make(map[int64]string),
		symbols: make(map[string]string),
	}

	opt := cfg.Session
	if opt.Name == "" {
		opt.Name = "binance"
	}
	onConnect := opt.OnConnect
	opt.OnConnect = func(ctx context.Context) error {
		e.mu.Lock()
		clear(e.acks)
		e.mu.Unlock()
		if onConnect != nil {
			return onConnect(ctx)
		}
		return nil
	}

	conn, err := exchange.NewConnection(exchange.Config{
		Name:     opt.Name,
		URL:      cfg.WSURL,
		Session:  opt,
		Handler:  exchange.FrameHandlerFunc(e.HandleFrame),
		Capacity: cfg.Capacity,
		Hub:      cfg.Hub,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.EnableBooks(ctx, orderbook.Config{
		Sequencer:         orderbook.Consecutive{},
		Fetcher:           e,
		Depth:             cfg.Depth,
		MaxPending:        cfg.MaxPending,
		MaxResyncAttempts: cfg.MaxResyncAttempts,
	}); err != nil {
		return nil, err
	}
	e.conn = conn
	return e, nil
}

func (e *Exchange) Connection() *exchange.Connection {
	return e.conn
}

// Run keeps the socket connected until ctx is done.
func (e *Exchange) Run(ctx context.Context) error {
	return e.conn.Run(ctx)
}

// MarketID converts "BTC/USDT" to "BTCUSDT" and remembers the mapping for inbound frames.
func (e *Exchange) MarketID(symbol string) (string, error) {
	base, quote, ok := adapter.SplitSymbol(symbol)
	if !ok {
		return "", errors.Wrapf(exception.ErrExchangeUnknownMarket, "symbol: %s", symbol)
	}
	id := strings.ToUpper(base + quote)

	e.mu.Lock()
	e.symbols[id] = symbol
	e.mu.Unlock()
	return id, nil
}

func (e *Exchange) symbolOf(marketID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.symbols[marketID]
	return s, ok
}

func tradesHash(symbol string) string {
	return "trades:" + symbol
}

func tradeStream(marketID string) string {
	return strings.ToLower(marketID) + "@trade"
}

func depthStream(marketID string) string {
	return strings.ToLower(marketID) + "@depth@100ms"
}

func (e *Exchange) request(method string, streams []string) wireRequest {
	return wireRequest{Method: method, Params: streams, ID: e.requestID.Add(1)}
}

// subscribe builds the SUBSCRIBE payload of subscribeHash, nil when it was already sent.
// The request id is remembered so an error reply rejects the subscription.
func (e *Exchange) subscribe(subscribeHash string, streams []string) any {
	if e.conn.Router().Subscribed(subscribeHash) {
		return nil
	}
	req := e.request(methodSubscribe, streams)
	e.mu.Lock()
	e.acks[req.ID] = subscribeHash
	e.mu.Unlock()
	return req
}

// WatchTrades waits for the next trades of symbol and returns the cached window.
func (e *Exchange) WatchTrades(ctx context.Context, symbol string, since int64, limit int) ([]adapter.Trade, error) {
	id, err := e.MarketID(symbol)
	if err != nil {
		return nil, err
	}
	stream := tradeStream(id)
	hashes := []string{tradesHash(symbol)}
	req := router.Request{
		Topic:         router.TopicTrades,
		Hashes:        hashes,
		SubscribeHash: stream,
		Payload:       e.subscribe(stream, []string{stream}),
	}
	return exchange.WatchRecords[adapter.Trade](ctx, e.conn.Router(), req, e.conn.Trades(symbol), symbol, since, limit)
}

// WatchTradesForSymbols subscribes to several symbols with one request and returns the
// cached window of whichever symbol traded first.
func (e *Exchange) WatchTradesForSymbols(ctx context.Context, symbols []string, since int64, limit int) ([]adapter.Trade, error) {
	if len(symbols) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "no symbols")
	}
	streams := make([]string, 0, len(symbols))
	hashes := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		id, err := e.MarketID(symbol)
		if err != nil {
			return nil, err
		}
		streams = append(streams, tradeStream(id))
		hashes = append(hashes, tradesHash(symbol))
	}
	subHash := strings.Join(streams, ",")

	p, err := e.conn.Router().Subscribe(ctx, router.Request{
		Topic:         router.TopicTrades,
		Hashes:        hashes,
		SubscribeHash: subHash,
		Payload:       e.subscribe(subHash, streams),
	})
	if err != nil {
		return nil, err
	}
	trades, err := router.Wait[[]adapter.Trade](ctx, p)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	symbol := trades[0].Symbol
	store := e.conn.Trades(symbol)
	return cache.FilterBySymbolSinceLimit(store.Values(), symbol, since, store.GetLimit(symbol, limit)), nil
}

// UnwatchTrades unsubscribes the trade stream of symbol and drops its cache.
func (e *Exchange) UnwatchTrades(ctx context.Context, symbol string) error {
	id, err := e.MarketID(symbol)
	if err != nil {
		return err
	}
	e.conn.DropTrades(symbol)
	stream := tradeStream(id)
	return e.conn.Router().Unsubscribe(ctx, stream, e.request(methodUnsubscribe, []string{stream}))
}

// WatchOrderBook waits for the next update of symbol's book and keeps limit levels.
func (e *Exchange) WatchOrderBook(ctx context.Context, symbol string, limit int) (orderbook.OrderBook, error) {
	id, err := e.MarketID(symbol)
	if err != nil {
		return orderbook.OrderBook{}, err
	}
	e.conn.Books().Subscribe(symbol)

	stream := depthStream(id)
	hashes := []string{orderbook.Hash(symbol)}
	req := router.Request{
		Topic:         router.TopicOrderBook,
		Hashes:        hashes,
		SubscribeHash: stream,
		Payload:       e.subscribe(stream, []string{stream}),
	}
	return exchange.WatchBook(ctx, e.conn.Router(), req, limit)
}

// UnwatchOrderBook unsubscribes the depth stream and drops the book.
func (e *Exchange) UnwatchOrderBook(ctx context.Context, symbol string) error {
	id, err := e.MarketID(symbol)
	if err != nil {
		return err
	}
	e.conn.Books().Unsubscribe(symbol)
	stream := depthStream(id)
	return e.conn.Router().Unsubscribe(ctx, stream, e.request(methodUnsubscribe, []string{stream}))
}
