package okx

import (
	"context"
	"strings"
	"time"

	"exstream/internal/adapter"
	"exstream/internal/credential"
	"exstream/internal/exchange"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/websocket"

	"github.com/yanun0323/errors"
)

const (
	DefaultPublicURL  = "wss://ws.okx.com:8443/ws/v5/public"
	DefaultPrivateURL = "wss://ws.okx.com:8443/ws/v5/private"

	defaultPingInterval    = 20 * time.Second
	defaultSnapshotTimeout = 10 * time.Second
)

// Config configures the public and private sockets. The private socket is only opened
// when Signer is set.
type Config struct {
	PublicURL  string
	PrivateURL string
	Signer     *credential.Signer
	Capacity   exchange.Capacity
	Hub        *router.Hub

	Public  websocket.Option
	Private websocket.Option

	// Depth, MaxPending and MaxResyncAttempts are passed to the order-book engine.
	Depth             int
	MaxPending        int
	MaxResyncAttempts int
	SnapshotTimeout   time.Duration

	// Now is the login clock. Defaults to time.Now.
	Now func() time.Time
}

// Exchange serves OKX public books and trades, and private orders and positions.
type Exchange struct {
	cfg     Config
	public  *exchange.Connection
	private *exchange.Connection
}

func New(ctx context.Context, cfg Config) (*Exchange, error) {
	if cfg.PublicURL == "" {
		cfg.PublicURL = DefaultPublicURL
	}
	if cfg.PrivateURL == "" {
		cfg.PrivateURL = DefaultPrivateURL
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = defaultSnapshotTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Exchange{cfg: cfg}
	public, err := exchange.NewConnection(exchange.Config{
		Name:     "okx-public",
		URL:      cfg.PublicURL,
		Session:  withKeepalive(cfg.Public),
		Handler:  exchange.FrameHandlerFunc(e.HandleFrame),
		Capacity: cfg.Capacity,
		Hub:      cfg.Hub,
	})
	if err != nil {
		return nil, err
	}
	if err := public.EnableBooks(ctx, orderbook.Config{
		Sequencer:         orderbook.Previous{},
		Fetcher:           e,
		Checksum:          orderbook.InterleavedCRC32,
		ChecksumDepth:     orderbook.DefaultChecksumDepth,
		Depth:             cfg.Depth,
		MaxPending:        cfg.MaxPending,
		MaxResyncAttempts: cfg.MaxResyncAttempts,
	}); err != nil {
		return nil, err
	}
	e.public = public

	if cfg.Signer != nil {
		private, err := exchange.NewConnection(exchange.Config{
			Name:     "okx-private",
			URL:      cfg.PrivateURL,
			Session:  withKeepalive(cfg.Private),
			Handler:  exchange.FrameHandlerFunc(e.HandleFrame),
			Login:    e.login,
			Capacity: cfg.Capacity,
			Hub:      cfg.Hub,
		})
		if err != nil {
			return nil, err
		}
		e.private = private
	}
	return e, nil
}

// withKeepalive makes the session send the text "ping" OKX expects.
func withKeepalive(opt websocket.Option) websocket.Option {
	if opt.PingInterval <= 0 {
		opt.PingInterval = defaultPingInterval
	}
	if len(opt.PingPayload) == 0 {
		opt.PingPayload = []byte("ping")
	}
	return opt
}

func (e *Exchange) Public() *exchange.Connection {
	return e.public
}

// Private returns the private connection, nil without credentials.
func (e *Exchange) Private() *exchange.Connection {
	return e.private
}

// Run keeps both sockets connected until ctx is done.
func (e *Exchange) Run(ctx context.Context) error {
	if e.private == nil {
		return e.public.Run(ctx)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- e.public.Run(ctx) }()
	go func() { errCh <- e.private.Run(ctx) }()
	err := <-errCh
	if err2 := <-errCh; err == nil {
		err = err2
	}
	return err
}

func (e *Exchange) privateConnection() (*exchange.Connection, error) {
	if e.private == nil {
		return nil, errors.Wrap(exception.ErrExchangeMissingCredential, "okx private socket")
	}
	return e.private, nil
}

// InstID converts "BTC/USDT" to "BTC-USDT" and "BTC/USDT:USDT" to "BTC-USDT-SWAP".
func InstID(symbol string) (string, error) {
	pair, settle, swap := strings.Cut(symbol, ":")
	base, quote, ok := adapter.SplitSymbol(pair)
	if !ok || (swap && settle == "") {
		return "", errors.Wrapf(exception.ErrExchangeUnknownMarket, "symbol: %s", symbol)
	}
	if swap {
		return base + "-" + quote + "-SWAP", nil
	}
	return base + "-" + quote, nil
}

// SymbolOf converts an instrument id back to a unified symbol. Instruments without a
// unified form are returned as they are.
func SymbolOf(instID string) string {
	parts := strings.Split(instID, "-")
	switch {
	case len(parts) == 2:
		return adapter.NewSymbol(parts[0], parts[1])
	case len(parts) == 3 && parts[2] == "SWAP":
		return adapter.NewSymbol(parts[0], parts[1]) + ":" + parts[1]
	default:
		return instID
	}
}

func tradesHash(symbol string) string   { return "trades:" + symbol }
func snapshotHash(instID string) string { return "orderbook-snapshot:" + instID }

// privateHash is the hash of a private channel, narrowed to symbol unless it is empty.
func privateHash(channel, symbol string) string {
	if symbol == "" {
		return channel
	}
	return channel + ":" + symbol
}

func subscribeRequest(arg wireArg) router.Request {
	return router.Request{
		SubscribeHash: arg.subscribeHash(),
		Payload:       wireRequest{Op: opSubscribe, Args: []wireArg{arg}},
	}
}

// Authenticate logs in the private socket.
func (e *Exchange) Authenticate(ctx context.Context) error {
	conn, err := e.privateConnection()
	if err != nil {
		return err
	}
	_, err = conn.Router().Authenticate(ctx)
	return err
}

// WatchTrades waits for the next trades of symbol and returns the cached window.
func (e *Exchange) WatchTrades(ctx context.Context, symbol string, since int64, limit int) ([]adapter.Trade, error) {
	instID, err := InstID(symbol)
	if err != nil {
		return nil, err
	}
	req := subscribeRequest(wireArg{Channel: channelTrades, InstID: instID})
	req.Topic = router.TopicTrades
	req.Hashes = []string{tradesHash(symbol)}
	return exchange.WatchRecords[adapter.Trade](ctx, e.public.Router(), req, e.public.Trades(symbol), symbol, since, limit)
}

// UnwatchTrades unsubscribes the trades channel of symbol and drops its cache.
func (e *Exchange) UnwatchTrades(ctx context.Context, symbol string) error {
	instID, err := InstID(symbol)
	if err != nil {
		return err
	}
	e.public.DropTrades(symbol)
	arg := wireArg{Channel: channelTrades, InstID: instID}
	return e.public.Router().Unsubscribe(ctx, arg.subscribeHash(), wireRequest{Op: opUnsubscribe, Args: []wireArg{arg}})
}

// WatchOrderBook waits for the next update of symbol's book and keeps limit levels.
func (e *Exchange) WatchOrderBook(ctx context.Context, symbol string, limit int) (orderbook.OrderBook, error) {
	instID, err := InstID(symbol)
	if err != nil {
		return orderbook.OrderBook{}, err
	}
	e.public.Books().Subscribe(symbol)

	req := subscribeRequest(wireArg{Channel: channelBooks, InstID: instID})
	req.Topic = router.TopicOrderBook
	req.Hashes = []string{orderbook.Hash(symbol)}
	return exchange.WatchBook(ctx, e.public.Router(), req, limit)
}

// UnwatchOrderBook unsubscribes the books channel and drops the book.
func (e *Exchange) UnwatchOrderBook(ctx context.Context, symbol string) error {
	instID, err := InstID(symbol)
	if err != nil {
		return err
	}
	e.public.Books().Unsubscribe(symbol)
	arg := wireArg{Channel: channelBooks, InstID: instID}
	return e.public.Router().Unsubscribe(ctx, arg.subscribeHash(), wireRequest{Op: opUnsubscribe, Args: []wireArg{arg}})
}

// WatchOrders waits for the next order update of symbol, or of any symbol when empty.
func (e *Exchange) WatchOrders(ctx context.Context, symbol string, since int64, limit int) ([]adapter.Order, error) {
	conn, err := e.privateConnection()
	if err != nil {
		return nil, err
	}
	req := subscribeRequest(wireArg{Channel: channelOrders, InstType: instTypeAny})
	req.Topic = router.TopicOrders
	req.Hashes = []string{privateHash(channelOrders, symbol)}
	return exchange.WatchRecords[adapter.Order](ctx, conn.Router(), req, conn.Orders(), symbol, since, limit)
}

// WatchMyTrades waits for the next fill of symbol, or of any symbol when empty.
// Fills arrive on the orders channel.
func (e *Exchange) WatchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]adapter.Trade, error) {
	conn, err := e.privateConnection()
	if err != nil {
		return nil, err
	}
	req := subscribeRequest(wireArg{Channel: channelOrders, InstType: instTypeAny})
	req.Topic = router.TopicMyTrades
	req.Hashes = []string{privateHash("mytrades", symbol)}
	return exchange.WatchRecords[adapter.Trade](ctx, conn.Router(), req, conn.MyTrades(), symbol, since, limit)
}

// WatchPositions waits for the next position update of symbol, or of any symbol when empty.
func (e *Exchange) WatchPositions(ctx context.Context, symbol string, since int64, limit int) ([]adapter.Position, error) {
	conn, err := e.privateConnection()
	if err != nil {
		return nil, err
	}
	req := subscribeRequest(wireArg{Channel: channelPositions, InstType: instTypeAny})
	req.Topic = router.TopicPositions
	req.Hashes = []string{privateHash(channelPositions, symbol)}
	return exchange.WatchRecords[adapter.Position](ctx, conn.Router(), req, conn.Positions(), symbol, since, limit)
}
