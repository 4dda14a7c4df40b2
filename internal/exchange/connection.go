package exchange

import (
	"context"
	"sync"

	"exstream/internal/adapter"
	"exstream/pkg/cache"
	"exstream/pkg/exception"
	"exstream/pkg/future"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/websocket"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Capacity bounds the caches of a connection. Zero uses cache.DefaultCapacity.
type Capacity struct {
	Trades    int
	MyTrades  int
	Orders    int
	Positions int
}

// FrameHandler parses inbound frames of one connection. Frames of a connection are
// handled one at a time in arrival order.
type FrameHandler interface {
	HandleFrame(ctx context.Context, conn *Connection, frame websocket.Frame)
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(ctx context.Context, conn *Connection, frame websocket.Frame)

func (f FrameHandlerFunc) HandleFrame(ctx context.Context, conn *Connection, frame websocket.Frame) {
	f(ctx, conn, frame)
}

// Config builds a Connection.
type Config struct {
	Name     string
	URL      string
	Session  websocket.Option
	Handler  FrameHandler
	Login    router.LoginFunc
	Capacity Capacity
	// Hub, when set, registers the connection router under URL.
	Hub *router.Hub
}

// Connection is the state of one exchange socket: its router, caches and books.
// Losing the socket rejects the router's waiters and resets the books. The caches
// are kept so a resubscribed watcher still sees the records read before the drop.
type Connection struct {
	name     string
	capacity Capacity
	handler  FrameHandler

	session *websocket.Session
	router  *router.Client
	books   *orderbook.Engine

	mu        sync.Mutex
	ready     *future.Future[struct{}]
	trades    map[string]*cache.Plain[adapter.Trade]
	myTrades  *cache.Plain[adapter.Trade]
	orders    *cache.Keyed[adapter.Order]
	positions *cache.Keyed[adapter.Position]
}

func NewConnection(cfg Config) (*Connection, error) {
	if cfg.Handler == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "frame handler").With("connection", cfg.Name)
	}

	c := &Connection{
		name:      cfg.Name,
		capacity:  cfg.Capacity,
		handler:   cfg.Handler,
		ready:     future.New[struct{}](),
		trades:    make(map[string]*cache.Plain[adapter.Trade]),
		myTrades:  cache.NewPlain[adapter.Trade](cfg.Capacity.MyTrades),
		orders:    cache.NewKeyed[adapter.Order](cfg.Capacity.Orders),
		positions: cache.NewKeyed[adapter.Position](cfg.Capacity.Positions),
	}

	opt := cfg.Session
	if opt.Name == "" {
		opt.Name = cfg.Name
	}
	if opt.Dialer == nil {
		opt.Dialer = websocket.NewDialer(cfg.URL)
	}
	onConnect := opt.OnConnect
	opt.OnConnect = func(ctx context.Context) error {
		if onConnect != nil {
			if err := onConnect(ctx); err != nil {
				return err
			}
		}
		c.onConnect()
		return nil
	}
	opt.OnDisconnect = c.onDisconnect
	opt.OnFrame = func(ctx context.Context, frame websocket.Frame) {
		c.handler.HandleFrame(ctx, c, frame)
	}

	session, err := websocket.NewSession(opt)
	if err != nil {
		return nil, errors.Wrap(err, "new session").With("connection", cfg.Name)
	}
	c.session = session

	var opts []router.Option
	if cfg.Login != nil {
		opts = append(opts, router.WithLogin(cfg.Login))
	}
	build := func(url string) *router.Client {
		return router.NewClient(url, session, opts...)
	}
	if cfg.Hub != nil {
		c.router = cfg.Hub.Client(cfg.URL, build)
	} else {
		c.router = build(cfg.URL)
	}
	return c, nil
}

// EnableBooks creates the order-book engine of the connection. Books publish through
// the connection router unless cfg names another Publisher.
func (c *Connection) EnableBooks(ctx context.Context, cfg orderbook.Config) error {
	if cfg.Publisher == nil {
		cfg.Publisher = c.router
	}
	engine, err := orderbook.NewEngine(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "new order book engine").With("connection", c.name)
	}
	c.books = engine
	return nil
}

func (c *Connection) Name() string {
	return c.name
}

func (c *Connection) Router() *router.Client {
	return c.router
}

func (c *Connection) Session() *websocket.Session {
	return c.session
}

// Books returns the order-book engine, nil unless EnableBooks was called.
func (c *Connection) Books() *orderbook.Engine {
	return c.books
}

// Run keeps the socket connected until ctx is done.
func (c *Connection) Run(ctx context.Context) error {
	return c.session.Run(ctx)
}

// WaitConnected blocks until the socket is connected or ctx is done.
func (c *Connection) WaitConnected(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	_, err := ready.Wait(ctx)
	return err
}

// Trades returns the public trade cache of symbol, creating it on first use.
func (c *Connection) Trades(symbol string) *cache.Plain[adapter.Trade] {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.trades[symbol]
	if !ok {
		t = cache.NewPlain[adapter.Trade](c.capacity.Trades)
		c.trades[symbol] = t
	}
	return t
}

// DropTrades discards the trade cache of symbol.
func (c *Connection) DropTrades(symbol string) {
	c.mu.Lock()
	delete(c.trades, symbol)
	c.mu.Unlock()
}

func (c *Connection) MyTrades() *cache.Plain[adapter.Trade] {
	return c.myTrades
}

func (c *Connection) Orders() *cache.Keyed[adapter.Order] {
	return c.orders
}

func (c *Connection) Positions() *cache.Keyed[adapter.Position] {
	return c.positions
}

func (c *Connection) onConnect() {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	ready.Resolve(struct{}{})
}

func (c *Connection) onDisconnect(err error) {
	c.mu.Lock()
	if c.ready.Settled() {
		c.ready = future.New[struct{}]()
	}
	c.mu.Unlock()

	woken := c.router.Teardown(errors.Wrapf(exception.ErrConnectionClosed, "connection: %s", c.name))
	if c.books != nil {
		c.books.Reset()
	}
	logs.Infof("exchange %s: torn down, rejected: %d, err: %+v", c.name, woken, err)
}
