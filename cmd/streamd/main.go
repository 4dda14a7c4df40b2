package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"time"

	"exstream/internal/adapter"
	"exstream/internal/config"
	"exstream/internal/credential"
	"exstream/internal/exchange"
	"exstream/internal/exchange/binance"
	"exstream/internal/exchange/okx"
	"exstream/internal/sink"
	"exstream/pkg/conn"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"

	"github.com/awnumar/memguard"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

const retryDelay = time.Second

func main() {
	configPath := flag.String("config", "", "config file (yaml or json), optional")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logs.Errorf("streamd: exit, err: %+v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	defer memguard.Purge()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("streamd: shutdown")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiling.ApplicationName,
			ServerAddress:   cfg.Profiling.ServerAddress,
			Logger:          profilerLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return errors.Wrap(err, "start pyroscope")
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	out, closeOutputs, err := openOutputs(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOutputs()

	var (
		wg  sync.WaitGroup
		hub = router.NewHub()
	)

	if cfg.Binance.Enabled {
		if err := startBinance(ctx, &wg, hub, cfg, out); err != nil {
			return err
		}
	}
	if cfg.OKX.Enabled {
		if err := startOKX(ctx, &wg, hub, cfg, out); err != nil {
			return err
		}
	}

	<-ctx.Done()
	hub.Close(exception.ErrConnectionClosed)
	wg.Wait()
	return nil
}

// outputs holds the sink clients enabled by config. Nil members are disabled.
type outputs struct {
	redis    sink.RedisClient
	kafka    sink.MessageWriter
	postgres *conn.Postgres
	batch    int
}

func openOutputs(ctx context.Context, cfg config.Config) (outputs, func(), error) {
	var (
		out     outputs
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		out.redis = sink.NewRedisHash(client)
		closers = append(closers, func() { _ = client.Close() })
	}

	if cfg.Kafka.Enabled() {
		writer := sink.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		out.kafka = writer
		closers = append(closers, func() { _ = writer.Close() })
	}

	if cfg.Postgres.Enabled {
		pg, err := conn.NewPostgres(cfg.Postgres.Option())
		if err != nil {
			closeAll()
			return outputs{}, nil, err
		}
		closers = append(closers, func() { _ = pg.Close() })
		if err := pg.Migrate(ctx, &sink.TradeRow{}); err != nil {
			closeAll()
			return outputs{}, nil, err
		}
		out.postgres = pg
		out.batch = cfg.Postgres.BatchSize
	}

	return out, closeAll, nil
}

// pipeline fans results of one exchange out to the enabled sinks.
type pipeline struct {
	name    string
	filter  *sink.TradeFilter
	books   *sink.BookWriter
	trades  *sink.TradePublisher
	archive *sink.TradeArchive
}

func newPipeline(name string, out outputs) *pipeline {
	p := &pipeline{name: name, filter: sink.NewTradeFilter()}
	if out.redis != nil {
		p.books = sink.NewBookWriter(out.redis, name)
	}
	if out.kafka != nil {
		p.trades = sink.NewTradePublisher(out.kafka, name)
	}
	if out.postgres != nil {
		p.archive = sink.NewTradeArchive(out.postgres.DB(), name, out.batch)
	}
	return p
}

func (p *pipeline) onBook(ctx context.Context, book orderbook.OrderBook) {
	if p.books == nil {
		return
	}
	if _, err := p.books.Write(ctx, book); err != nil {
		logs.Errorf("streamd %s: write book %s, err: %+v", p.name, book.Symbol, err)
	}
}

func (p *pipeline) onTrades(ctx context.Context, trades []adapter.Trade) {
	if p.trades != nil {
		if fresh := p.filter.Fresh(trades); len(fresh) != 0 {
			if err := p.trades.Publish(ctx, fresh); err != nil {
				logs.Errorf("streamd %s: publish trades, err: %+v", p.name, err)
			} else {
				p.filter.Commit(fresh)
			}
		}
	}
	if p.archive != nil {
		if _, err := p.archive.Archive(ctx, trades); err != nil {
			logs.Errorf("streamd %s: archive trades, err: %+v", p.name, err)
		}
	}
}

func startBinance(ctx context.Context, wg *sync.WaitGroup, hub *router.Hub, cfg config.Config, out outputs) error {
	session := cfg.WebSocket.Option()
	ex, err := binance.New(ctx, binance.Config{
		WSURL:             cfg.Binance.WSURL,
		RESTURL:           cfg.Binance.RESTURL,
		SnapshotLimit:     cfg.Binance.SnapshotLimit,
		Capacity:          cfg.Cache.Capacity(),
		Session:           session,
		Hub:               hub,
		Depth:             cfg.OrderBook.Depth,
		MaxPending:        cfg.OrderBook.MaxPending,
		MaxResyncAttempts: cfg.OrderBook.MaxResyncAttempts,
	})
	if err != nil {
		return errors.Wrap(err, "create binance")
	}

	runConnection(ctx, wg, ex.Connection())
	p := newPipeline("binance", out)
	for _, symbol := range cfg.Binance.Symbols {
		spawn(ctx, wg, ex.Connection(), "binance books "+symbol,
			func(ctx context.Context) (orderbook.OrderBook, error) {
				return ex.WatchOrderBook(ctx, symbol, cfg.Watch.BookLimit)
			}, p.onBook)
		spawn(ctx, wg, ex.Connection(), "binance trades "+symbol,
			func(ctx context.Context) ([]adapter.Trade, error) {
				return ex.WatchTrades(ctx, symbol, 0, cfg.Watch.Limit)
			}, p.onTrades)
	}
	return nil
}

func startOKX(ctx context.Context, wg *sync.WaitGroup, hub *router.Hub, cfg config.Config, out outputs) error {
	var signer *credential.Signer
	if cfg.OKX.HasCredential() {
		s, err := credential.NewSigner(cfg.OKX.APIKey, []byte(cfg.OKX.Secret), cfg.OKX.Passphrase)
		if err != nil {
			return errors.Wrap(err, "create okx signer")
		}
		signer = s
		go func() {
			<-ctx.Done()
			signer.Destroy()
		}()
	}

	ex, err := okx.New(ctx, okx.Config{
		PublicURL:         cfg.OKX.PublicURL,
		PrivateURL:        cfg.OKX.PrivateURL,
		Signer:            signer,
		Capacity:          cfg.Cache.Capacity(),
		Public:            cfg.WebSocket.Option(),
		Private:           cfg.WebSocket.Option(),
		Hub:               hub,
		Depth:             cfg.OrderBook.Depth,
		MaxPending:        cfg.OrderBook.MaxPending,
		MaxResyncAttempts: cfg.OrderBook.MaxResyncAttempts,
	})
	if err != nil {
		return errors.Wrap(err, "create okx")
	}

	runConnection(ctx, wg, ex.Public())
	p := newPipeline("okx", out)
	for _, symbol := range cfg.OKX.Symbols {
		spawn(ctx, wg, ex.Public(), "okx books "+symbol,
			func(ctx context.Context) (orderbook.OrderBook, error) {
				return ex.WatchOrderBook(ctx, symbol, cfg.Watch.BookLimit)
			}, p.onBook)
		spawn(ctx, wg, ex.Public(), "okx trades "+symbol,
			func(ctx context.Context) ([]adapter.Trade, error) {
				return ex.WatchTrades(ctx, symbol, 0, cfg.Watch.Limit)
			}, p.onTrades)
	}

	private := ex.Private()
	if private == nil {
		return nil
	}
	runConnection(ctx, wg, private)
	spawn(ctx, wg, private, "okx orders",
		func(ctx context.Context) ([]adapter.Order, error) {
			return ex.WatchOrders(ctx, "", 0, cfg.Watch.Limit)
		}, func(_ context.Context, orders []adapter.Order) {
			if n := len(orders); n != 0 {
				last := orders[n-1]
				logs.Infof("streamd okx: order %s %s %s, filled: %s", last.Symbol, last.ID, last.Status, last.Filled)
			}
		})
	spawn(ctx, wg, private, "okx positions",
		func(ctx context.Context) ([]adapter.Position, error) {
			return ex.WatchPositions(ctx, "", 0, cfg.Watch.Limit)
		}, func(_ context.Context, positions []adapter.Position) {
			for _, pos := range positions {
				logs.Infof("streamd okx: position %s %s, contracts: %s", pos.Symbol, pos.Side, pos.Contracts)
			}
		})
	return nil
}

func runConnection(ctx context.Context, wg *sync.WaitGroup, c *exchange.Connection) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			logs.Errorf("streamd %s: run, err: %+v", c.Name(), err)
		}
	}()
}

// spawn repeats watch until ctx is done. A failed watch waits for the connection to
// come back before it is retried.
func spawn[T any](ctx context.Context, wg *sync.WaitGroup, c *exchange.Connection, name string, watch func(ctx context.Context) (T, error), handle func(ctx context.Context, v T)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			v, err := watch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logs.Errorf("streamd %s: watch, err: %+v", name, err)
				if err := c.WaitConnected(ctx); err != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
				continue
			}
			handle(ctx, v)
		}
	}()
}

// profilerLogger routes pyroscope messages to logs.
type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...any) { logs.Infof("pyroscope: "+format, args...) }
func (profilerLogger) Debugf(string, ...any) {}
func (profilerLogger) Errorf(format string, args ...any) { logs.Errorf("pyroscope: "+format, args...) }
