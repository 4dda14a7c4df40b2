package exchange

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"exstream/internal/adapter"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/websocket"
	"exstream/pkg/websocket/wstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const symbol = "BTC/USDT"

// handleTrade parses "trade <symbol> <id> <ts>" frames.
func handleTrade(_ context.Context, conn *Connection, frame websocket.Frame) {
	fields := strings.Fields(string(frame.Payload))
	if len(fields) != 4 || fields[0] != "trade" {
		return
	}
	ts, _ := strconv.ParseInt(fields[3], 10, 64)
	trade := adapter.Trade{ID: fields[2], Symbol: fields[1], Price: decimal.NewFromInt(1), Amount: decimal.NewFromInt(1), EventTsMs: ts}
	conn.Trades(trade.Symbol).Append(trade)
	conn.Router().Resolve("trades:"+trade.Symbol, []adapter.Trade{trade})
}

func newTestConnection(t *testing.T) (*Connection, *wstest.Dialer) {
	t.Helper()
	dialer := wstest.NewDialer()
	conn, err := NewConnection(Config{
		Name: "test",
		URL:  "wss://example.test/ws",
		Session: websocket.Option{
			Dialer:  dialer,
			Backoff: websocket.Backoff{Min: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2},
		},
		Handler:  FrameHandlerFunc(handleTrade),
		Capacity: Capacity{Trades: 3},
	})
	require.NoError(t, err)
	return conn, dialer
}

func tradesRequest() router.Request {
	return router.Request{
		Topic:   router.TopicTrades,
		Hashes:  []string{"trades:" + symbol},
		Payload: map[string]string{"subscribe": symbol},
	}
}

func TestNewConnectionRequiresHandler(t *testing.T) {
	_, err := NewConnection(Config{Name: "test", URL: "wss://example.test/ws"})
	require.True(t, errors.Is(err, exception.ErrNilInstance))
}

func TestConnectionRegistersInHub(t *testing.T) {
	hub := router.NewHub()
	conn, err := NewConnection(Config{
		Name:    "test",
		URL:     "wss://example.test/ws",
		Session: websocket.Option{Dialer: wstest.NewDialer()},
		Handler: FrameHandlerFunc(handleTrade),
		Hub:     hub,
	})
	require.NoError(t, err)

	client, ok := hub.Lookup("wss://example.test/ws")
	require.True(t, ok)
	assert.Same(t, conn.Router(), client)
}

func TestWatchRecordsReturnsCacheWindow(t *testing.T) {
	conn, dialer := newTestConnection(t)
	ws := dialer.Serve()
	go func() { _ = conn.Run(t.Context()) }()
	require.NoError(t, conn.WaitConnected(t.Context()))

	type result struct {
		trades []adapter.Trade
		err    error
	}
	done := make(chan result, 1)
	go func() {
		trades, err := WatchRecords[adapter.Trade](t.Context(), conn.Router(), tradesRequest(), conn.Trades(symbol), symbol, 0, 2)
		done <- result{trades, err}
	}()

	assert.Contains(t, ws.Next(t), symbol)
	ws.Push("trade BTC/USDT 1 100")

	r := wstest.Recv(t, done)
	require.NoError(t, r.err)
	require.Len(t, r.trades, 1)
	assert.Equal(t, "1", r.trades[0].ID)

	for i := 2; i <= 5; i++ {
		conn.Trades(symbol).Append(adapter.Trade{ID: strconv.Itoa(i), Symbol: symbol, EventTsMs: int64(100 + i)})
	}
	go func() {
		trades, err := WatchRecords[adapter.Trade](t.Context(), conn.Router(), tradesRequest(), conn.Trades(symbol), symbol, 0, 2)
		done <- result{trades, err}
	}()
	require.Eventually(t, func() bool {
		return conn.Router().Resolve("trades:"+symbol, nil) > 0
	}, time.Second, time.Millisecond)

	r = wstest.Recv(t, done)
	require.NoError(t, r.err)
	require.Len(t, r.trades, 2)
	assert.Equal(t, "4", r.trades[0].ID)
	assert.Equal(t, "5", r.trades[1].ID)
	assert.Equal(t, 3, conn.Trades(symbol).Len())
}

func TestDisconnectTearsDownWaiters(t *testing.T) {
	conn, dialer := newTestConnection(t)
	require.NoError(t, conn.EnableBooks(t.Context(), orderbook.Config{
		Fetcher: orderbook.SnapshotFetcherFunc(func(ctx context.Context, symbol string) (orderbook.Snapshot, error) {
			<-ctx.Done()
			return orderbook.Snapshot{}, ctx.Err()
		}),
	}))
	conn.Books().Subscribe(symbol)
	require.NoError(t, conn.Books().OnSnapshot(symbol, orderbook.Snapshot{Nonce: 10}))
	conn.Trades(symbol).Append(adapter.Trade{ID: "1", Symbol: symbol, EventTsMs: 1})

	ws := dialer.Serve()
	go func() { _ = conn.Run(t.Context()) }()
	require.NoError(t, conn.WaitConnected(t.Context()))

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Router().Watch(t.Context(), tradesRequest())
		errs <- err
	}()
	ws.Next(t)

	next := dialer.Serve()
	ws.Drop()

	require.True(t, errors.Is(wstest.Recv(t, errs), exception.ErrConnectionClosed))
	assert.False(t, conn.Router().Subscribed("trades:"+symbol))
	require.Eventually(t, func() bool {
		state, ok := conn.Books().State(symbol)
		return ok && state == orderbook.StateUnsynced
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, conn.Trades(symbol).Len())

	require.NoError(t, conn.WaitConnected(t.Context()))
	go func() {
		_, err := conn.Router().Watch(t.Context(), tradesRequest())
		errs <- err
	}()
	assert.Contains(t, next.Next(t), symbol)
}

func TestWatchBookTrimsLevels(t *testing.T) {
	client := router.NewClient("wss://example.test/ws", nopTransport{})
	req := router.Request{Topic: router.TopicOrderBook, Hashes: []string{orderbook.Hash(symbol)}}

	done := make(chan orderbook.OrderBook, 1)
	go func() {
		book, err := WatchBook(t.Context(), client, req, 1)
		assert.NoError(t, err)
		done <- book
	}()

	levels := []orderbook.Level{
		{Price: decimal.NewFromInt(2), Size: decimal.NewFromInt(1)},
		{Price: decimal.NewFromInt(1), Size: decimal.NewFromInt(1)},
	}
	require.Eventually(t, func() bool {
		return client.Resolve(orderbook.Hash(symbol), orderbook.OrderBook{Symbol: symbol, Bids: levels}) > 0
	}, time.Second, time.Millisecond)

	book := wstest.Recv(t, done)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "2", book.Bids[0].Price.String())
}

type nopTransport struct{}

func (nopTransport) Send(context.Context, any) error { return nil }
