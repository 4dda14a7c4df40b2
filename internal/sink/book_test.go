package sink

import (
	"context"
	"testing"

	"exstream/pkg/orderbook"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

type hsetCall struct {
	key    string
	values []any
}

type mockRedis struct {
	calls []hsetCall
	err   error
}

func (m *mockRedis) HSet(_ context.Context, key string, values ...any) error {
	m.calls = append(m.calls, hsetCall{key: key, values: values})
	return m.err
}

func level(price, size string) orderbook.Level {
	return orderbook.Level{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func TestBookWriterWritesTopOfBook(t *testing.T) {
	client := &mockRedis{}
	w := NewBookWriter(client, "binance")

	book := orderbook.OrderBook{
		Symbol:    "BTC/USDT",
		Bids:      []orderbook.Level{level("100", "1"), level("99", "2")},
		Asks:      []orderbook.Level{level("101", "1.5")},
		Nonce:     42,
		Timestamp: 1700000000000,
	}
	wrote, err := w.Write(context.Background(), book)
	require.NoError(t, err)
	assert.True(t, wrote)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "book:binance:BTC/USDT", client.calls[0].key)
	assert.Equal(t, []any{"bid", "100", "ask", "101", "ts", "1700000000000", "nonce", "42"}, client.calls[0].values)

	book.Nonce = 43
	book.Bids = []orderbook.Level{level("100", "5")}
	wrote, err = w.Write(context.Background(), book)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Len(t, client.calls, 1)

	book.Asks = []orderbook.Level{level("100.5", "1")}
	wrote, err = w.Write(context.Background(), book)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Len(t, client.calls, 2)
}

func TestBookWriterEmptySide(t *testing.T) {
	client := &mockRedis{}
	w := NewBookWriter(client, "okx")

	_, err := w.Write(context.Background(), orderbook.OrderBook{
		Symbol: "ETH/USDT",
		Bids:   []orderbook.Level{level("2000", "1")},
	})
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "0", client.calls[0].values[3])
}

func TestBookWriterRetriesAfterError(t *testing.T) {
	client := &mockRedis{err: errors.New("connection refused")}
	w := NewBookWriter(client, "okx")
	book := orderbook.OrderBook{Symbol: "ETH/USDT", Bids: []orderbook.Level{level("2000", "1")}}

	_, err := w.Write(context.Background(), book)
	require.Error(t, err)

	client.err = nil
	wrote, err := w.Write(context.Background(), book)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Len(t, client.calls, 2)
}
