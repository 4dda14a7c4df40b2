package sink

import (
	"context"
	"testing"

	"exstream/internal/adapter"
	"exstream/internal/adapter/enum"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	msgs []kafka.Message
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func TestTradePublisherKeysBySymbol(t *testing.T) {
	writer := &mockWriter{}
	p := NewTradePublisher(writer, "binance")

	err := p.Publish(context.Background(), []adapter.Trade{
		{ID: "1", Symbol: "BTC/USDT", Side: enum.OrderSideBuy, Price: decimal.RequireFromString("100.5"), Amount: decimal.RequireFromString("0.2"), EventTsMs: 10},
		{ID: "2", Symbol: "ETH/USDT", Side: enum.OrderSideSell, Price: decimal.RequireFromString("2000"), Amount: decimal.NewFromInt(1), EventTsMs: 11},
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 2)
	assert.Equal(t, "BTC/USDT", string(writer.msgs[0].Key))
	assert.Equal(t, "ETH/USDT", string(writer.msgs[1].Key))

	var msg tradeMessage
	require.NoError(t, sonic.Unmarshal(writer.msgs[0].Value, &msg))
	assert.Equal(t, tradeMessage{
		Exchange:  "binance",
		Symbol:    "BTC/USDT",
		ID:        "1",
		Side:      "buy",
		Price:     "100.5",
		Amount:    "0.2",
		Timestamp: 10,
	}, msg)
}

func TestTradePublisherSkipsEmpty(t *testing.T) {
	writer := &mockWriter{}
	require.NoError(t, NewTradePublisher(writer, "okx").Publish(context.Background(), nil))
	assert.Empty(t, writer.msgs)
}
