package sink

import (
	"context"
	"time"

	"exstream/internal/adapter"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/yanun0323/errors"
)

// MessageWriter is the part of *kafka.Writer TradePublisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a synchronous writer acknowledged by all replicas.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

type tradeMessage struct {
	Exchange     string `json:"exchange"`
	Symbol       string `json:"symbol"`
	ID           string `json:"id"`
	OrderID      string `json:"orderId,omitempty"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	Amount       string `json:"amount"`
	Timestamp    int64  `json:"timestamp"`
	TakerOrMaker string `json:"takerOrMaker,omitempty"`
}

// TradePublisher encodes trades to Kafka keyed by symbol, so trades of one symbol
// stay ordered within a partition.
type TradePublisher struct {
	writer   MessageWriter
	exchange string
}

func NewTradePublisher(writer MessageWriter, exchange string) *TradePublisher {
	return &TradePublisher{writer: writer, exchange: exchange}
}

func (p *TradePublisher) Publish(ctx context.Context, trades []adapter.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		value, err := sonic.ConfigFastest.Marshal(tradeMessage{
			Exchange:     p.exchange,
			Symbol:       t.Symbol,
			ID:           t.ID,
			OrderID:      t.OrderID,
			Side:         t.Side.String(),
			Price:        t.Price.String(),
			Amount:       t.Amount.String(),
			Timestamp:    t.EventTsMs,
			TakerOrMaker: t.TakerOrMaker,
		})
		if err != nil {
			return errors.Wrap(err, "marshal trade").With("id", t.ID)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(t.Symbol), Value: value})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "write trades").With("count", len(msgs))
	}
	return nil
}
