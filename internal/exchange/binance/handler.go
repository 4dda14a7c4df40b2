package binance

import (
	"context"
	"strconv"

	"exstream/internal/adapter"
	"exstream/internal/adapter/enum"
	"exstream/internal/exchange"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/scanner"
	"exstream/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var eventKey = []byte(`"e"`)

// topicOf classifies a frame by its "e" field. Frames without one are request replies.
func topicOf(payload []byte) router.TopicKind {
	event, ok := scanner.StringField(payload, eventKey)
	if !ok {
		return router.TopicSubscription
	}
	switch string(event) {
	case eventTrade:
		return router.TopicTrades
	case eventDepthUpdate:
		return router.TopicOrderBook
	default:
		return 0
	}
}

// HandleFrame routes one inbound frame to the caches, the books or the router.
func (e *Exchange) HandleFrame(_ context.Context, conn *exchange.Connection, frame websocket.Frame) {
	topic := topicOf(frame.Payload)

	var err error
	switch topic {
	case router.TopicTrades:
		err = e.handleTrade(conn, frame)
	case router.TopicOrderBook:
		err = e.handleDepth(conn, frame)
	case router.TopicSubscription:
		var env envelope
		if err = sonic.ConfigFastest.Unmarshal(frame.Payload, &env); err != nil {
			err = errors.Wrap(err, "decode reply").With("payload", string(frame.Payload))
			break
		}
		if env.ID != nil {
			e.handleAck(conn, env)
		}
	}
	if err != nil {
		logs.Errorf("binance: handle %s, err: %+v", topic, err)
	}
}

func (e *Exchange) handleAck(conn *exchange.Connection, env envelope) {
	e.mu.Lock()
	subHash, ok := e.acks[*env.ID]
	delete(e.acks, *env.ID)
	e.mu.Unlock()
	if !ok {
		return
	}
	if env.Error == nil && env.Result == nil {
		return
	}

	cause := errors.Wrapf(exception.ErrExchangeRequestFailed, "binance: request %d, result: %v", *env.ID, env.Result)
	if env.Error != nil {
		cause = errors.Wrapf(exception.ErrExchangeRequestFailed, "binance: request %d, code: %d, msg: %s", *env.ID, env.Error.Code, env.Error.Msg)
	}
	conn.Router().RejectSubscription(subHash, cause)
}

func (e *Exchange) handleTrade(conn *exchange.Connection, frame websocket.Frame) error {
	var ev tradeEvent
	if err := sonic.ConfigFastest.Unmarshal(frame.Payload, &ev); err != nil {
		return errors.Wrap(err, "decode trade")
	}
	symbol, ok := e.symbolOf(ev.Symbol)
	if !ok {
		return errors.Wrapf(exception.ErrExchangeUnknownMarket, "market: %s", ev.Symbol)
	}
	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return errors.Wrapf(err, "parse price: %s", ev.Price)
	}
	amount, err := decimal.NewFromString(ev.Quantity)
	if err != nil {
		return errors.Wrapf(err, "parse quantity: %s", ev.Quantity)
	}

	side := enum.OrderSideBuy
	if ev.BuyerIsMaker {
		side = enum.OrderSideSell
	}
	trade := adapter.Trade{
		ID:         strconv.FormatInt(ev.TradeID, 10),
		Symbol:     symbol,
		Platform:   enum.PlatformBinance,
		Side:       side,
		Price:      price,
		Amount:     amount,
		EventTsMs:  ev.TradeTime,
		RecvTsNano: frame.RecvTsNano,
	}
	conn.Trades(symbol).Append(trade)
	conn.Router().Resolve(tradesHash(symbol), []adapter.Trade{trade})
	return nil
}

func (e *Exchange) handleDepth(conn *exchange.Connection, frame websocket.Frame) error {
	var ev depthEvent
	if err := sonic.ConfigFastest.Unmarshal(frame.Payload, &ev); err != nil {
		return errors.Wrap(err, "decode depth")
	}
	symbol, ok := e.symbolOf(ev.Symbol)
	if !ok {
		return errors.Wrapf(exception.ErrExchangeUnknownMarket, "market: %s", ev.Symbol)
	}
	bids, err := exchange.ParseLevels(ev.Bids)
	if err != nil {
		return err
	}
	asks, err := exchange.ParseLevels(ev.Asks)
	if err != nil {
		return err
	}

	err = conn.Books().OnDelta(symbol, orderbook.Delta{
		Bids:       bids,
		Asks:       asks,
		FirstNonce: ev.FirstUpdateID,
		Nonce:      ev.FinalUpdateID,
		Timestamp:  ev.EventTime,
	})
	// resyncs are logged by the engine
	if errors.Is(err, exception.ErrOrderBookSequenceGap) || errors.Is(err, exception.ErrOrderBookChecksumMismatch) {
		return nil
	}
	return err
}
