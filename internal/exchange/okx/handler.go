package okx

import (
	"context"
	"strconv"
	"strings"

	"exstream/internal/adapter"
	"exstream/internal/adapter/enum"
	"exstream/internal/exchange"
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"
	"exstream/pkg/router"
	"exstream/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const illegalRequest = "Illegal request: "

// topicOf classifies a decoded frame header.
func topicOf(h header) router.TopicKind {
	switch h.Event {
	case "":
	case eventLogin:
		return router.TopicAuth
	case eventError:
		return router.TopicError
	case eventSubscribe, eventUnsubscribe:
		return router.TopicSubscription
	default:
		return 0
	}

	switch h.Arg.Channel {
	case channelBooks:
		return router.TopicOrderBook
	case channelTrades:
		return router.TopicTrades
	case channelOrders:
		return router.TopicOrders
	case channelPositions:
		return router.TopicPositions
	default:
		return 0
	}
}

// HandleFrame routes one inbound frame of either socket.
func (e *Exchange) HandleFrame(_ context.Context, conn *exchange.Connection, frame websocket.Frame) {
	if string(frame.Payload) == "pong" {
		return
	}

	var h header
	if err := sonic.ConfigFastest.Unmarshal(frame.Payload, &h); err != nil {
		logs.Errorf("okx: decode frame, payload: %s, err: %+v", frame.Payload, err)
		return
	}

	topic := topicOf(h)
	var err error
	switch topic {
	case router.TopicOrderBook:
		err = e.handleBooks(conn, h, frame.Payload)
	case router.TopicTrades:
		err = e.handleTrades(conn, h, frame)
	case router.TopicOrders:
		err = e.handleOrders(conn, frame.Payload)
	case router.TopicPositions:
		err = e.handlePositions(conn, frame.Payload)
	case router.TopicAuth:
		e.handleLogin(conn, h)
	case router.TopicError:
		e.handleError(conn, h)
	case router.TopicSubscription:
	default:
		if h.Event != "" {
			logs.Infof("okx: unhandled event %s, payload: %s", h.Event, frame.Payload)
		}
	}
	if err != nil {
		logs.Errorf("okx: handle %s %s, err: %+v", topic, h.Arg.InstID, err)
	}
}

func (e *Exchange) handleLogin(conn *exchange.Connection, h header) {
	if h.Code == "" || h.Code == "0" {
		conn.Router().Resolve(router.AuthHash, h.ConnID)
		return
	}
	conn.Router().Reject(router.AuthHash, errors.Wrapf(exception.ErrRouterAuthenticationFailed, "okx: code: %s, msg: %s", h.Code, h.Msg))
}

// handleError rejects the login on login codes, and the refused subscription when the
// message echoes it. Anything else is logged.
func (e *Exchange) handleError(conn *exchange.Connection, h header) {
	if isLoginCode(h.Code) {
		conn.Router().Reject(router.AuthHash, errors.Wrapf(exception.ErrRouterAuthenticationFailed, "okx: code: %s, msg: %s", h.Code, h.Msg))
		return
	}

	cause := errors.Wrapf(exception.ErrRouterSubscriptionRejected, "okx: code: %s, msg: %s", h.Code, h.Msg)
	if raw, ok := strings.CutPrefix(h.Msg, illegalRequest); ok {
		var req wireRequest
		if err := sonic.ConfigFastest.UnmarshalFromString(raw, &req); err == nil && req.Op == opSubscribe {
			woken := 0
			for _, arg := range req.Args {
				woken += conn.Router().RejectSubscription(arg.subscribeHash(), cause)
			}
			if woken > 0 {
				return
			}
		}
	}
	logs.Errorf("okx: %s error, code: %s, msg: %s", conn.Name(), h.Code, h.Msg)
}

func (e *Exchange) handleBooks(conn *exchange.Connection, h header, payload []byte) error {
	var msg booksMessage
	if err := sonic.ConfigFastest.Unmarshal(payload, &msg); err != nil {
		return errors.Wrap(err, "decode books")
	}
	symbol := SymbolOf(h.Arg.InstID)
	books := conn.Books()
	if books == nil {
		return exception.ErrExchangeBooksDisabled
	}

	for _, d := range msg.Data {
		bids, err := exchange.ParseLevels(d.Bids)
		if err != nil {
			return err
		}
		asks, err := exchange.ParseLevels(d.Asks)
		if err != nil {
			return err
		}
		ts, err := parseInt(d.Ts)
		if err != nil {
			return err
		}

		if h.Action == actionSnapshot {
			snap := orderbook.Snapshot{Bids: bids, Asks: asks, Nonce: d.SeqID, Timestamp: ts, Checksum: d.Checksum}
			// a pending resync waits for this snapshot, otherwise it starts the book
			if conn.Router().Resolve(snapshotHash(h.Arg.InstID), snap) > 0 {
				continue
			}
			if err := books.OnSnapshot(symbol, snap); err != nil && !isResync(err) {
				return err
			}
			continue
		}

		err = books.OnDelta(symbol, orderbook.Delta{
			Bids:      bids,
			Asks:      asks,
			Nonce:     d.SeqID,
			PrevNonce: d.PrevSeqID,
			Timestamp: ts,
			Checksum:  d.Checksum,
		})
		if err != nil && !isResync(err) {
			return err
		}
	}
	return nil
}

// isResync reports errors after which the engine already scheduled a resync.
func isResync(err error) bool {
	return errors.Is(err, exception.ErrOrderBookSequenceGap) || errors.Is(err, exception.ErrOrderBookChecksumMismatch)
}

func (e *Exchange) handleTrades(conn *exchange.Connection, h header, frame websocket.Frame) error {
	var msg tradesMessage
	if err := sonic.ConfigFastest.Unmarshal(frame.Payload, &msg); err != nil {
		return errors.Wrap(err, "decode trades")
	}

	trades := make([]adapter.Trade, 0, len(msg.Data))
	for _, d := range msg.Data {
		price, err := parseDecimal(d.Px)
		if err != nil {
			return err
		}
		amount, err := parseDecimal(d.Sz)
		if err != nil {
			return err
		}
		ts, err := parseInt(d.Ts)
		if err != nil {
			return err
		}
		trades = append(trades, adapter.Trade{
			ID:         d.TradeID,
			Symbol:     SymbolOf(h.Arg.InstID),
			Platform:   enum.PlatformOKX,
			Side:       enum.ParseOrderSide(d.Side),
			Price:      price,
			Amount:     amount,
			EventTsMs:  ts,
			RecvTsNano: frame.RecvTsNano,
		})
	}

	symbol := SymbolOf(h.Arg.InstID)
	store := conn.Trades(symbol)
	for _, trade := range trades {
		store.Append(trade)
	}
	conn.Router().Resolve(tradesHash(symbol), trades)
	return nil
}

func (e *Exchange) handleOrders(conn *exchange.Connection, payload []byte) error {
	var msg ordersMessage
	if err := sonic.ConfigFastest.Unmarshal(payload, &msg); err != nil {
		return errors.Wrap(err, "decode orders")
	}

	orders := make([]adapter.Order, 0, len(msg.Data))
	var fills []adapter.Trade
	for _, d := range msg.Data {
		order, err := parseOrder(d)
		if err != nil {
			return err
		}
		orders = append(orders, order)

		fill, ok, err := parseFill(d, order)
		if err != nil {
			return err
		}
		if ok {
			fills = append(fills, fill)
		}
	}

	for _, order := range orders {
		conn.Orders().Append(order)
	}
	for _, fill := range fills {
		conn.MyTrades().Append(fill)
	}
	resolveAll(conn.Router(), channelOrders, orders)
	resolveAll(conn.Router(), "mytrades", fills)
	return nil
}

func (e *Exchange) handlePositions(conn *exchange.Connection, payload []byte) error {
	var msg positionsMessage
	if err := sonic.ConfigFastest.Unmarshal(payload, &msg); err != nil {
		return errors.Wrap(err, "decode positions")
	}

	positions := make([]adapter.Position, 0, len(msg.Data))
	for _, d := range msg.Data {
		position, err := parsePosition(d)
		if err != nil {
			return err
		}
		positions = append(positions, position)
	}

	for _, position := range positions {
		conn.Positions().Append(position)
	}
	resolveAll(conn.Router(), channelPositions, positions)
	return nil
}

// resolveAll resolves the channel hash once and each symbol hash once.
func resolveAll[T interface{ GetSymbol() string }](client *router.Client, channel string, records []T) {
	if len(records) == 0 {
		return
	}
	client.Resolve(channel, records)
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		symbol := r.GetSymbol()
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		client.Resolve(privateHash(channel, symbol), records)
	}
}

func parseOrder(d orderData) (adapter.Order, error) {
	price, err := parseDecimal(d.Px)
	if err != nil {
		return adapter.Order{}, err
	}
	amount, err := parseDecimal(d.Sz)
	if err != nil {
		return adapter.Order{}, err
	}
	filled, err := parseDecimal(d.AccFillSz)
	if err != nil {
		return adapter.Order{}, err
	}
	average, err := parseDecimal(d.AvgPx)
	if err != nil {
		return adapter.Order{}, err
	}
	updated, err := parseInt(d.UTime)
	if err != nil {
		return adapter.Order{}, err
	}
	return adapter.Order{
		ID:            d.OrdID,
		ClientOrderID: d.ClOrdID,
		Symbol:        SymbolOf(d.InstID),
		Platform:      enum.PlatformOKX,
		Type:          enum.ParseOrderType(d.OrdType),
		Side:          enum.ParseOrderSide(d.Side),
		Status:        parseOrderStatus(d.State),
		Price:         price,
		Amount:        amount,
		Filled:        filled,
		AveragePrice:  average,
		UpdatedTsMs:   updated,
	}, nil
}

// parseFill extracts the fill carried by an order update, if any.
func parseFill(d orderData, order adapter.Order) (adapter.Trade, bool, error) {
	if d.TradeID == "" {
		return adapter.Trade{}, false, nil
	}
	amount, err := parseDecimal(d.FillSz)
	if err != nil || amount.IsZero() {
		return adapter.Trade{}, false, err
	}
	price, err := parseDecimal(d.FillPx)
	if err != nil {
		return adapter.Trade{}, false, err
	}
	ts, err := parseInt(d.FillTime)
	if err != nil {
		return adapter.Trade{}, false, err
	}

	role := ""
	switch d.ExecType {
	case "T":
		role = "taker"
	case "M":
		role = "maker"
	}
	return adapter.Trade{
		ID:           d.TradeID,
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Platform:     enum.PlatformOKX,
		Side:         order.Side,
		Price:        price,
		Amount:       amount,
		EventTsMs:    ts,
		TakerOrMaker: role,
	}, true, nil
}

func parseOrderStatus(state string) enum.OrderStatus {
	switch state {
	case "live":
		return enum.OrderStatusOpen
	case "partially_filled":
		return enum.OrderStatusPartialFilled
	case "filled":
		return enum.OrderStatusFilled
	case "canceled", "mmp_canceled":
		return enum.OrderStatusCanceled
	default:
		return enum.OrderStatus(0)
	}
}

func parsePosition(d positionData) (adapter.Position, error) {
	contracts, err := parseDecimal(d.Pos)
	if err != nil {
		return adapter.Position{}, err
	}
	entry, err := parseDecimal(d.AvgPx)
	if err != nil {
		return adapter.Position{}, err
	}
	mark, err := parseDecimal(d.MarkPx)
	if err != nil {
		return adapter.Position{}, err
	}
	pnl, err := parseDecimal(d.Upl)
	if err != nil {
		return adapter.Position{}, err
	}
	leverage, err := parseDecimal(d.Lever)
	if err != nil {
		return adapter.Position{}, err
	}
	updated, err := parseInt(d.UTime)
	if err != nil {
		return adapter.Position{}, err
	}

	side := enum.ParsePositionSide(d.PosSide)
	if !side.IsAvailable() {
		logs.Infof("okx: position %s without side %q, stored as net", d.InstID, d.PosSide)
		side = enum.PositionSideNet
	}
	return adapter.Position{
		Symbol:        SymbolOf(d.InstID),
		Platform:      enum.PlatformOKX,
		Side:          side,
		Contracts:     contracts,
		EntryPrice:    entry,
		MarkPrice:     mark,
		UnrealizedPnl: pnl,
		Leverage:      leverage,
		MarginMode:    d.MgnMode,
		UpdatedTsMs:   updated,
	}, nil
}

// parseDecimal reads an OKX number field, where an empty string means zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(exception.ErrDecodePayload, "decimal: %s", s)
	}
	return d, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(exception.ErrDecodePayload, "integer: %s", s)
	}
	return n, nil
}
