package okx

const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opLogin       = "login"

	eventSubscribe   = "subscribe"
	eventUnsubscribe = "unsubscribe"
	eventLogin       = "login"
	eventError       = "error"

	actionSnapshot = "snapshot"
	actionUpdate   = "update"

	channelBooks     = "books"
	channelTrades    = "trades"
	channelOrders    = "orders"
	channelPositions = "positions"

	instTypeAny = "ANY"
)

type wireArg struct {
	Channel  string `json:"channel"`
	InstID   string `json:"instId,omitempty"`
	InstType string `json:"instType,omitempty"`
}

// subscribeHash names the outbound request of arg.
func (a wireArg) subscribeHash() string {
	if a.InstID == "" {
		return a.Channel
	}
	return a.Channel + ":" + a.InstID
}

type wireRequest struct {
	Op   string    `json:"op"`
	Args []wireArg `json:"args"`
}

type loginArg struct {
	APIKey     string `json:"apiKey"`
	Passphrase string `json:"passphrase"`
	Timestamp  string `json:"timestamp"`
	Sign       string `json:"sign"`
}

type loginRequest struct {
	Op   string     `json:"op"`
	Args []loginArg `json:"args"`
}

// header holds the fields needed to route a frame.
type header struct {
	Event  string  `json:"event"`
	Code   string  `json:"code"`
	Msg    string  `json:"msg"`
	ConnID string  `json:"connId"`
	Arg    wireArg `json:"arg"`
	Action string  `json:"action"`
}

type booksMessage struct {
	Data []bookData `json:"data"`
}

type bookData struct {
	Asks      [][]string `json:"asks"`
	Bids      [][]string `json:"bids"`
	Ts        string     `json:"ts"`
	Checksum  *int64     `json:"checksum"`
	PrevSeqID int64      `json:"prevSeqId"`
	SeqID     int64      `json:"seqId"`
}

type tradesMessage struct {
	Data []tradeData `json:"data"`
}

type tradeData struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

type ordersMessage struct {
	Data []orderData `json:"data"`
}

type orderData struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	ClOrdID   string `json:"clOrdId"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	OrdType   string `json:"ordType"`
	Side      string `json:"side"`
	State     string `json:"state"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	UTime     string `json:"uTime"`
	TradeID   string `json:"tradeId"`
	FillPx    string `json:"fillPx"`
	FillSz    string `json:"fillSz"`
	FillTime  string `json:"fillTime"`
	ExecType  string `json:"execType"`
}

type positionsMessage struct {
	Data []positionData `json:"data"`
}

type positionData struct {
	InstID  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
	MarkPx  string `json:"markPx"`
	Upl     string `json:"upl"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
	UTime   string `json:"uTime"`
}
