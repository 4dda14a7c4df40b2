package binance

const (
	methodSubscribe   = "SUBSCRIBE"
	methodUnsubscribe = "UNSUBSCRIBE"

	eventTrade       = "trade"
	eventDepthUpdate = "depthUpdate"
)

type wireRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type wireError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

// Binance keys differ only by case ("e"/"E", "t"/"T", "m"/"M"). Every such key has an
// exact field so case-insensitive matching never assigns one to the other.
type eventHeader struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
}

// envelope is the reply to a subscribe or unsubscribe request.
type envelope struct {
	ID     *int64     `json:"id"`
	Result any        `json:"result"`
	Error  *wireError `json:"error"`
}

type tradeEvent struct {
	eventHeader
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	BuyerIsMaker bool   `json:"m"`
	BestMatch    bool   `json:"M"`
}

type depthEvent struct {
	eventHeader
	FirstUpdateID int64      `json:"U"`
	FinalUpdateID int64      `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

type depthSnapshot struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}
