package adapter

import (
	"exstream/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Trade is a public or private fill.
type Trade struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId,omitempty"`
	Symbol       string          `json:"symbol"`
	Platform     enum.Platform   `json:"-"`
	Side         enum.OrderSide  `json:"-"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	EventTsMs    int64           `json:"timestamp"`
	RecvTsNano   int64           `json:"-"`
	TakerOrMaker string          `json:"takerOrMaker,omitempty"`
}

func (t Trade) GetSymbol() string   { return t.Symbol }
func (t Trade) GetID() string       { return t.ID }
func (t Trade) GetTimestamp() int64 { return t.EventTsMs }

// Cost returns price times amount.
func (t Trade) Cost() decimal.Decimal {
	return t.Price.Mul(t.Amount)
}
