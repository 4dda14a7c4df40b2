package adapter

import (
	"exstream/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Order is the latest known state of one order.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Platform      enum.Platform
	Type          enum.OrderType
	Side          enum.OrderSide
	Status        enum.OrderStatus
	Price         decimal.Decimal
	Amount        decimal.Decimal
	Filled        decimal.Decimal
	AveragePrice  decimal.Decimal
	UpdatedTsMs   int64
}

func (o Order) GetSymbol() string   { return o.Symbol }
func (o Order) GetID() string       { return o.ID }
func (o Order) GetTimestamp() int64 { return o.UpdatedTsMs }

// Remaining returns the unfilled amount.
func (o Order) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.Filled)
}
