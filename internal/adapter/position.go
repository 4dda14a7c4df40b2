package adapter

import (
	"exstream/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// Position is the latest known state of one position. Positions are identified by
// their side within a symbol.
type Position struct {
	Symbol        string
	Platform      enum.Platform
	Side          enum.PositionSide
	Contracts     decimal.Decimal
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Leverage      decimal.Decimal
	MarginMode    string
	UpdatedTsMs   int64
}

func (p Position) GetSymbol() string   { return p.Symbol }
func (p Position) GetID() string       { return p.Side.String() }
func (p Position) GetTimestamp() int64 { return p.UpdatedTsMs }

// IsFlat reports whether the position holds no contracts.
func (p Position) IsFlat() bool {
	return p.Contracts.IsZero()
}
