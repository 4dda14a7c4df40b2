package sink

import (
	"context"
	"time"

	"exstream/internal/adapter"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultArchiveBatch = 500

// TradeRow is one archived trade.
type TradeRow struct {
	ID        uint64          `gorm:"primaryKey"`
	Exchange  string          `gorm:"size:32;uniqueIndex:idx_trades_key"`
	Symbol    string          `gorm:"size:64;uniqueIndex:idx_trades_key"`
	TradeID   string          `gorm:"size:64;uniqueIndex:idx_trades_key"`
	Side      string          `gorm:"size:8"`
	Price     decimal.Decimal `gorm:"type:numeric"`
	Amount    decimal.Decimal `gorm:"type:numeric"`
	TradedAt  int64           `gorm:"index"`
	CreatedAt time.Time
}

func (TradeRow) TableName() string {
	return "trades"
}

// TradeArchive inserts trades it has not archived yet.
type TradeArchive struct {
	db       *gorm.DB
	exchange string
	batch    int
	filter   *TradeFilter
}

func NewTradeArchive(db *gorm.DB, exchange string, batch int) *TradeArchive {
	if batch <= 0 {
		batch = defaultArchiveBatch
	}
	return &TradeArchive{
		db:       db,
		exchange: exchange,
		batch:    batch,
		filter:   NewTradeFilter(),
	}
}

// Migrate creates the trades table.
func (a *TradeArchive) Migrate(ctx context.Context) error {
	if err := a.db.WithContext(ctx).AutoMigrate(&TradeRow{}); err != nil {
		return errors.Wrap(err, "migrate trades")
	}
	return nil
}

// Archive inserts the new trades and returns how many it sent. Trades of a failed
// insert stay new for the next call.
func (a *TradeArchive) Archive(ctx context.Context, trades []adapter.Trade) (int, error) {
	fresh := a.filter.Fresh(trades)
	if len(fresh) == 0 {
		return 0, nil
	}
	rows := a.rows(fresh)
	err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, a.batch).Error
	if err != nil {
		return 0, errors.Wrap(err, "insert trades").With("count", len(rows))
	}
	a.filter.Commit(fresh)
	return len(rows), nil
}

func (a *TradeArchive) rows(trades []adapter.Trade) []TradeRow {
	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, TradeRow{
			Exchange: a.exchange,
			Symbol:   t.Symbol,
			TradeID:  t.ID,
			Side:     t.Side.String(),
			Price:    t.Price,
			Amount:   t.Amount,
			TradedAt: t.EventTsMs,
		})
	}
	return rows
}
