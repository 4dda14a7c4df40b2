package orderbook

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Level is one price level of a book side.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Side tells a ladder how to order its levels.
type Side uint8

const (
	_side_beg Side = iota
	SideBid
	SideAsk
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

const ladderDegree = 16

// Ladder is one side of a book, best price first: bids descending, asks ascending.
type Ladder struct {
	side Side
	tree *btree.BTreeG[Level]
}

func NewLadder(side Side) *Ladder {
	less := func(a, b Level) bool { return a.Price.LessThan(b.Price) }
	if side == SideBid {
		less = func(a, b Level) bool { return a.Price.GreaterThan(b.Price) }
	}
	return &Ladder{
		side: side,
		tree: btree.NewG[Level](ladderDegree, less),
	}
}

func (l *Ladder) Side() Side {
	return l.side
}

// Store inserts or overwrites the level at price. A non-positive size removes it.
func (l *Ladder) Store(price, size decimal.Decimal) {
	if size.Sign() <= 0 {
		l.tree.Delete(Level{Price: price})
		return
	}
	l.tree.ReplaceOrInsert(Level{Price: price, Size: size})
}

// StoreAll applies every level in order.
func (l *Ladder) StoreAll(levels []Level) {
	for _, lv := range levels {
		l.Store(lv.Price, lv.Size)
	}
}

// Size returns the size resting at price.
func (l *Ladder) Size(price decimal.Decimal) (decimal.Decimal, bool) {
	lv, ok := l.tree.Get(Level{Price: price})
	return lv.Size, ok
}

// Best returns the top level.
func (l *Ladder) Best() (Level, bool) {
	return l.tree.Min()
}

// Levels copies up to limit levels, best first. A non-positive limit copies all of them.
func (l *Ladder) Levels(limit int) []Level {
	n := l.tree.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Level, 0, n)
	l.tree.Ascend(func(lv Level) bool {
		if len(out) == n {
			return false
		}
		out = append(out, lv)
		return true
	})
	return out
}

func (l *Ladder) Len() int {
	return l.tree.Len()
}

// Reset replaces the whole side with levels.
func (l *Ladder) Reset(levels []Level) {
	l.tree.Clear(false)
	l.StoreAll(levels)
}

func (l *Ladder) Clear() {
	l.tree.Clear(false)
}
