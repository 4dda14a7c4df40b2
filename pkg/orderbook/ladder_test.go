package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lv(price, size string) Level {
	return Level{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func prices(levels []Level) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.Price.String())
	}
	return out
}

func TestLadderOrdering(t *testing.T) {
	bids := NewLadder(SideBid)
	asks := NewLadder(SideAsk)
	for _, p := range []string{"100", "102", "101"} {
		bids.Store(decimal.RequireFromString(p), decimal.NewFromInt(1))
		asks.Store(decimal.RequireFromString(p), decimal.NewFromInt(1))
	}

	assert.Equal(t, []string{"102", "101", "100"}, prices(bids.Levels(0)))
	assert.Equal(t, []string{"100", "101", "102"}, prices(asks.Levels(0)))
	assert.Equal(t, []string{"102", "101"}, prices(bids.Levels(2)))

	best, ok := asks.Best()
	require.True(t, ok)
	assert.Equal(t, "100", best.Price.String())
}

func TestLadderStoreOverwriteAndRemove(t *testing.T) {
	l := NewLadder(SideAsk)
	l.StoreAll([]Level{lv("1.5", "2"), lv("1.6", "3")})
	l.Store(decimal.RequireFromString("1.50"), decimal.RequireFromString("4"))

	size, ok := l.Size(decimal.RequireFromString("1.5"))
	require.True(t, ok)
	assert.Equal(t, "4", size.String())
	assert.Equal(t, 2, l.Len())

	l.Store(decimal.RequireFromString("1.6"), decimal.Zero)
	assert.Equal(t, 1, l.Len())
	_, ok = l.Size(decimal.RequireFromString("1.6"))
	assert.False(t, ok)

	l.Store(decimal.RequireFromString("9"), decimal.Zero)
	assert.Equal(t, 1, l.Len(), "removing a missing level is a no-op")
}

func TestLadderReset(t *testing.T) {
	l := NewLadder(SideBid)
	l.StoreAll([]Level{lv("1", "1"), lv("2", "1")})
	l.Reset([]Level{lv("5", "1")})
	assert.Equal(t, []string{"5"}, prices(l.Levels(0)))
}

func TestOrderBookLimitAndSpread(t *testing.T) {
	b := OrderBook{
		Bids: []Level{lv("10", "1"), lv("9", "1"), lv("8", "1")},
		Asks: []Level{lv("11", "1"), lv("12", "1")},
	}
	limited := b.Limit(1)
	assert.Len(t, limited.Bids, 1)
	assert.Len(t, limited.Asks, 1)
	assert.Len(t, b.Bids, 3)

	spread, ok := b.Spread()
	require.True(t, ok)
	assert.Equal(t, "1", spread.String())

	_, ok = OrderBook{}.Spread()
	assert.False(t, ok)
}
