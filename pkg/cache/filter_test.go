package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterBySymbolSinceLimit(t *testing.T) {
	records := []event{
		{Symbol: "A", Ts: 1, Value: "a1"},
		{Symbol: "B", Ts: 2, Value: "b2"},
		{Symbol: "A", Ts: 3, Value: "a3"},
		{Symbol: "A", Ts: 4, Value: "a4"},
		{Symbol: "B", Ts: 5, Value: "b5"},
	}

	assert.Equal(t, []string{"a1", "a3", "a4"}, values(FilterBySymbolSinceLimit(records, "A", 0, 0)))
	assert.Equal(t, []string{"a3", "a4"}, values(FilterBySymbolSinceLimit(records, "A", 3, 0)))
	assert.Equal(t, []string{"a4"}, values(FilterBySymbolSinceLimit(records, "A", 0, 1)))
	assert.Equal(t, []string{"a4", "b5"}, values(FilterBySymbolSinceLimit(records, "", 4, 5)))
	assert.Equal(t, []string{"b2", "a3", "a4", "b5"}, values(FilterBySymbolSinceLimit(records, "", 2, 0)))
	assert.Empty(t, FilterBySymbolSinceLimit(records, "C", 0, 0))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	records := []event{{Symbol: "A", Ts: 1}, {Symbol: "B", Ts: 2}, {Symbol: "A", Ts: 3}}
	before := append([]event(nil), records...)

	out := FilterBySymbolSinceLimit(records, "A", 0, 1)
	out[0].Value = "changed"
	assert.Equal(t, before, records)
}
