package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsecutive(t *testing.T) {
	s := Consecutive{}
	cases := []struct {
		name  string
		last  int64
		delta Delta
		want  Verdict
	}{
		{"next single", 100, Delta{Nonce: 101}, VerdictApply},
		{"duplicate", 100, Delta{Nonce: 100}, VerdictStale},
		{"older", 100, Delta{Nonce: 90}, VerdictStale},
		{"skip", 100, Delta{Nonce: 102}, VerdictGap},
		{"range overlaps", 100, Delta{FirstNonce: 95, Nonce: 110}, VerdictApply},
		{"range starts next", 100, Delta{FirstNonce: 101, Nonce: 110}, VerdictApply},
		{"range after gap", 100, Delta{FirstNonce: 103, Nonce: 110}, VerdictGap},
		{"range fully old", 100, Delta{FirstNonce: 90, Nonce: 100}, VerdictStale},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, s.Check(c.last, c.delta))
		})
	}
}

func TestPrevious(t *testing.T) {
	s := Previous{}
	cases := []struct {
		name  string
		last  int64
		delta Delta
		want  Verdict
	}{
		{"links to last", 100, Delta{PrevNonce: 100, Nonce: 105}, VerdictApply},
		{"heartbeat", 100, Delta{PrevNonce: 100, Nonce: 100}, VerdictApply},
		{"sequence reset", 100, Delta{PrevNonce: 100, Nonce: 3}, VerdictApply},
		{"duplicate", 100, Delta{PrevNonce: 95, Nonce: 100}, VerdictStale},
		{"missing link", 100, Delta{PrevNonce: 103, Nonce: 108}, VerdictGap},
		{"range spans snapshot", 100, Delta{FirstNonce: 98, PrevNonce: 97, Nonce: 104}, VerdictApply},
		{"range after snapshot", 100, Delta{FirstNonce: 102, PrevNonce: 101, Nonce: 104}, VerdictGap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, s.Check(c.last, c.delta))
		})
	}
}

func TestInterleavedCRC32(t *testing.T) {
	bids := []Level{lv("3366.1", "7"), lv("3366", "6")}
	asks := []Level{lv("3366.8", "9"), lv("3368", "8")}
	assert.Equal(t, int64(-1881014294), InterleavedCRC32(bids, asks))

	assert.Equal(t, int64(1164732920), InterleavedCRC32(bids, asks[:1]), "uneven sides")
	assert.Equal(t, int64(-538653813), InterleavedCRC32([]Level{lv("100", "1")}, []Level{lv("101", "2")}))
}
