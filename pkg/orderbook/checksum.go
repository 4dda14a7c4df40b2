package orderbook

import (
	"hash/crc32"
	"strings"
)

// ChecksumFunc computes a checksum over the top levels of both sides, best first.
type ChecksumFunc func(bids, asks []Level) int64

// DefaultChecksumDepth is the number of levels per side handed to a ChecksumFunc.
const DefaultChecksumDepth = 25

// InterleavedCRC32 joins bid price, bid size, ask price, ask size level by level
// with ':' and returns the IEEE CRC32 of the result as a signed 32-bit value.
func InterleavedCRC32(bids, asks []Level) int64 {
	n := max(len(bids), len(asks))

	var sb strings.Builder
	write := func(s string) {
		if sb.Len() > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(s)
	}
	for i := range n {
		if i < len(bids) {
			write(bids[i].Price.String())
			write(bids[i].Size.String())
		}
		if i < len(asks) {
			write(asks[i].Price.String())
			write(asks[i].Size.String())
		}
	}
	return int64(int32(crc32.ChecksumIEEE([]byte(sb.String()))))
}
