// Package scanner reads single top-level fields out of a JSON payload without
// decoding it, so frame handlers can route before they pick a target type.
package scanner

import "bytes"

// StringField returns the string value following key, e.g. key `"e"` in
// `{"e":"trade"}` yields "trade". Escaped quotes are not supported.
func StringField(payload []byte, key []byte) ([]byte, bool) {
	i, ok := valueStart(payload, key)
	if !ok || payload[i] != '"' {
		return nil, false
	}
	i++
	end := bytes.IndexByte(payload[i:], '"')
	if end < 0 {
		return nil, false
	}
	return payload[i : i+end], true
}

// valueStart returns the index of the first byte of the value following key.
func valueStart(payload []byte, key []byte) (int, bool) {
	if len(key) == 0 {
		return 0, false
	}
	idx := bytes.Index(payload, key)
	if idx < 0 {
		return 0, false
	}
	i := skipSpace(payload, idx+len(key))
	if i >= len(payload) || payload[i] != ':' {
		return 0, false
	}
	i = skipSpace(payload, i+1)
	if i >= len(payload) {
		return 0, false
	}
	return i, true
}

func skipSpace(payload []byte, i int) int {
	for i < len(payload) && isSpace(payload[i]) {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
