package cache

// FilterBySymbolSinceLimit selects records of symbol with timestamp >= since and
// keeps the most recent limit of them, in their original order.
// An empty symbol, a non-positive since or a non-positive limit disables that filter.
// The input slice is never modified.
func FilterBySymbolSinceLimit[T Record](records []T, symbol string, since int64, limit int) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if symbol != "" && r.GetSymbol() != symbol {
			continue
		}
		if since > 0 && r.GetTimestamp() < since {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
