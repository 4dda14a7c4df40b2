package sink

import (
	"maps"
	"sync"

	"exstream/internal/adapter"
)

// mark is the newest timestamp seen for a symbol and the trade ids seen at it.
type mark struct {
	ts  int64
	ids map[string]struct{}
}

func (m *mark) clone() *mark {
	return &mark{ts: m.ts, ids: maps.Clone(m.ids)}
}

// advance records t and reports whether it is newer than the mark.
func (m *mark) advance(t adapter.Trade) bool {
	switch {
	case t.EventTsMs < m.ts:
		return false
	case t.EventTsMs > m.ts:
		m.ts = t.EventTsMs
		clear(m.ids)
	default:
		if _, seen := m.ids[t.ID]; seen {
			return false
		}
	}
	m.ids[t.ID] = struct{}{}
	return true
}

// TradeFilter passes trades newer than the per-symbol high-water mark. Watch calls
// return overlapping cache windows, so every call repeats trades already handled.
// Fresh only looks; the marks move on Commit, once the trades were written.
type TradeFilter struct {
	mu    sync.Mutex
	marks map[string]*mark
}

func NewTradeFilter() *TradeFilter {
	return &TradeFilter{marks: make(map[string]*mark)}
}

// Fresh returns the trades not committed before.
func (f *TradeFilter) Fresh(trades []adapter.Trade) []adapter.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()

	work := make(map[string]*mark)
	var out []adapter.Trade
	for _, t := range trades {
		m, ok := work[t.Symbol]
		if !ok {
			if committed, ok := f.marks[t.Symbol]; ok {
				m = committed.clone()
			} else {
				m = &mark{ts: t.EventTsMs, ids: make(map[string]struct{})}
			}
			work[t.Symbol] = m
		}
		if m.advance(t) {
			out = append(out, t)
		}
	}
	return out
}

// Commit advances the marks past trades.
func (f *TradeFilter) Commit(trades []adapter.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range trades {
		m, ok := f.marks[t.Symbol]
		if !ok {
			m = &mark{ts: t.EventTsMs, ids: make(map[string]struct{})}
			f.marks[t.Symbol] = m
		}
		m.advance(t)
	}
}
