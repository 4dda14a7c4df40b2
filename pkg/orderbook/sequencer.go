package orderbook

// Verdict is the outcome of checking a delta against the book nonce.
type Verdict uint8

const (
	_verdict_beg Verdict = iota
	// VerdictApply means the delta continues the book.
	VerdictApply
	// VerdictStale means the delta is already reflected in the book.
	VerdictStale
	// VerdictGap means at least one delta is missing between the book and this one.
	VerdictGap
	_verdict_end
)

func (v Verdict) IsAvailable() bool {
	return v > _verdict_beg && v < _verdict_end
}

func (v Verdict) String() string {
	switch v {
	case VerdictApply:
		return "apply"
	case VerdictStale:
		return "stale"
	case VerdictGap:
		return "gap"
	default:
		return "unknown"
	}
}

// Sequencer decides how a delta relates to the last applied nonce.
type Sequencer interface {
	Check(last int64, delta Delta) Verdict
}

// Consecutive sequences deltas that cover the nonce range [FirstNonce, Nonce].
// A zero FirstNonce means the delta carries a single nonce.
type Consecutive struct{}

func (Consecutive) Check(last int64, d Delta) Verdict {
	first := d.FirstNonce
	if first == 0 {
		first = d.Nonce
	}
	if d.Nonce <= last {
		return VerdictStale
	}
	if first > last+1 {
		return VerdictGap
	}
	return VerdictApply
}

// Previous sequences deltas that name the nonce they follow in PrevNonce.
// A delta linked to last applies even when its own nonce does not grow, which
// covers heartbeats and sequence resets. A ranged delta (non-zero FirstNonce)
// that overlaps last is also accepted, which covers the first delta spliced
// onto a snapshot.
type Previous struct{}

func (Previous) Check(last int64, d Delta) Verdict {
	if d.PrevNonce == last {
		return VerdictApply
	}
	if d.Nonce <= last {
		return VerdictStale
	}
	if d.FirstNonce != 0 && d.FirstNonce <= last+1 {
		return VerdictApply
	}
	return VerdictGap
}
