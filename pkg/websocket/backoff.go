package websocket

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	fallbackBackoffMin = 100 * time.Millisecond
	fallbackBackoffMax = 5 * time.Second
)

// DefaultBackoff provides conservative reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the delay before reconnect attempt (1-based), capped at Max
// before jitter is applied.
func (b Backoff) Next(attempt int) time.Duration {
	lo, hi, factor := b.Min, b.Max, b.Factor
	if lo <= 0 {
		lo = fallbackBackoffMin
	}
	if hi <= 0 {
		hi = fallbackBackoffMax
	}
	if factor <= 1 {
		factor = 2.0
	}

	wait := lo
	for i := 1; i < attempt && wait < hi; i++ {
		wait = min(time.Duration(float64(wait)*factor), hi)
	}

	jitter := min(b.Jitter, 1)
	if jitter <= 0 {
		return wait
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}

// Sleep waits for the delay of attempt. It returns false when ctx ended first.
func (b Backoff) Sleep(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(b.Next(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
