package sink

import (
	"context"
	"time"

	"github.com/arkiv/arkiv-platform-reference/apps/wallet-watcher/internal/ledger"
)

// Retrying retries a failing sink with linear backoff (base, 2*base, ...).
type Retrying struct {
	next     Sink
	attempts int
	base     time.Duration
}

// WithRetry wraps next. attempts < 1 is treated as 1.
func WithRetry(next Sink, attempts int, base time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, base: base}
}

func (r *Retrying) Emit(ctx context.Context, ev ledger.TradeEvent) error {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		err := r.next.Emit(ctx, ev)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == r.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * r.base):
		}
	}
	return lastErr
}
